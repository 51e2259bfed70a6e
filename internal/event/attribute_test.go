package event

import (
	"testing"

	"github.com/xtxerr/hepio/internal/errors"
)

func TestAttributesSetGetRemove(t *testing.T) {
	var m Attributes

	if _, ok := m.Get("missing"); ok {
		t.Fatal("absent key reported as present")
	}

	if err := m.Set("mpi", Int(3)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := m.Set("signal", Bool(true)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := m.Set("alphaQCD", Double(0.118)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := m.Set("generator", String("pythia8")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	a, ok := m.Get("mpi")
	if !ok {
		t.Fatal("mpi missing")
	}
	if v, ok := a.AsInt(); !ok || v != 3 {
		t.Errorf("mpi = %v, %v", v, ok)
	}
	if _, ok := a.AsString(); ok {
		t.Error("int attribute readable as string")
	}

	// Overwrite changes the kind.
	if err := m.Set("mpi", String("three")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	a, _ = m.Get("mpi")
	if a.Kind() != AttrString {
		t.Errorf("overwritten kind = %v", a.Kind())
	}

	m.Remove("mpi")
	if _, ok := m.Get("mpi"); ok {
		t.Error("removed key still present")
	}
	m.Remove("mpi") // removing an absent key is a no-op
}

func TestAttributeList(t *testing.T) {
	var m Attributes
	err := m.Set("weights", List(Double(1.0), Double(0.9), List(Int(1), String("nested"))))
	if err != nil {
		t.Fatalf("Set list: %v", err)
	}

	a, _ := m.Get("weights")
	elems, ok := a.AsList()
	if !ok || len(elems) != 3 {
		t.Fatalf("list = %v elems, ok=%v", len(elems), ok)
	}
	nested, ok := elems[2].AsList()
	if !ok || len(nested) != 2 {
		t.Fatalf("nested list = %v elems, ok=%v", len(nested), ok)
	}
}

func TestAttributeInvalidKindRejected(t *testing.T) {
	var m Attributes
	if err := m.Set("good", Int(1)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var invalid Attribute // zero value, AttrInvalid
	err := m.Set("bad", invalid)
	if !errors.Is(err, errors.ErrUnsupportedAttribute) {
		t.Fatalf("expected ErrUnsupportedAttribute, got %v", err)
	}

	// A poisoned list is rejected as a whole.
	err = m.Set("bad", List(Int(1), invalid))
	if !errors.Is(err, errors.ErrUnsupportedAttribute) {
		t.Fatalf("expected ErrUnsupportedAttribute for nested invalid, got %v", err)
	}

	// The map is not corrupted by failed writes.
	if m.Len() != 1 {
		t.Errorf("map corrupted: %d entries", m.Len())
	}
	if _, ok := m.Get("bad"); ok {
		t.Error("rejected key present in map")
	}
}

func TestAttributeEqualAndClone(t *testing.T) {
	var m Attributes
	m.Set("a", Int(7))
	m.Set("b", List(Bool(false), Double(2.5)))

	c := m.Clone()
	if !m.Equal(c) {
		t.Fatal("clone not equal to original")
	}

	c.Set("a", Int(8))
	if m.Equal(c) {
		t.Fatal("mutating clone affected equality unexpectedly")
	}
	if v, _ := mustGet(t, m, "a").AsInt(); v != 7 {
		t.Errorf("original mutated through clone: %d", v)
	}
}

func mustGet(t *testing.T, m Attributes, key string) Attribute {
	t.Helper()
	a, ok := m.Get(key)
	if !ok {
		t.Fatalf("attribute %q missing", key)
	}
	return a
}
