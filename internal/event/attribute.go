package event

import (
	"fmt"

	"github.com/xtxerr/hepio/internal/errors"
)

// AttrKind identifies the type held by an Attribute. The set is closed:
// every consumer switches exhaustively over these kinds and no runtime
// type inspection is needed.
type AttrKind int

const (
	// AttrInvalid is the zero value; it never appears in a stored map.
	AttrInvalid AttrKind = iota
	// AttrBool holds a boolean.
	AttrBool
	// AttrInt holds a signed 64-bit integer.
	AttrInt
	// AttrDouble holds an IEEE double.
	AttrDouble
	// AttrString holds a string.
	AttrString
	// AttrList holds an ordered list of attributes.
	AttrList
)

// String returns a human-readable representation of the AttrKind.
func (k AttrKind) String() string {
	switch k {
	case AttrBool:
		return "bool"
	case AttrInt:
		return "int"
	case AttrDouble:
		return "double"
	case AttrString:
		return "string"
	case AttrList:
		return "list"
	default:
		return "invalid"
	}
}

// Attribute is a tagged union over the closed set of attribute types.
// The zero value is invalid; construct values with the Bool/Int/Double/
// String/List helpers.
type Attribute struct {
	kind AttrKind
	b    bool
	i    int64
	f    float64
	s    string
	list []Attribute
}

// Bool builds a boolean attribute.
func Bool(v bool) Attribute { return Attribute{kind: AttrBool, b: v} }

// Int builds an integer attribute.
func Int(v int64) Attribute { return Attribute{kind: AttrInt, i: v} }

// Double builds a floating point attribute.
func Double(v float64) Attribute { return Attribute{kind: AttrDouble, f: v} }

// String builds a string attribute.
func String(v string) Attribute { return Attribute{kind: AttrString, s: v} }

// List builds a structured list attribute. Elements must themselves be
// valid attributes; an invalid element poisons the list and is rejected
// when the list is stored.
func List(elems ...Attribute) Attribute {
	return Attribute{kind: AttrList, list: elems}
}

// Kind returns the attribute's kind.
func (a Attribute) Kind() AttrKind { return a.kind }

// AsBool returns the boolean value. ok is false if the kind differs.
func (a Attribute) AsBool() (v bool, ok bool) { return a.b, a.kind == AttrBool }

// AsInt returns the integer value. ok is false if the kind differs.
func (a Attribute) AsInt() (v int64, ok bool) { return a.i, a.kind == AttrInt }

// AsDouble returns the floating point value. ok is false if the kind differs.
func (a Attribute) AsDouble() (v float64, ok bool) { return a.f, a.kind == AttrDouble }

// AsString returns the string value. ok is false if the kind differs.
func (a Attribute) AsString() (v string, ok bool) { return a.s, a.kind == AttrString }

// AsList returns the list elements. ok is false if the kind differs.
// The returned slice is the stored one; callers must not mutate it.
func (a Attribute) AsList() (v []Attribute, ok bool) { return a.list, a.kind == AttrList }

// valid reports whether the attribute (recursively) holds only
// supported kinds.
func (a Attribute) valid() bool {
	switch a.kind {
	case AttrBool, AttrInt, AttrDouble, AttrString:
		return true
	case AttrList:
		for _, e := range a.list {
			if !e.valid() {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// GoString aids debugging output.
func (a Attribute) GoString() string {
	switch a.kind {
	case AttrBool:
		return fmt.Sprintf("event.Bool(%v)", a.b)
	case AttrInt:
		return fmt.Sprintf("event.Int(%d)", a.i)
	case AttrDouble:
		return fmt.Sprintf("event.Double(%g)", a.f)
	case AttrString:
		return fmt.Sprintf("event.String(%q)", a.s)
	case AttrList:
		return fmt.Sprintf("event.List(len=%d)", len(a.list))
	default:
		return "event.Attribute(invalid)"
	}
}

// Equal reports deep equality of two attributes.
func (a Attribute) Equal(o Attribute) bool {
	if a.kind != o.kind {
		return false
	}
	switch a.kind {
	case AttrBool:
		return a.b == o.b
	case AttrInt:
		return a.i == o.i
	case AttrDouble:
		return a.f == o.f
	case AttrString:
		return a.s == o.s
	case AttrList:
		if len(a.list) != len(o.list) {
			return false
		}
		for i := range a.list {
			if !a.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Attributes is the generic typed key-value store attached to run info,
// events, particles, and vertices. Keys are unique per owner; absent
// keys read as not-set, never an error. The zero value is ready to use.
type Attributes map[string]Attribute

// Set inserts or overwrites the attribute under key. Storing an
// attribute holding an unsupported kind fails with
// errors.ErrUnsupportedAttribute and leaves the map untouched.
func (m *Attributes) Set(key string, a Attribute) error {
	if !a.valid() {
		return errors.Wrapf(errors.ErrUnsupportedAttribute, "attribute %q", key)
	}
	if *m == nil {
		*m = make(Attributes)
	}
	(*m)[key] = a
	return nil
}

// Get returns the attribute under key. ok is false when the key is
// absent.
func (m Attributes) Get(key string) (Attribute, bool) {
	a, ok := m[key]
	return a, ok
}

// Remove deletes the attribute under key. Removing an absent key is a
// no-op.
func (m Attributes) Remove(key string) {
	delete(m, key)
}

// Len returns the number of stored attributes.
func (m Attributes) Len() int { return len(m) }

// Equal reports whether two attribute maps hold the same entries.
func (m Attributes) Equal(o Attributes) bool {
	if len(m) != len(o) {
		return false
	}
	for k, a := range m {
		b, ok := o[k]
		if !ok || !a.Equal(b) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the attribute map.
func (m Attributes) Clone() Attributes {
	if m == nil {
		return nil
	}
	out := make(Attributes, len(m))
	for k, a := range m {
		out[k] = a.clone()
	}
	return out
}

func (a Attribute) clone() Attribute {
	if a.kind != AttrList {
		return a
	}
	list := make([]Attribute, len(a.list))
	for i, e := range a.list {
		list[i] = e.clone()
	}
	return Attribute{kind: AttrList, list: list}
}
