package stream

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/xtxerr/hepio/internal/codec"
	"github.com/xtxerr/hepio/internal/errors"
	"github.com/xtxerr/hepio/internal/event"
)

// threeParticleEvent builds one event with final-state pions, an
// intermediate, and one decay vertex.
func threeParticleEvent(t *testing.T) *event.Event {
	t.Helper()
	ev := event.New(1)
	mk := func(pid, status int, pz float64) int {
		return ev.AddParticle(event.Particle{
			PID: pid, Status: status,
			Momentum: event.NewMomentum(0, 0, pz, pz*pz+1),
		})
	}
	pa := mk(211, 1, 1)
	pb := mk(-211, 1, -1)
	pc := mk(111, 2, 2)
	v := ev.AddVertex(event.Vertex{})
	if err := ev.AddParticleIn(v, pc); err != nil {
		t.Fatal(err)
	}
	for _, p := range []int{pa, pb} {
		if err := ev.AddParticleOut(v, p); err != nil {
			t.Fatal(err)
		}
	}
	return ev
}

func writeFile(t *testing.T, path string, format codec.Format, events ...*event.Event) {
	t.Helper()
	w, err := Create(path, format)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, ev := range events {
		if err := w.Write(ev); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func readAll(t *testing.T, path string) ([]*event.Event, Stats) {
	t.Helper()
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	var events []*event.Event
	for r.Next() {
		events = append(events, r.Event())
	}
	if err := r.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	return events, r.Stats()
}

func TestFileRoundTripPlain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.hepmc")
	orig := threeParticleEvent(t)
	writeFile(t, path, codec.FormatHepMC3, orig)

	events, stats := readAll(t, path)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if !orig.Equal(events[0]) {
		t.Fatal("round trip not isomorphic")
	}
	if stats.Format != codec.FormatHepMC3 || stats.Compression != CompressionNone {
		t.Errorf("stats = %+v", stats)
	}
	if got := events[0].ParticlesWithStatus(1); len(got) != 2 {
		t.Errorf("final-state particles = %d, want 2", len(got))
	}
}

func TestFileRoundTripCompressed(t *testing.T) {
	cases := []struct {
		ext  string
		want Compression
	}{
		{".gz", CompressionGzip},
		{".xz", CompressionXZ},
		{".zst", CompressionZstd},
	}
	for _, tc := range cases {
		t.Run(tc.want.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "events.hepmc"+tc.ext)
			orig := threeParticleEvent(t)
			writeFile(t, path, codec.FormatHepMC3, orig)

			// The file on disk must really be compressed.
			raw, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if bytes.HasPrefix(raw, []byte("HepMC::")) {
				t.Fatal("output written uncompressed")
			}

			events, stats := readAll(t, path)
			if len(events) != 1 || !orig.Equal(events[0]) {
				t.Fatal("round trip through compression failed")
			}
			if stats.Compression != tc.want {
				t.Errorf("compression = %v, want %v", stats.Compression, tc.want)
			}
		})
	}
}

func TestDetectionIgnoresExtension(t *testing.T) {
	// A gzip stream in a file with no extension still decompresses:
	// detection goes by magic bytes.
	path := filepath.Join(t.TempDir(), "mislabeled")
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	w, err := NewWriter(zw, codec.FormatHepMC3, WriterOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(threeParticleEvent(t)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	events, stats := readAll(t, path)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if stats.Compression != CompressionGzip {
		t.Errorf("compression = %v, want gzip", stats.Compression)
	}
}

func TestBzip2ReadOnly(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "out.hepmc.bz2"), codec.FormatHepMC3)
	if !errors.Is(err, errors.ErrUnsupportedOperation) {
		t.Fatalf("expected ErrUnsupportedOperation, got %v", err)
	}
}

func TestXMLFormatNotWritable(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "out.lhe"), codec.FormatLHEF)
	if !errors.Is(err, errors.ErrUnsupportedOperation) {
		t.Fatalf("expected ErrUnsupportedOperation, got %v", err)
	}
}

func TestUnrecognizedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.dat")
	if err := os.WriteFile(path, []byte("definitely not events\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path)
	if !errors.Is(err, errors.ErrUnrecognizedFormat) {
		t.Fatalf("expected ErrUnrecognizedFormat, got %v", err)
	}
}

func TestForcedFormat(t *testing.T) {
	// A legacy stream read with a forced format skips detection.
	path := filepath.Join(t.TempDir(), "events.hepevt")
	writeFile(t, path, codec.FormatHEPEVT, threeParticleEvent(t))

	r, err := OpenWith(path, ReaderOptions{Format: codec.FormatHEPEVT})
	if err != nil {
		t.Fatalf("OpenWith: %v", err)
	}
	defer r.Close()
	if !r.Next() {
		t.Fatalf("Next: %v", r.Err())
	}
	if r.Event().NumParticles() != 3 {
		t.Errorf("particles = %d", r.Event().NumParticles())
	}
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.hepmc.gz")
	out := filepath.Join(dir, "out.hepmc2")

	a := threeParticleEvent(t)
	b := threeParticleEvent(t)
	b.EventNumber = 2
	writeFile(t, in, codec.FormatHepMC3, a, b)

	stats, err := Convert(context.Background(), in, out, codec.FormatHepMC2)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if stats.Events != 2 {
		t.Errorf("converted %d events, want 2", stats.Events)
	}

	events, outStats := readAll(t, out)
	if len(events) != 2 {
		t.Fatalf("output events = %d, want 2", len(events))
	}
	if outStats.Format != codec.FormatHepMC2 {
		t.Errorf("output format = %v", outStats.Format)
	}
	if events[1].EventNumber != 2 {
		t.Errorf("event numbers shuffled: %d", events[1].EventNumber)
	}
}

func TestConvertCancelled(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.hepmc")
	writeFile(t, in, codec.FormatHepMC3, threeParticleEvent(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Convert(ctx, in, filepath.Join(dir, "out.hepmc"), codec.FormatHepMC3)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestCompressionDecoders(t *testing.T) {
	// Hand-built xz and zstd payloads exercise the decompress side
	// independent of the write path.
	payload := []byte("E 1 1\n1 22 0 0 0 0 0 0 5 5 0 0 0 0 0\n")

	var xzBuf bytes.Buffer
	xw, err := xz.NewWriter(&xzBuf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := xw.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := xw.Close(); err != nil {
		t.Fatal(err)
	}

	var zstdBuf bytes.Buffer
	zw, err := zstd.NewWriter(&zstdBuf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := zw.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	for name, data := range map[string][]byte{"xz": xzBuf.Bytes(), "zstd": zstdBuf.Bytes()} {
		r, err := NewReader(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("%s: NewReader: %v", name, err)
		}
		if !r.Next() {
			t.Fatalf("%s: Next: %v", name, r.Err())
		}
		if r.Event().NumParticles() != 1 {
			t.Errorf("%s: particles = %d", name, r.Event().NumParticles())
		}
		if r.Next() {
			t.Errorf("%s: unexpected second event", name)
		}
		if err := r.Close(); err != nil {
			t.Errorf("%s: Close: %v", name, err)
		}
	}
}
