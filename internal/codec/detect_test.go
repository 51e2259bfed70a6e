package codec

import (
	"bufio"
	"strings"
	"testing"

	"github.com/xtxerr/hepio/internal/errors"
)

func detect(t *testing.T, input string) (Format, error) {
	t.Helper()
	return Detect(bufio.NewReader(strings.NewReader(input)))
}

func TestDetect(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  Format
	}{
		{
			name:  "ascii v3",
			input: "HepMC::Version 3.02.05\nHepMC::Asciiv3-START_EVENT_LISTING\nE 0 1 2\n",
			want:  FormatHepMC3,
		},
		{
			name:  "ascii v2",
			input: "HepMC::Version 2.06.09\nHepMC::IO_GenEvent-START_EVENT_LISTING\nE 0 -1 -1 -1 -1 0 0 1 0 0 0 0\n",
			want:  FormatHepMC2,
		},
		{
			name:  "v2 with comment before start",
			input: "HepMC::Version 2.06.05\nHepMC::IO_GenEvent-START_EVENT_LISTING\n",
			want:  FormatHepMC2,
		},
		{
			name:  "lhef root element",
			input: "<LesHouchesEvents version=\"3.0\">\n<init>\n",
			want:  FormatLHEF,
		},
		{
			name:  "lhef with xml declaration",
			input: "<?xml version=\"1.0\"?>\n<LesHouchesEvents version=\"1.0\">\n",
			want:  FormatLHEF,
		},
		{
			name:  "legacy fixed-field",
			input: "E 1 2\n1 211 0 0 0 0 1 0 0 1 0.14 0 0 0 0\n",
			want:  FormatHEPEVT,
		},
		{
			name:  "legacy with leading blank lines",
			input: "\n\nE 12 0\n",
			want:  FormatHEPEVT,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := detect(t, tc.input)
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Detect = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDetectNeverConfusesNativeVersions(t *testing.T) {
	// The shared version prefix must not decide on its own.
	v3, err := detect(t, "HepMC::Version 3.02.05\nHepMC::Asciiv3-START_EVENT_LISTING\n")
	if err != nil || v3 != FormatHepMC3 {
		t.Fatalf("v3 = %v, %v", v3, err)
	}
	v2, err := detect(t, "HepMC::Version 2.06.09\nHepMC::IO_GenEvent-START_EVENT_LISTING\n")
	if err != nil || v2 != FormatHepMC2 {
		t.Fatalf("v2 = %v, %v", v2, err)
	}

	// A version line with neither listing marker is corrupt, not
	// guessed.
	_, err = detect(t, "HepMC::Version 3.02.05\nsomething else\n")
	if !errors.Is(err, errors.ErrCorruptHeader) {
		t.Fatalf("expected ErrCorruptHeader, got %v", err)
	}
}

func TestDetectUnrecognized(t *testing.T) {
	for _, input := range []string{
		"",
		"\n\n\n",
		"random text\n",
		"E notanumber 3\n",
		"E 1 -2\n",
		"{\"json\": true}\n",
	} {
		_, err := detect(t, input)
		if !errors.Is(err, errors.ErrUnrecognizedFormat) {
			t.Errorf("input %q: expected ErrUnrecognizedFormat, got %v", input, err)
		}
	}
}

func TestDetectDoesNotConsume(t *testing.T) {
	input := "E 1 0\n"
	br := bufio.NewReader(strings.NewReader(input))
	if _, err := Detect(br); err != nil {
		t.Fatalf("Detect: %v", err)
	}
	line, err := br.ReadString('\n')
	if err != nil {
		t.Fatalf("ReadString after Detect: %v", err)
	}
	if line != input {
		t.Fatalf("stream head consumed: %q", line)
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"hepmc3": FormatHepMC3,
		"hepmc2": FormatHepMC2,
		"hepevt": FormatHEPEVT,
		"lhef":   FormatLHEF,
	}
	for name, want := range cases {
		got, err := ParseFormat(name)
		if err != nil {
			t.Errorf("ParseFormat(%q): %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("ParseFormat(%q) = %v", name, got)
		}
	}
	if _, err := ParseFormat("root"); err == nil {
		t.Error("unknown format name accepted")
	}
}

func TestWritable(t *testing.T) {
	if FormatLHEF.Writable() {
		t.Error("the XML format is read-only")
	}
	for _, f := range []Format{FormatHepMC3, FormatHepMC2, FormatHEPEVT} {
		if !f.Writable() {
			t.Errorf("%v must be writable", f)
		}
	}
}

func TestScannerLineAccounting(t *testing.T) {
	sc := NewLineScanner(bufio.NewReader(strings.NewReader("a\nb\nc")))
	for i, want := range []string{"a", "b", "c"} {
		line, err := sc.Next()
		if err != nil {
			t.Fatalf("Next %d: %v", i, err)
		}
		if line != want {
			t.Errorf("line %d = %q", i, line)
		}
		if sc.Line() != i+1 {
			t.Errorf("Line() = %d, want %d", sc.Line(), i+1)
		}
	}
	if _, err := sc.Next(); err == nil {
		t.Fatal("expected EOF")
	}
}
