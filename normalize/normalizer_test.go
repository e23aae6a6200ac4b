package normalize

import (
	"testing"

	"github.com/dlclark/regexp2"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/unicode/norm"
)

func alignments(s *String) []Span {
	spans := make([]Span, 0, s.Len())
	for i := range s.Len() {
		spans = append(spans, s.Offsets(i, i+1))
	}
	return spans
}

func TestNormalizers(t *testing.T) {
	yes := true
	cases := []struct {
		name       string
		normalizer Normalizer
		input      string
		want       string
		span       Span
	}{
		{"lowercase", Lowercase{}, "HeLLo", "hello", Span{0, 5}},
		{"nfc", Unicode{norm.NFC}, "e\u0301", "\u00e9", Span{0, 3}},
		{"nfd strip", Sequence{Unicode{norm.NFD}, StripAccents{}}, "caf\u00e9", "cafe", Span{0, 5}},
		{"nfkc", Unicode{norm.NFKC}, "\uff21", "A", Span{0, 3}},
		{"strip", Strip{Left: true, Right: true}, "  hi ", "hi", Span{2, 4}},
		{"strip all", Strip{Left: true, Right: true}, "   ", "", Span{0, 0}},
		{"prepend", Prepend{"▁"}, "hi", "▁hi", Span{0, 2}},
		{"prepend empty", Prepend{"▁"}, "", "", Span{0, 0}},
		{"bert", Bert{CleanText: true, HandleChineseChars: true, Lowercase: true}, "H\u00e9llo\t世", "hello  世 ", Span{0, 10}},
		{"bert keep accents", Bert{Lowercase: true, StripAccents: new(bool)}, "\u00c9", "\u00e9", Span{0, 2}},
		{"bert strip only", Bert{StripAccents: &yes}, "\u00c9", "E", Span{0, 2}},
		{"bert control", Bert{CleanText: true}, "a\x00b\u200bc", "abc", Span{0, 7}},
		{"nmt", Nmt{}, "a\x01b\u2028c", "ab c", Span{0, 7}},
		{"byte level", ByteLevel{}, "a b\u00e9", "a\u0120b\u00c3\u00a9", Span{0, 5}},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.input)
			tt.normalizer.Normalize(s)
			if diff := cmp.Diff(tt.want, s.String()); diff != "" {
				t.Errorf("no match (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.span, s.Span()); diff != "" {
				t.Errorf("span mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAlignments(t *testing.T) {
	t.Run("decomposition", func(t *testing.T) {
		s := New("\u00e9a")
		s.Unicode(norm.NFD)
		if diff := cmp.Diff([]Span{{0, 2}, {0, 2}, {0, 2}, {2, 3}}, alignments(s)); diff != "" {
			t.Errorf("no match (-want +got):\n%s", diff)
		}
	})

	t.Run("replace", func(t *testing.T) {
		s := New("a b")
		s.ReplaceAll(" ", "▁")
		if s.String() != "a▁b" {
			t.Fatalf("got %q", s.String())
		}
		if diff := cmp.Diff(Span{1, 2}, s.Offsets(1, 4)); diff != "" {
			t.Errorf("no match (-want +got):\n%s", diff)
		}
	})

	t.Run("base offset", func(t *testing.T) {
		s := NewAt("h\u00e9llo", 10)
		if diff := cmp.Diff(Span{11, 13}, s.Offsets(1, 3)); diff != "" {
			t.Errorf("no match (-want +got):\n%s", diff)
		}

		sub := s.Slice(3, 6)
		if diff := cmp.Diff(Span{13, 16}, sub.Span()); diff != "" {
			t.Errorf("no match (-want +got):\n%s", diff)
		}
	})

	t.Run("map bytes", func(t *testing.T) {
		s := New("\u00e9")
		s.MapBytes(func(b byte) string { return "x" })
		if diff := cmp.Diff([]Span{{0, 2}, {0, 2}}, alignments(s)); diff != "" {
			t.Errorf("no match (-want +got):\n%s", diff)
		}
	})

	t.Run("empty", func(t *testing.T) {
		s := NewAt("", 7)
		if diff := cmp.Diff(Span{7, 7}, s.Span()); diff != "" {
			t.Errorf("no match (-want +got):\n%s", diff)
		}
	})
}

func TestReplaceRegexp(t *testing.T) {
	r, err := NewReplace(`\s+`, true, " ")
	if err != nil {
		t.Fatal(err)
	}

	s := New("a  \t b")
	r.Normalize(s)
	if s.String() != "a b" {
		t.Fatalf("got %q", s.String())
	}
	if diff := cmp.Diff(Span{1, 5}, s.Offsets(1, 2)); diff != "" {
		t.Errorf("no match (-want +got):\n%s", diff)
	}

	if _, err := NewReplace(`(`, true, ""); err == nil {
		t.Error("expected an error for an invalid pattern")
	}
}

func TestFindAll(t *testing.T) {
	re := regexp2.MustCompile(`\w+`, regexp2.None)
	s := New("h\u00e9llo, w\u00f6rld")
	if diff := cmp.Diff([][2]int{{0, 6}, {8, 14}}, s.FindAll(re)); diff != "" {
		t.Errorf("no match (-want +got):\n%s", diff)
	}
}
