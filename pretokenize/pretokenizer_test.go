package pretokenize

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ollama/tokenizers/normalize"
)

type word struct {
	Text string
	Span normalize.Span
}

func words(ss []*normalize.String) []word {
	w := make([]word, len(ss))
	for i, s := range ss {
		w[i] = word{s.String(), s.Span()}
	}
	return w
}

func mustSplit(t *testing.T, pattern string, regex bool, behavior Behavior, invert bool) *Split {
	t.Helper()
	s, err := NewSplit(pattern, regex, behavior, invert)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestPreTokenizers(t *testing.T) {
	cases := []struct {
		name  string
		p     PreTokenizer
		input string
		want  []word
	}{
		{"whitespace split", WhitespaceSplit{}, "Hey  friend!", []word{{"Hey", normalize.Span{Start: 0, End: 3}}, {"friend!", normalize.Span{Start: 5, End: 12}}}},
		{"whitespace", Whitespace{}, "Hey friend!", []word{{"Hey", normalize.Span{Start: 0, End: 3}}, {"friend", normalize.Span{Start: 4, End: 10}}, {"!", normalize.Span{Start: 10, End: 11}}}},
		{"bert", Bert{}, "Hey, friend", []word{{"Hey", normalize.Span{Start: 0, End: 3}}, {",", normalize.Span{Start: 3, End: 4}}, {"friend", normalize.Span{Start: 5, End: 11}}}},
		{"punctuation", Punctuation{Behavior: MergedWithPrevious}, "a.b", []word{{"a.", normalize.Span{Start: 0, End: 2}}, {"b", normalize.Span{Start: 2, End: 3}}}},
		{"digits", Digits{}, "a123b", []word{{"a", normalize.Span{Start: 0, End: 1}}, {"123", normalize.Span{Start: 1, End: 4}}, {"b", normalize.Span{Start: 4, End: 5}}}},
		{"individual digits", Digits{IndividualDigits: true}, "a12", []word{{"a", normalize.Span{Start: 0, End: 1}}, {"1", normalize.Span{Start: 1, End: 2}}, {"2", normalize.Span{Start: 2, End: 3}}}},
		{"split removed", mustSplit(t, "-", false, Removed, false), "a-b", []word{{"a", normalize.Span{Start: 0, End: 1}}, {"b", normalize.Span{Start: 2, End: 3}}}},
		{"split previous", mustSplit(t, "-", false, MergedWithPrevious, false), "a-b", []word{{"a-", normalize.Span{Start: 0, End: 2}}, {"b", normalize.Span{Start: 2, End: 3}}}},
		{"split next", mustSplit(t, "-", false, MergedWithNext, false), "a-b", []word{{"a", normalize.Span{Start: 0, End: 1}}, {"-b", normalize.Span{Start: 1, End: 3}}}},
		{"split contiguous", mustSplit(t, "-", false, Contiguous, false), "a--b", []word{{"a", normalize.Span{Start: 0, End: 1}}, {"--", normalize.Span{Start: 1, End: 3}}, {"b", normalize.Span{Start: 3, End: 4}}}},
		{"split regex invert", mustSplit(t, `\d+`, true, Removed, true), "ab12cd3", []word{{"12", normalize.Span{Start: 2, End: 4}}, {"3", normalize.Span{Start: 6, End: 7}}}},
		{"char delimiter", CharDelimiterSplit{Delimiter: '_'}, "a_b", []word{{"a", normalize.Span{Start: 0, End: 1}}, {"b", normalize.Span{Start: 2, End: 3}}}},
		{"metaspace", Metaspace{Split: true}, "Hey friend", []word{{"▁Hey", normalize.Span{Start: 0, End: 3}}, {"▁friend", normalize.Span{Start: 3, End: 10}}}},
		{"metaspace no split", Metaspace{PrependScheme: PrependNever}, "a b", []word{{"a▁b", normalize.Span{Start: 0, End: 3}}}},
		{"byte level", ByteLevel{AddPrefixSpace: true, UseRegex: true}, "Hello world", []word{{"ĠHello", normalize.Span{Start: 0, End: 5}}, {"Ġworld", normalize.Span{Start: 5, End: 11}}}},
		{"byte level no regex", ByteLevel{}, "é!", []word{{"Ã©!", normalize.Span{Start: 0, End: 3}}}},
		{"sequence", Sequence{WhitespaceSplit{}, Digits{IndividualDigits: true}}, "x1 y", []word{{"x", normalize.Span{Start: 0, End: 1}}, {"1", normalize.Span{Start: 1, End: 2}}, {"y", normalize.Span{Start: 3, End: 4}}}},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got := words(tt.p.PreTokenize(normalize.New(tt.input)))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("no match (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMetaspacePrependFirst(t *testing.T) {
	m := Metaspace{PrependScheme: PrependFirst, Split: true}

	got := words(m.PreTokenize(normalize.New("hi")))
	if diff := cmp.Diff([]word{{"▁hi", normalize.Span{Start: 0, End: 2}}}, got); diff != "" {
		t.Errorf("no match (-want +got):\n%s", diff)
	}

	got = words(m.PreTokenize(normalize.NewAt("hi", 4)))
	if diff := cmp.Diff([]word{{"hi", normalize.Span{Start: 4, End: 6}}}, got); diff != "" {
		t.Errorf("no match (-want +got):\n%s", diff)
	}
}

func TestParse(t *testing.T) {
	for s, want := range map[string]Behavior{
		"removed":              Removed,
		"isolated":             Isolated,
		"merged_with_previous": MergedWithPrevious,
		"MergedWithNext":       MergedWithNext,
		"contiguous":           Contiguous,
	} {
		got, err := ParseBehavior(s)
		if err != nil || got != want {
			t.Errorf("ParseBehavior(%q) = %v, %v", s, got, err)
		}
	}

	if _, err := ParseBehavior("sideways"); err == nil {
		t.Error("expected an error")
	}

	if _, err := ParsePrependScheme("sometimes"); err == nil {
		t.Error("expected an error")
	}
}
