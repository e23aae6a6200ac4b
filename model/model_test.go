package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"
)

func values(pieces []Piece) []string {
	s := make([]string, len(pieces))
	for i, p := range pieces {
		s[i] = p.Value
	}
	return s
}

func spans(pieces []Piece) [][2]int {
	s := make([][2]int, len(pieces))
	for i, p := range pieces {
		s[i] = [2]int{p.Start, p.End}
	}
	return s
}

func newBPE(t testing.TB, vocab []string, merges []Merge, unk string, opts BPEOptions) *BytePairEncoding {
	t.Helper()
	v, err := NewVocabulary(KindBPE, tokens(vocab...), VocabularyOptions{
		Merges:                  merges,
		UnkToken:                unk,
		ContinuingSubwordPrefix: opts.ContinuingSubwordPrefix,
		EndOfWordSuffix:         opts.EndOfWordSuffix,
	})
	if err != nil {
		t.Fatal(err)
	}

	bpe, err := NewBytePairEncoding(v, opts)
	if err != nil {
		t.Fatal(err)
	}
	return bpe
}

func TestBytePairEncoding(t *testing.T) {
	bpe := newBPE(t,
		[]string{"<unk>", "h", "e", "l", "o", "he", "ll", "hell", "hello", "lo"},
		[]Merge{
			{Left: "h", Right: "e", Rank: 0},
			{Left: "l", Right: "l", Rank: 1},
			{Left: "he", Right: "ll", Rank: 2},
			{Left: "l", Right: "o", Rank: 3},
			{Left: "hell", Right: "o", Rank: 4},
		},
		"<unk>", BPEOptions{CacheCapacity: 8})

	cases := []struct {
		word   string
		values []string
		spans  [][2]int
	}{
		{"hello", []string{"hello"}, [][2]int{{0, 5}}},
		{"hell", []string{"hell"}, [][2]int{{0, 4}}},
		{"lol", []string{"lo", "l"}, [][2]int{{0, 2}, {2, 3}}},
		{"hexxo", []string{"he", "<unk>", "o"}, [][2]int{{0, 2}, {2, 4}, {4, 5}}},
		{"h€e", []string{"h", "<unk>", "e"}, [][2]int{{0, 1}, {1, 4}, {4, 5}}},
	}

	for _, tt := range cases {
		t.Run(tt.word, func(t *testing.T) {
			for range 2 {
				pieces, err := bpe.Tokenize(tt.word)
				if err != nil {
					t.Fatal(err)
				}
				if diff := cmp.Diff(tt.values, values(pieces)); diff != "" {
					t.Errorf("no match (-want +got):\n%s", diff)
				}
				if diff := cmp.Diff(tt.spans, spans(pieces)); diff != "" {
					t.Errorf("no match (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestBytePairEncodingTieBreak(t *testing.T) {
	bpe := newBPE(t,
		[]string{"a", "b", "c", "ab", "bc"},
		[]Merge{{Left: "a", Right: "b", Rank: 0}, {Left: "b", Right: "c", Rank: 0}},
		"", BPEOptions{})

	pieces, err := bpe.Tokenize("abc")
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"ab", "c"}, values(pieces)); diff != "" {
		t.Errorf("no match (-want +got):\n%s", diff)
	}
}

func TestBytePairEncodingAffixes(t *testing.T) {
	bpe := newBPE(t,
		[]string{"u", "##n", "un", "##d", "und</w>", "##d</w>", "d</w>"},
		[]Merge{{Left: "u", Right: "##n", Rank: 0}, {Left: "un", Right: "##d</w>", Rank: 1}},
		"", BPEOptions{ContinuingSubwordPrefix: "##", EndOfWordSuffix: "</w>"})

	pieces, err := bpe.Tokenize("und")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"und</w>"}, values(pieces)); diff != "" {
		t.Errorf("no match (-want +got):\n%s", diff)
	}

	pieces, err = bpe.Tokenize("d")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"d</w>"}, values(pieces)); diff != "" {
		t.Errorf("no match (-want +got):\n%s", diff)
	}
}

func byteVocabulary(extra ...string) []string {
	vocab := append([]string{"<unk>"}, extra...)
	for b := range 256 {
		vocab = append(vocab, fmt.Sprintf("<0x%02X>", b))
	}
	return vocab
}

func TestBytePairEncodingByteFallback(t *testing.T) {
	bpe := newBPE(t, byteVocabulary("a", "b", "ab"), []Merge{{Left: "a", Right: "b"}}, "<unk>", BPEOptions{ByteFallback: true})

	pieces, err := bpe.Tokenize("ab€")
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"ab", "<0xE2>", "<0x82>", "<0xAC>"}, values(pieces)); diff != "" {
		t.Errorf("no match (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][2]int{{0, 2}, {2, 5}, {2, 5}, {2, 5}}, spans(pieces)); diff != "" {
		t.Errorf("no match (-want +got):\n%s", diff)
	}
}

func TestBytePairEncodingUncoverable(t *testing.T) {
	bpe := newBPE(t, []string{"a"}, []Merge{}, "", BPEOptions{})
	if _, err := bpe.Tokenize("ax"); !errors.Is(err, ErrSegmentation) {
		t.Fatalf("expected ErrSegmentation, got %v", err)
	}
}

func TestBytePairEncodingCoverage(t *testing.T) {
	bpe := newBPE(t, byteVocabulary("a", "b", "ab", "c", "abc"),
		[]Merge{{Left: "a", Right: "b", Rank: 0}, {Left: "ab", Right: "c", Rank: 1}},
		"<unk>", BPEOptions{ByteFallback: true, CacheCapacity: 16})

	rapid.Check(t, func(t *rapid.T) {
		word := rapid.String().Draw(t, "word")
		pieces, err := bpe.Tokenize(word)
		if err != nil {
			t.Fatal(err)
		}

		var end int
		for _, p := range pieces {
			if p.Start > end || p.Start < end && p.End != end {
				t.Fatalf("pieces %v do not tile %q", spans(pieces), word)
			}
			if _, ok := bpe.Vocabulary().Token(p.ID); !ok {
				t.Fatalf("id %d is not in the vocabulary", p.ID)
			}
			end = p.End
		}

		if end != len(word) {
			t.Fatalf("pieces end at %d, want %d", end, len(word))
		}
	})
}

func newWordPiece(t testing.TB, vocab ...string) *WordPiece {
	t.Helper()
	v, err := NewVocabulary(KindWordPiece, tokens(vocab...), VocabularyOptions{UnkToken: "[UNK]"})
	if err != nil {
		t.Fatal(err)
	}
	return NewWordPiece(v, WordPieceOptions{MaxInputCharsPerWord: 10})
}

func TestWordPiece(t *testing.T) {
	wpm := newWordPiece(t, "[UNK]", "un", "##aff", "##able", "unaffable", "runn", "##ing", "é", "##t")

	cases := []struct {
		word   string
		values []string
		spans  [][2]int
	}{
		{"unaffable", []string{"unaffable"}, [][2]int{{0, 9}}},
		{"running", []string{"runn", "##ing"}, [][2]int{{0, 4}, {4, 7}}},
		{"unable", []string{"un", "##able"}, [][2]int{{0, 2}, {2, 6}}},
		{"ét", []string{"é", "##t"}, [][2]int{{0, 2}, {2, 3}}},
		{"unx", []string{"[UNK]"}, [][2]int{{0, 3}}},
		{"unaffableee", []string{"[UNK]"}, [][2]int{{0, 11}}},
	}

	for _, tt := range cases {
		t.Run(tt.word, func(t *testing.T) {
			pieces, err := wpm.Tokenize(tt.word)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.values, values(pieces)); diff != "" {
				t.Errorf("no match (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.spans, spans(pieces)); diff != "" {
				t.Errorf("no match (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWordPieceSplit(t *testing.T) {
	wpm := newWordPiece(t, "[UNK]", "un", "##aff", "##able")

	pieces, err := wpm.Tokenize("unaffable")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"un", "##aff", "##able"}, values(pieces)); diff != "" {
		t.Errorf("no match (-want +got):\n%s", diff)
	}
}

func newUnigram(t testing.TB, byteFallback bool, entries ...Token) *Unigram {
	t.Helper()
	v, err := NewVocabulary(KindUnigram, entries, VocabularyOptions{Scores: true, UnkToken: "<unk>"})
	if err != nil {
		t.Fatal(err)
	}
	return NewUnigram(v, UnigramOptions{ByteFallback: byteFallback})
}

func TestUnigram(t *testing.T) {
	u := newUnigram(t, false,
		Token{Value: "<unk>", ID: 0},
		Token{Value: "a", ID: 1, Score: -10},
		Token{Value: "b", ID: 2, Score: -10},
		Token{Value: "c", ID: 3, Score: -10},
		Token{Value: "d", ID: 4, Score: -5},
		Token{Value: "ab", ID: 5, Score: -2},
		Token{Value: "cd", ID: 6, Score: -1},
		Token{Value: "abc", ID: 7, Score: -1},
	)

	cases := []struct {
		word   string
		values []string
		spans  [][2]int
	}{
		// greedy longest match would pick abc+d (-6); ab+cd scores -3
		{"abcd", []string{"ab", "cd"}, [][2]int{{0, 2}, {2, 4}}},
		{"abc", []string{"abc"}, [][2]int{{0, 3}}},
		{"axd", []string{"a", "<unk>", "d"}, [][2]int{{0, 1}, {1, 2}, {2, 3}}},
		{"axyd", []string{"a", "<unk>", "d"}, [][2]int{{0, 1}, {1, 3}, {3, 4}}},
		{"x€", []string{"<unk>"}, [][2]int{{0, 4}}},
	}

	for _, tt := range cases {
		t.Run(tt.word, func(t *testing.T) {
			pieces, err := u.Tokenize(tt.word)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.values, values(pieces)); diff != "" {
				t.Errorf("no match (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.spans, spans(pieces)); diff != "" {
				t.Errorf("no match (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnigramTie(t *testing.T) {
	u := newUnigram(t, false,
		Token{Value: "<unk>", ID: 0},
		Token{Value: "a", ID: 1, Score: -1},
		Token{Value: "b", ID: 2, Score: -1},
		Token{Value: "c", ID: 3, Score: -1},
		Token{Value: "ab", ID: 4, Score: -2},
		Token{Value: "bc", ID: 5, Score: -2},
	)

	// every segmentation ties; the shortest piece wins from the left
	cases := []struct {
		word string
		want []string
	}{
		{"ab", []string{"a", "b"}},
		{"bc", []string{"b", "c"}},
		{"abc", []string{"a", "b", "c"}},
		{"abcab", []string{"a", "b", "c", "a", "b"}},
	}

	for _, tt := range cases {
		t.Run(tt.word, func(t *testing.T) {
			pieces, err := u.Tokenize(tt.word)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, values(pieces)); diff != "" {
				t.Errorf("no match (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("higher score still wins", func(t *testing.T) {
		u := newUnigram(t, false,
			Token{Value: "<unk>", ID: 0},
			Token{Value: "a", ID: 1, Score: -1},
			Token{Value: "b", ID: 2, Score: -1},
			Token{Value: "ab", ID: 3, Score: -1.5},
		)

		pieces, err := u.Tokenize("ab")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"ab"}, values(pieces)); diff != "" {
			t.Errorf("no match (-want +got):\n%s", diff)
		}
	})
}

func TestUnigramByteFallback(t *testing.T) {
	entries := []Token{{Value: "<unk>", ID: 0}, {Value: "a", ID: 1, Score: -1}}
	for b := range 256 {
		entries = append(entries, Token{Value: fmt.Sprintf("<0x%02X>", b), ID: int32(len(entries)), Score: -20})
	}

	u := newUnigram(t, true, entries...)
	pieces, err := u.Tokenize("aé")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "<0xC3>", "<0xA9>"}, values(pieces)); diff != "" {
		t.Errorf("no match (-want +got):\n%s", diff)
	}
}

func TestWordLevel(t *testing.T) {
	v, err := NewVocabulary(KindWordLevel, tokens("[UNK]", "hello"), VocabularyOptions{UnkToken: "[UNK]"})
	if err != nil {
		t.Fatal(err)
	}

	wl := NewWordLevel(v)
	pieces, err := wl.Tokenize("hello")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Piece{{ID: 1, Value: "hello", Start: 0, End: 5}}, pieces); diff != "" {
		t.Errorf("no match (-want +got):\n%s", diff)
	}

	pieces, err = wl.Tokenize("bye")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Piece{{ID: 0, Value: "[UNK]", Start: 0, End: 3}}, pieces); diff != "" {
		t.Errorf("no match (-want +got):\n%s", diff)
	}
}
