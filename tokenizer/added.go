package tokenizer

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// AddedToken is a token matched verbatim in the input before
// normalization. Special tokens are dropped by Decode when asked to skip
// special tokens.
type AddedToken struct {
	ID      int32
	Content string
	Special bool
	// SingleWord only matches when not surrounded by word characters.
	SingleWord bool
	// LStrip and RStrip absorb the whitespace to the left or right.
	LStrip, RStrip bool
	Normalized     bool
}

type addedVocabulary struct {
	// tokens are ordered longest content first
	tokens []AddedToken
	ids    map[int32]*AddedToken
	values map[string]int32
}

func newAddedVocabulary(tokens []AddedToken) *addedVocabulary {
	av := addedVocabulary{
		tokens: slices.Clone(tokens),
		ids:    make(map[int32]*AddedToken, len(tokens)),
		values: make(map[string]int32, len(tokens)),
	}

	slices.SortStableFunc(av.tokens, func(a, b AddedToken) int {
		return cmp.Compare(len(b.Content), len(a.Content))
	})

	for i := range av.tokens {
		t := &av.tokens[i]
		av.ids[t.ID] = t
		if id, ok := av.values[t.Content]; !ok || t.ID < id {
			av.values[t.Content] = t.ID
		}
	}

	return &av
}

func (av *addedVocabulary) isSpecial(id int32) bool {
	t, ok := av.ids[id]
	return ok && t.Special
}

// fragment is a piece of the input with its byte offset. A fragment with a
// token is an added token match.
type fragment struct {
	value  string
	offset int
	token  *AddedToken
}

// split splits s into fragments, extracting added tokens. Longer tokens
// are extracted first so they win over tokens they contain.
func (av *addedVocabulary) split(s string) []fragment {
	fragments := []fragment{{value: s}}
	for k := range av.tokens {
		token := &av.tokens[k]
		if token.Content == "" || !strings.Contains(s, token.Content) {
			continue
		}

		for i := 0; i < len(fragments); i++ {
			frag := fragments[i]
			if frag.token != nil {
				continue
			}

			start, end, ok := token.find(frag.value)
			if !ok {
				continue
			}

			var middle []fragment
			if start > 0 {
				middle = append(middle, fragment{value: frag.value[:start], offset: frag.offset})
			}

			middle = append(middle, fragment{value: frag.value[start:end], offset: frag.offset + start, token: token})
			if end < len(frag.value) {
				middle = append(middle, fragment{value: frag.value[end:], offset: frag.offset + end})
			}

			fragments = slices.Replace(fragments, i, i+1, middle...)
		}
	}

	return fragments
}

// find returns the span of the first acceptable match of t in s, widened by
// any stripped whitespace.
func (t *AddedToken) find(s string) (int, int, bool) {
	for from := 0; from < len(s); {
		idx := strings.Index(s[from:], t.Content)
		if idx < 0 {
			return 0, 0, false
		}

		start, end := from+idx, from+idx+len(t.Content)
		if t.SingleWord && !isWordBoundary(s, start, end) {
			from = start + 1
			continue
		}

		if t.LStrip {
			start = len(strings.TrimRightFunc(s[:start], unicode.IsSpace))
		}
		if t.RStrip {
			end = len(s) - len(strings.TrimLeftFunc(s[end:], unicode.IsSpace))
		}
		return start, end, true
	}

	return 0, 0, false
}

func isWordChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isWordBoundary(s string, start, end int) bool {
	if before, _ := utf8.DecodeLastRuneInString(s[:start]); start > 0 && isWordChar(before) {
		return false
	}
	if after, _ := utf8.DecodeRuneInString(s[end:]); end < len(s) && isWordChar(after) {
		return false
	}
	return true
}
