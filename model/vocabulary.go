package model

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var ErrMalformedVocabulary = errors.New("malformed vocabulary")

type Kind int

const (
	KindBPE Kind = iota
	KindWordPiece
	KindUnigram
	KindWordLevel
)

func (k Kind) String() string {
	switch k {
	case KindBPE:
		return "BPE"
	case KindWordPiece:
		return "WordPiece"
	case KindUnigram:
		return "Unigram"
	case KindWordLevel:
		return "WordLevel"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Token is one vocabulary entry. Score is only meaningful for Unigram.
type Token struct {
	Value string
	ID    int32
	Score float64
}

// Merge is a BPE rule joining Left and Right. Lower ranks apply first.
type Merge struct {
	Left, Right string
	Rank        int
}

type VocabularyOptions struct {
	// Merges is required for BPE. A nil slice means the table is absent.
	Merges []Merge
	// Scores marks Token.Score as populated; required for Unigram.
	Scores bool
	// UnkToken names the unknown token. Required for WordPiece.
	UnkToken string
	// ContinuingSubwordPrefix and EndOfWordSuffix decorate BPE symbols.
	ContinuingSubwordPrefix string
	EndOfWordSuffix         string
}

// Vocabulary is the immutable bidirectional token table shared by a model
// and every tokenizer built on it.
type Vocabulary struct {
	kind Kind

	values  []string
	present []bool
	scores  []float64
	ids     map[string]int32
	size    int

	unk         int32
	merges      map[[2]string]int
	bytes       [256]int32
	maxTokenLen int
}

// NewVocabulary validates tokens and builds the lookup tables.
func NewVocabulary(kind Kind, tokens []Token, opts VocabularyOptions) (*Vocabulary, error) {
	v := &Vocabulary{
		kind: kind,
		ids:  make(map[string]int32, len(tokens)),
		unk:  -1,
	}

	var maxID int32 = -1
	for _, t := range tokens {
		if t.ID < 0 {
			return nil, fmt.Errorf("%w: token %q has negative id %d", ErrMalformedVocabulary, t.Value, t.ID)
		}
		maxID = max(maxID, t.ID)
	}

	if holes := int(maxID) + 1 - len(tokens); holes > len(tokens) {
		return nil, fmt.Errorf("%w: %d ids span [0, %d]", ErrMalformedVocabulary, len(tokens), maxID)
	}

	v.values = make([]string, maxID+1)
	v.present = make([]bool, maxID+1)
	v.scores = make([]float64, maxID+1)
	for _, t := range tokens {
		if v.present[t.ID] {
			if v.values[t.ID] != t.Value {
				return nil, fmt.Errorf("%w: id %d maps to both %q and %q", ErrMalformedVocabulary, t.ID, v.values[t.ID], t.Value)
			}
			continue
		}

		v.values[t.ID] = t.Value
		v.present[t.ID] = true
		v.scores[t.ID] = t.Score
		v.size++

		// aliased surface forms resolve to the lowest id
		if id, ok := v.ids[t.Value]; !ok || t.ID < id {
			if ok {
				slog.Debug("aliased token", "token", t.Value, "ids", []int32{id, t.ID})
			}
			v.ids[t.Value] = t.ID
		}

		v.maxTokenLen = max(v.maxTokenLen, len(t.Value))
	}

	if opts.UnkToken != "" {
		id, ok := v.ids[opts.UnkToken]
		if !ok {
			return nil, fmt.Errorf("%w: unknown token %q is not in the vocabulary", ErrMalformedVocabulary, opts.UnkToken)
		}
		v.unk = id
	}

	for b := range v.bytes {
		v.bytes[b] = -1
		if id, ok := v.ids[fmt.Sprintf("<0x%02X>", b)]; ok {
			v.bytes[b] = id
		}
	}

	switch kind {
	case KindBPE:
		if opts.Merges == nil {
			return nil, fmt.Errorf("%w: BPE requires a merge table", ErrMalformedVocabulary)
		}

		v.merges = make(map[[2]string]int, len(opts.Merges))
		for _, m := range opts.Merges {
			if _, ok := v.ids[m.Left]; !ok {
				return nil, fmt.Errorf("%w: merge %q %q references unknown token %q", ErrMalformedVocabulary, m.Left, m.Right, m.Left)
			}
			if _, ok := v.ids[m.Right]; !ok {
				return nil, fmt.Errorf("%w: merge %q %q references unknown token %q", ErrMalformedVocabulary, m.Left, m.Right, m.Right)
			}

			merged := m.Left + strings.TrimPrefix(m.Right, opts.ContinuingSubwordPrefix)
			if _, ok := v.ids[merged]; !ok {
				return nil, fmt.Errorf("%w: merge %q %q produces unknown token %q", ErrMalformedVocabulary, m.Left, m.Right, merged)
			}

			key := [2]string{m.Left, m.Right}
			if rank, ok := v.merges[key]; !ok || m.Rank < rank {
				v.merges[key] = m.Rank
			}
		}
	case KindUnigram:
		if !opts.Scores {
			return nil, fmt.Errorf("%w: Unigram requires token scores", ErrMalformedVocabulary)
		}
		if v.size == 0 {
			return nil, fmt.Errorf("%w: Unigram vocabulary is empty", ErrMalformedVocabulary)
		}
	case KindWordPiece:
		if v.unk < 0 {
			return nil, fmt.Errorf("%w: WordPiece requires an unknown token", ErrMalformedVocabulary)
		}
	}

	return v, nil
}

func (v *Vocabulary) Kind() Kind {
	return v.kind
}

// ID returns the canonical id of s.
func (v *Vocabulary) ID(s string) (int32, bool) {
	id, ok := v.ids[s]
	return id, ok
}

func (v *Vocabulary) Token(id int32) (string, bool) {
	if id < 0 || int(id) >= len(v.values) || !v.present[id] {
		return "", false
	}
	return v.values[id], true
}

// Len is the number of distinct ids.
func (v *Vocabulary) Len() int {
	return v.size
}

func (v *Vocabulary) Unknown() (int32, bool) {
	return v.unk, v.unk >= 0
}

func (v *Vocabulary) Score(id int32) float64 {
	if id < 0 || int(id) >= len(v.scores) {
		return 0
	}
	return v.scores[id]
}

// Rank returns the rank of the merge (left, right).
func (v *Vocabulary) Rank(left, right string) (int, bool) {
	rank, ok := v.merges[[2]string{left, right}]
	return rank, ok
}

// ByteToken returns the id of the <0xNN> token for b.
func (v *Vocabulary) ByteToken(b byte) (int32, bool) {
	return v.bytes[b], v.bytes[b] >= 0
}

// MaxTokenLen is the length in bytes of the longest token.
func (v *Vocabulary) MaxTokenLen() int {
	return v.maxTokenLen
}

// Values returns a copy of the token to id map.
func (v *Vocabulary) Values() map[string]int32 {
	values := make(map[string]int32, len(v.ids))
	for s, id := range v.ids {
		values[s] = id
	}
	return values
}
