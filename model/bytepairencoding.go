package model

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"

	heap "github.com/emirpasic/gods/v2/trees/binaryheap"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ollama/tokenizers/envconfig"
	"github.com/ollama/tokenizers/logutil"
)

type BPEOptions struct {
	ContinuingSubwordPrefix string
	EndOfWordSuffix         string
	ByteFallback            bool
	// IgnoreMerges returns a word found verbatim in the vocabulary as a
	// single piece without applying merges.
	IgnoreMerges bool
	// CacheCapacity bounds the word cache. Negative uses
	// envconfig.BPECacheSize, zero disables caching.
	CacheCapacity int
}

type BytePairEncoding struct {
	vocab *Vocabulary
	opts  BPEOptions
	cache *lru.Cache[string, []Piece]
}

func NewBytePairEncoding(vocab *Vocabulary, opts BPEOptions) (*BytePairEncoding, error) {
	if opts.CacheCapacity < 0 {
		opts.CacheCapacity = envconfig.BPECacheSize
	}

	bpe := BytePairEncoding{vocab: vocab, opts: opts}
	if opts.CacheCapacity > 0 {
		cache, err := lru.New[string, []Piece](opts.CacheCapacity)
		if err != nil {
			return nil, err
		}
		bpe.cache = cache
	}

	return &bpe, nil
}

func (*BytePairEncoding) model() {}

func (bpe *BytePairEncoding) Vocabulary() *Vocabulary {
	return bpe.vocab
}

// symbol is a node in the doubly linked list of partially merged symbols
type symbol struct {
	p, n       int
	value      string
	start, end int
}

// pair is a candidate merge of adjacent symbols a and b
type pair struct {
	a, b  int
	rank  int
	value string
}

func (bpe *BytePairEncoding) Tokenize(word string) ([]Piece, error) {
	if word == "" {
		return nil, nil
	}

	if bpe.cache != nil {
		if pieces, ok := bpe.cache.Get(word); ok {
			return slices.Clone(pieces), nil
		}
	}

	pieces, err := bpe.tokenize(word)
	if err != nil {
		return nil, err
	}

	if bpe.cache != nil {
		bpe.cache.Add(word, slices.Clone(pieces))
	}

	logutil.Trace("bpe", "word", logutil.Text(word), "pieces", len(pieces))
	return pieces, nil
}

func (bpe *BytePairEncoding) tokenize(word string) ([]Piece, error) {
	prefix, suffix := bpe.opts.ContinuingSubwordPrefix, bpe.opts.EndOfWordSuffix

	if bpe.opts.IgnoreMerges {
		if id, ok := bpe.vocab.ID(word + suffix); ok {
			return []Piece{{ID: id, Value: word + suffix, Start: 0, End: len(word)}}, nil
		}
	}

	symbols := make([]symbol, 0, utf8.RuneCountInString(word))
	for i, r := range word {
		size := utf8.RuneLen(r)
		if r == utf8.RuneError {
			_, size = utf8.DecodeRuneInString(word[i:])
		}

		value := word[i : i+size]
		if i > 0 {
			value = prefix + value
		}
		if i+size == len(word) {
			value += suffix
		}

		symbols = append(symbols, symbol{
			p:     len(symbols) - 1,
			n:     len(symbols) + 1,
			value: value,
			start: i,
			end:   i + size,
		})
	}

	pairwise := func(a, b int) *pair {
		if a < 0 || b >= len(symbols) {
			return nil
		}

		left, right := symbols[a].value, symbols[b].value
		rank, ok := bpe.vocab.Rank(left, right)
		if !ok {
			return nil
		}

		return &pair{
			a:     a,
			b:     b,
			rank:  rank,
			value: left + strings.TrimPrefix(right, prefix),
		}
	}

	// lowest rank first; equal ranks resolve to the leftmost pair
	pairs := heap.NewWith(func(i, j *pair) int {
		if c := cmp.Compare(i.rank, j.rank); c != 0 {
			return c
		}
		return cmp.Compare(i.a, j.a)
	})

	for i := range len(symbols) - 1 {
		if pair := pairwise(i, i+1); pair != nil {
			pairs.Push(pair)
		}
	}

	for !pairs.Empty() {
		pair, _ := pairs.Pop()

		left, right := symbols[pair.a], symbols[pair.b]
		if left.value == "" || right.value == "" || left.n != pair.b ||
			left.value+strings.TrimPrefix(right.value, prefix) != pair.value {
			continue
		}

		if _, ok := bpe.vocab.ID(pair.value); !ok {
			continue
		}

		symbols[pair.a].value = pair.value
		symbols[pair.a].end = right.end
		symbols[pair.b].value = ""

		symbols[pair.a].n = right.n
		if right.n < len(symbols) {
			symbols[right.n].p = pair.a
		}

		if pair := pairwise(symbols[pair.a].p, pair.a); pair != nil {
			pairs.Push(pair)
		}

		if pair := pairwise(pair.a, symbols[pair.a].n); pair != nil {
			pairs.Push(pair)
		}
	}

	var pieces []Piece
	unknownStart := -1
	for i := 0; i < len(symbols); i = symbols[i].n {
		s := symbols[i]
		id, ok := bpe.vocab.ID(s.value)
		if !ok {
			if unknownStart < 0 {
				unknownStart = s.start
			}
			continue
		}

		if unknownStart >= 0 {
			var err error
			if pieces, err = uncovered(pieces, bpe.vocab, bpe.opts.ByteFallback, word, unknownStart, s.start); err != nil {
				return nil, err
			}
			unknownStart = -1
		}

		pieces = append(pieces, Piece{ID: id, Value: s.value, Start: s.start, End: s.end})
	}

	if unknownStart >= 0 {
		return uncovered(pieces, bpe.vocab, bpe.opts.ByteFallback, word, unknownStart, len(word))
	}

	return pieces, nil
}
