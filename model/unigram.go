package model

import (
	"math"
	"slices"
	"unicode/utf8"

	"github.com/ollama/tokenizers/logutil"
)

const unigramUnknownTokenScorePenalty = 10.0

type UnigramOptions struct {
	ByteFallback bool
}

// Unigram picks the segmentation with the highest total log probability.
type Unigram struct {
	vocab        *Vocabulary
	opts         UnigramOptions
	tokenMatcher naiveTrie

	minScore          float64
	unknownTokenScore float64
}

func NewUnigram(vocab *Vocabulary, opts UnigramOptions) *Unigram {
	u := &Unigram{
		vocab:    vocab,
		opts:     opts,
		minScore: math.MaxFloat64,
	}

	for id, value := range vocab.values {
		if !vocab.present[id] {
			continue
		}

		u.minScore = min(u.minScore, vocab.scores[id])

		// aliases share the canonical id
		canonical, _ := vocab.ID(value)
		u.tokenMatcher.Insert(value, canonical)
	}

	u.unknownTokenScore = u.minScore - unigramUnknownTokenScorePenalty
	return u
}

func (*Unigram) model() {}

func (u *Unigram) Vocabulary() *Vocabulary {
	return u.vocab
}

// bestTokenization is the best segmentation of the suffix starting at an
// offset: its first piece ends at end.
type bestTokenization struct {
	tokenID  int32
	known    bool
	end      int
	scoreSum float64
}

// Tokenize runs the Viterbi search from the end of word so that, among
// equally scored segmentations, the shortest piece wins at the leftmost
// position where they differ.
func (u *Unigram) Tokenize(word string) ([]Piece, error) {
	if word == "" {
		return nil, nil
	}

	results := make([]bestTokenization, len(word)+1)
	for i := range results {
		results[i].scoreSum = math.Inf(-1)
	}
	results[len(word)].scoreSum = 0

	var starts []int
	for i := range word {
		starts = append(starts, i)
	}

	for _, inputOffset := range slices.Backward(starts) {
		_, size := utf8.DecodeRuneInString(word[inputOffset:])
		best := &results[inputOffset]

		singleCodepointTokenFound := false
		// candidates arrive shortest first; strictly greater keeps the shortest on ties
		u.tokenMatcher.Prefixes(word, inputOffset, func(end int, id int32) {
			if end-inputOffset == size {
				singleCodepointTokenFound = true
			}

			if challenger := u.vocab.Score(id) + results[end].scoreSum; challenger > best.scoreSum {
				*best = bestTokenization{tokenID: id, known: true, end: end, scoreSum: challenger}
			}
		})

		if !singleCodepointTokenFound {
			end := inputOffset + size
			if challenger := u.unknownTokenScore + results[end].scoreSum; challenger > best.scoreSum {
				*best = bestTokenization{end: end, scoreSum: challenger}
			}
		}
	}

	var pieces []Piece
	var known []bool
	for start := 0; start < len(word); start = results[start].end {
		best := results[start]
		value, _ := u.vocab.Token(best.tokenID)
		if !best.known {
			value = ""
		}
		pieces = append(pieces, Piece{ID: best.tokenID, Value: value, Start: start, End: best.end})
		known = append(known, best.known)
	}

	out := make([]Piece, 0, len(pieces))
	for i := 0; i < len(pieces); i++ {
		if known[i] {
			out = append(out, pieces[i])
			continue
		}

		// fuse the run of unknown characters
		j := i
		for j+1 < len(pieces) && !known[j+1] {
			j++
		}

		var err error
		if out, err = uncovered(out, u.vocab, u.opts.ByteFallback, word, pieces[i].Start, pieces[j].End); err != nil {
			return nil, err
		}
		i = j
	}

	logutil.Trace("unigram", "word", logutil.Text(word), "pieces", len(out), "score", results[0].scoreSum)
	return out, nil
}
