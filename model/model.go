// Package model holds the vocabulary store and the segmentation models that
// split a single pre-tokenized word into vocabulary pieces.
package model

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var ErrSegmentation = errors.New("segmentation failed")

// Piece is one token of a segmented word. Start and End are byte offsets
// into the word.
type Piece struct {
	ID         int32
	Value      string
	Start, End int
}

// Model segments words. The set of models is closed: BytePairEncoding,
// WordPiece, Unigram and WordLevel.
type Model interface {
	// Tokenize splits word into pieces that cover it exactly.
	Tokenize(word string) ([]Piece, error)
	Vocabulary() *Vocabulary

	model()
}

var (
	_ Model = (*BytePairEncoding)(nil)
	_ Model = (*WordPiece)(nil)
	_ Model = (*Unigram)(nil)
	_ Model = (*WordLevel)(nil)
)

// uncovered appends pieces for word[start:end], a run no vocabulary token
// covers. Characters whose bytes all have <0xNN> tokens become byte pieces
// when byteFallback is set; the remaining characters are fused into one
// unknown piece per contiguous run.
func uncovered(pieces []Piece, v *Vocabulary, byteFallback bool, word string, start, end int) ([]Piece, error) {
	unk, hasUnk := v.Unknown()
	fusing := false
	for i := start; i < end; {
		_, size := utf8.DecodeRuneInString(word[i:end])

		if byteFallback {
			if ids, ok := byteTokens(v, word[i:i+size]); ok {
				for j, id := range ids {
					pieces = append(pieces, Piece{ID: id, Value: fmt.Sprintf("<0x%02X>", word[i+j]), Start: i, End: i + size})
				}
				fusing = false
				i += size
				continue
			}
		}

		if !hasUnk {
			return nil, fmt.Errorf("%w: no token covers %q", ErrSegmentation, word[i:i+size])
		}

		if fusing {
			pieces[len(pieces)-1].End = i + size
		} else {
			value, _ := v.Token(unk)
			pieces = append(pieces, Piece{ID: unk, Value: value, Start: i, End: i + size})
			fusing = true
		}
		i += size
	}

	return pieces, nil
}

func byteTokens(v *Vocabulary, s string) ([]int32, bool) {
	ids := make([]int32, len(s))
	for i := range len(s) {
		id, ok := v.ByteToken(s[i])
		if !ok {
			return nil, false
		}
		ids[i] = id
	}
	return ids, true
}
