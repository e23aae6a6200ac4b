package model

import "fmt"

// WordLevel maps whole words to ids.
type WordLevel struct {
	vocab *Vocabulary
}

func NewWordLevel(vocab *Vocabulary) *WordLevel {
	return &WordLevel{vocab: vocab}
}

func (*WordLevel) model() {}

func (wl *WordLevel) Vocabulary() *Vocabulary {
	return wl.vocab
}

func (wl *WordLevel) Tokenize(word string) ([]Piece, error) {
	if word == "" {
		return nil, nil
	}

	if id, ok := wl.vocab.ID(word); ok {
		return []Piece{{ID: id, Value: word, Start: 0, End: len(word)}}, nil
	}

	unk, ok := wl.vocab.Unknown()
	if !ok {
		return nil, fmt.Errorf("%w: %q is not in the vocabulary", ErrSegmentation, word)
	}

	value, _ := wl.vocab.Token(unk)
	return []Piece{{ID: unk, Value: value, Start: 0, End: len(word)}}, nil
}
