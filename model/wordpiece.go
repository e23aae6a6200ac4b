package model

import (
	"unicode/utf8"

	"github.com/ollama/tokenizers/envconfig"
	"github.com/ollama/tokenizers/logutil"
)

type WordPieceOptions struct {
	// ContinuingSubwordPrefix marks non-initial pieces. Defaults to "##".
	ContinuingSubwordPrefix string
	// MaxInputCharsPerWord defaults to envconfig.MaxInputCharsPerWord.
	MaxInputCharsPerWord int
}

type WordPiece struct {
	vocab *Vocabulary
	opts  WordPieceOptions
}

func NewWordPiece(vocab *Vocabulary, opts WordPieceOptions) *WordPiece {
	if opts.ContinuingSubwordPrefix == "" {
		opts.ContinuingSubwordPrefix = "##"
	}
	if opts.MaxInputCharsPerWord <= 0 {
		opts.MaxInputCharsPerWord = envconfig.MaxInputCharsPerWord
	}

	return &WordPiece{vocab: vocab, opts: opts}
}

func (*WordPiece) model() {}

func (wpm *WordPiece) Vocabulary() *Vocabulary {
	return wpm.vocab
}

func (wpm *WordPiece) Prefix() string {
	return wpm.opts.ContinuingSubwordPrefix
}

func (wpm *WordPiece) unknown(word string) ([]Piece, error) {
	unk, _ := wpm.vocab.Unknown()
	value, _ := wpm.vocab.Token(unk)
	return []Piece{{ID: unk, Value: value, Start: 0, End: len(word)}}, nil
}

// Tokenize matches the longest vocabulary entry at each position. A word
// with any unmatched position is a single unknown piece.
func (wpm *WordPiece) Tokenize(word string) ([]Piece, error) {
	if word == "" {
		return nil, nil
	}

	if utf8.RuneCountInString(word) > wpm.opts.MaxInputCharsPerWord {
		return wpm.unknown(word)
	}

	prefix := wpm.opts.ContinuingSubwordPrefix
	maxLen := wpm.vocab.MaxTokenLen()

	var pieces []Piece
	for start := 0; start < len(word); {
		end := len(word)

		var piece *Piece
		for start < end {
			subword := word[start:end]
			if start > 0 {
				subword = prefix + subword
			}

			if len(subword) <= maxLen {
				if id, ok := wpm.vocab.ID(subword); ok {
					piece = &Piece{ID: id, Value: subword, Start: start, End: end}
					break
				}
			}

			_, size := utf8.DecodeLastRuneInString(word[start:end])
			end -= size
		}

		if piece == nil {
			logutil.Trace("wordpiece unknown", "word", logutil.Text(word), "at", start)
			return wpm.unknown(word)
		}

		pieces = append(pieces, *piece)
		start = end
	}

	return pieces, nil
}
