// Package tokenizer runs the encode and decode pipelines: added token
// extraction, normalization, pre-tokenization, segmentation, truncation,
// post-processing, padding and decoding.
package tokenizer

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/ollama/tokenizers/decoder"
	"github.com/ollama/tokenizers/envconfig"
	"github.com/ollama/tokenizers/logutil"
	"github.com/ollama/tokenizers/model"
	"github.com/ollama/tokenizers/normalize"
	"github.com/ollama/tokenizers/pretokenize"
)

// Config holds the optional pipeline stages around a model.
type Config struct {
	Normalizer    normalize.Normalizer
	PreTokenizer  pretokenize.PreTokenizer
	PostProcessor PostProcessor
	// Decoder defaults to the WordPiece decoder for WordPiece models and to
	// joining tokens with spaces otherwise.
	Decoder     decoder.Decoder
	AddedTokens []AddedToken
	Truncation  *Truncation
	Padding     *Padding
	// Parallelism bounds batch calls. Zero uses envconfig.NumParallel.
	Parallelism int
}

// Tokenizer is immutable after construction and safe for concurrent use.
type Tokenizer struct {
	model  model.Model
	vocab  *model.Vocabulary
	added  *addedVocabulary
	config Config
}

func New(m model.Model, cfg Config) (*Tokenizer, error) {
	vocab := m.Vocabulary()
	for _, t := range cfg.AddedTokens {
		if t.ID < 0 {
			return nil, fmt.Errorf("%w: added token %q has negative id %d", model.ErrMalformedVocabulary, t.Content, t.ID)
		}
		if s, ok := vocab.Token(t.ID); ok && s != t.Content {
			return nil, fmt.Errorf("%w: added token %q reuses id %d of %q", model.ErrMalformedVocabulary, t.Content, t.ID, s)
		}
	}

	added := newAddedVocabulary(cfg.AddedTokens)
	for _, t := range cfg.AddedTokens {
		if other := added.ids[t.ID]; other.Content != t.Content {
			return nil, fmt.Errorf("%w: id %d maps to both %q and %q", model.ErrMalformedVocabulary, t.ID, other.Content, t.Content)
		}
	}

	if tp, ok := cfg.PostProcessor.(*TemplateProcessing); ok {
		if err := tp.validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoad, err)
		}
	}

	if cfg.Decoder == nil {
		switch m := m.(type) {
		case *model.WordPiece:
			cfg.Decoder = decoder.WordPiece{Prefix: m.Prefix(), Cleanup: true}
		default:
			cfg.Decoder = decoder.Join{Separator: " "}
		}
	}

	return &Tokenizer{model: m, vocab: vocab, added: added, config: cfg}, nil
}

func (t *Tokenizer) Model() model.Model {
	return t.model
}

func (t *Tokenizer) Truncation() *Truncation {
	return t.config.Truncation
}

func (t *Tokenizer) Padding() *Padding {
	return t.config.Padding
}

func (t *Tokenizer) AddedTokens() []AddedToken {
	tokens := slices.Clone(t.added.tokens)
	slices.SortFunc(tokens, func(a, b AddedToken) int {
		return int(a.ID) - int(b.ID)
	})
	return tokens
}

// NumSpecialTokensToAdd is the number of tokens post-processing adds.
func (t *Tokenizer) NumSpecialTokensToAdd(pair bool) int {
	if t.config.PostProcessor == nil {
		return 0
	}
	return t.config.PostProcessor.AddedTokens(pair)
}

func (t *Tokenizer) TokenToID(token string) (int32, bool) {
	if id, ok := t.added.values[token]; ok {
		return id, true
	}
	return t.vocab.ID(token)
}

func (t *Tokenizer) IDToToken(id int32) (string, bool) {
	if token, ok := t.added.ids[id]; ok {
		return token.Content, true
	}
	return t.vocab.Token(id)
}

// VocabSize counts distinct ids, optionally including added tokens that
// are not part of the model vocabulary.
func (t *Tokenizer) VocabSize(withAdded bool) int {
	n := t.vocab.Len()
	if withAdded {
		for id := range t.added.ids {
			if _, ok := t.vocab.Token(id); !ok {
				n++
			}
		}
	}
	return n
}

func (t *Tokenizer) Vocab(withAdded bool) map[string]int32 {
	vocab := t.vocab.Values()
	if withAdded {
		maps.Copy(vocab, t.added.values)
	}
	return vocab
}

// encodeSequence runs one input through the pipeline up to segmentation.
func (t *Tokenizer) encodeSequence(text string, sequence int) (*Encoding, error) {
	var enc Encoding
	var word int
	for _, frag := range t.added.split(text) {
		if frag.token != nil {
			enc.push(frag.token.ID, frag.token.Content, Span{Start: frag.offset, End: frag.offset + len(frag.value)}, 0, false, word, sequence)
			word++
			continue
		}

		s := normalize.NewAt(frag.value, frag.offset)
		if t.config.Normalizer != nil {
			t.config.Normalizer.Normalize(s)
		}

		words := []*normalize.String{s}
		if t.config.PreTokenizer != nil {
			words = t.config.PreTokenizer.PreTokenize(s)
		}

		for _, w := range words {
			if w.Empty() {
				continue
			}

			pieces, err := t.model.Tokenize(w.String())
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
			}

			for _, p := range pieces {
				enc.push(p.ID, p.Value, w.Offsets(p.Start, p.End), 0, false, word, sequence)
			}
			word++
		}
	}

	return &enc, nil
}

func (t *Tokenizer) encode(text string, pair *string, addSpecialTokens bool) (*Encoding, error) {
	a, err := t.encodeSequence(text, 0)
	if err != nil {
		return nil, err
	}

	var b *Encoding
	if pair != nil {
		if b, err = t.encodeSequence(*pair, 1); err != nil {
			return nil, err
		}
	}

	if tr := t.config.Truncation; tr != nil {
		limit := tr.MaxLength
		if addSpecialTokens {
			limit -= t.NumSpecialTokensToAdd(pair != nil)
		}

		if err := tr.apply(a, b, max(limit, 0)); err != nil {
			return nil, err
		}
	}

	var enc *Encoding
	if addSpecialTokens && t.config.PostProcessor != nil {
		enc = t.config.PostProcessor.Process(a, b)
	} else {
		enc = merge(a, b)
	}

	if p := t.config.Padding; p != nil && p.Strategy == Fixed {
		p.pad(enc, p.target(enc.Len()))
	}

	logutil.Trace("encoded", "text", logutil.Text(text), "ids", logutil.IDs(enc.IDs))
	return enc, nil
}

// Encode turns text into token ids, offsets and masks.
func (t *Tokenizer) Encode(text string, addSpecialTokens bool) (*Encoding, error) {
	return t.encode(text, nil, addSpecialTokens)
}

// EncodePair encodes two inputs as one sequence, e.g. question and context.
func (t *Tokenizer) EncodePair(text, pair string, addSpecialTokens bool) (*Encoding, error) {
	return t.encode(text, &pair, addSpecialTokens)
}

func (t *Tokenizer) parallelism() int {
	if t.config.Parallelism > 0 {
		return t.config.Parallelism
	}
	return max(envconfig.NumParallel, 1)
}

// batch runs fn for every index with bounded parallelism. The first error
// cancels the items that have not started and is returned.
func (t *Tokenizer) batch(n int, fn func(i int) error) error {
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(t.parallelism())
	for i := range n {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := fn(i); err != nil {
				return fmt.Errorf("batch item %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// EncodeBatch encodes every text. The result order matches the input and
// any failing item fails the whole batch.
func (t *Tokenizer) EncodeBatch(texts []string, addSpecialTokens bool) ([]*Encoding, error) {
	encodings := make([]*Encoding, len(texts))
	if err := t.batch(len(texts), func(i int) error {
		enc, err := t.Encode(texts[i], addSpecialTokens)
		if err != nil {
			return err
		}

		encodings[i] = enc
		return nil
	}); err != nil {
		slog.Debug("batch encode failed", "size", len(texts), "error", err)
		return nil, err
	}

	if p := t.config.Padding; p != nil && p.Strategy == BatchLongest {
		var longest int
		for _, enc := range encodings {
			longest = max(longest, enc.Len())
		}

		target := p.target(longest)
		for _, enc := range encodings {
			p.pad(enc, target)
		}
	}

	return encodings, nil
}

// Decode turns ids back into text. Every id must be known to the
// tokenizer.
func (t *Tokenizer) Decode(ids []int32, skipSpecialTokens bool) (string, error) {
	tokens := make([]string, 0, len(ids))
	for _, id := range ids {
		token, ok := t.IDToToken(id)
		if !ok {
			return "", fmt.Errorf("%w: id %d is not in the vocabulary", ErrDecoding, id)
		}

		if skipSpecialTokens && t.added.isSpecial(id) {
			continue
		}
		tokens = append(tokens, token)
	}

	s := decoder.Decode(t.config.Decoder, tokens)
	logutil.Trace("decoded", "text", logutil.Text(s), "ids", logutil.IDs(ids))
	return s, nil
}

// DecodeBatch decodes every id sequence with the same all-or-nothing
// policy as EncodeBatch.
func (t *Tokenizer) DecodeBatch(ids [][]int32, skipSpecialTokens bool) ([]string, error) {
	texts := make([]string, len(ids))
	if err := t.batch(len(ids), func(i int) error {
		s, err := t.Decode(ids[i], skipSpecialTokens)
		if err != nil {
			return err
		}

		texts[i] = s
		return nil
	}); err != nil {
		return nil, err
	}

	return texts, nil
}
