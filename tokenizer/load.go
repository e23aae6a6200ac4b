package tokenizer

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
	"golang.org/x/text/unicode/norm"

	"github.com/ollama/tokenizers/decoder"
	"github.com/ollama/tokenizers/model"
	"github.com/ollama/tokenizers/normalize"
	"github.com/ollama/tokenizers/pretokenize"
)

// component is a typed pipeline stage as it appears in tokenizer.json.
type component map[string]any

func (c component) kind() string {
	s, _ := c["type"].(string)
	return s
}

func (c component) decode(out any) error {
	return decode(map[string]any(c), out)
}

// decode copies loosely typed JSON values into out using its json tags.
func decode(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

// children returns the nested components under key, as used by Sequence.
func (c component) children(key string) ([]component, error) {
	var children []component
	items, _ := c[key].([]any)
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: expected an object, got %T", key, item)
		}
		children = append(children, component(m))
	}
	return children, nil
}

type tokenizerFile struct {
	Version       string          `json:"version"`
	Truncation    *truncationFile `json:"truncation"`
	Padding       *paddingFile    `json:"padding"`
	AddedTokens   []addedToken    `json:"added_tokens"`
	Normalizer    component       `json:"normalizer"`
	PreTokenizer  component       `json:"pre_tokenizer"`
	PostProcessor component       `json:"post_processor"`
	Decoder       component       `json:"decoder"`
	Model         json.RawMessage `json:"model"`
}

type addedToken struct {
	ID         int32  `json:"id"`
	Content    string `json:"content"`
	SingleWord bool   `json:"single_word"`
	LStrip     bool   `json:"lstrip"`
	RStrip     bool   `json:"rstrip"`
	Normalized bool   `json:"normalized"`
	Special    bool   `json:"special"`
}

type truncationFile struct {
	MaxLength int    `json:"max_length"`
	Stride    int    `json:"stride"`
	Strategy  string `json:"strategy"`
	Direction string `json:"direction"`
}

type paddingFile struct {
	Strategy        json.RawMessage `json:"strategy"`
	Direction       string          `json:"direction"`
	PadToMultipleOf *int            `json:"pad_to_multiple_of"`
	PadID           int32           `json:"pad_id"`
	PadTypeID       uint32          `json:"pad_type_id"`
	PadToken        string          `json:"pad_token"`
}

type modelFile struct {
	Type                    string          `json:"type"`
	Vocab                   json.RawMessage `json:"vocab"`
	Merges                  json.RawMessage `json:"merges"`
	UnkToken                *string         `json:"unk_token"`
	UnkID                   *int32          `json:"unk_id"`
	ContinuingSubwordPrefix *string         `json:"continuing_subword_prefix"`
	EndOfWordSuffix         *string         `json:"end_of_word_suffix"`
	MaxInputCharsPerWord    int             `json:"max_input_chars_per_word"`
	ByteFallback            bool            `json:"byte_fallback"`
	IgnoreMerges            bool            `json:"ignore_merges"`
	Dropout                 *float64        `json:"dropout"`
}

// Load reads a tokenizer.json file.
func Load(path string) (*Tokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	t, err := LoadBytes(data)
	if err != nil {
		return nil, err
	}

	slog.Debug("loaded tokenizer", "path", path, "model", t.vocab.Kind(), "vocab", t.VocabSize(true))
	return t, nil
}

// LoadBytes parses a tokenizer.json document.
func LoadBytes(data []byte) (*Tokenizer, error) {
	t, err := load(data)
	if err != nil {
		if errors.Is(err, ErrLoad) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	return t, nil
}

func load(data []byte) (*Tokenizer, error) {
	var f tokenizerFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	if len(f.Model) == 0 || bytes.Equal(f.Model, []byte("null")) {
		return nil, errors.New("missing model")
	}

	m, err := loadModel(f.Model)
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	var cfg Config
	for _, t := range f.AddedTokens {
		cfg.AddedTokens = append(cfg.AddedTokens, AddedToken{
			ID:         t.ID,
			Content:    t.Content,
			Special:    t.Special,
			SingleWord: t.SingleWord,
			LStrip:     t.LStrip,
			RStrip:     t.RStrip,
			Normalized: t.Normalized,
		})
	}

	if f.Normalizer != nil {
		if cfg.Normalizer, err = loadNormalizer(f.Normalizer); err != nil {
			return nil, fmt.Errorf("normalizer: %w", err)
		}
	}

	if f.PreTokenizer != nil {
		if cfg.PreTokenizer, err = loadPreTokenizer(f.PreTokenizer); err != nil {
			return nil, fmt.Errorf("pre_tokenizer: %w", err)
		}
	}

	if f.PostProcessor != nil {
		if cfg.PostProcessor, err = loadPostProcessor(f.PostProcessor, m.Vocabulary()); err != nil {
			return nil, fmt.Errorf("post_processor: %w", err)
		}
	}

	if f.Decoder != nil {
		if cfg.Decoder, err = loadDecoder(f.Decoder); err != nil {
			return nil, fmt.Errorf("decoder: %w", err)
		}
	}

	if tr := f.Truncation; tr != nil {
		strategy, err := ParseTruncationStrategy(tr.Strategy)
		if err != nil {
			return nil, fmt.Errorf("truncation: %w", err)
		}

		direction, err := ParseDirection(tr.Direction)
		if err != nil {
			return nil, fmt.Errorf("truncation: %w", err)
		}

		cfg.Truncation = &Truncation{MaxLength: tr.MaxLength, Stride: tr.Stride, Strategy: strategy, Direction: direction}
	}

	if p := f.Padding; p != nil {
		if cfg.Padding, err = loadPadding(p); err != nil {
			return nil, fmt.Errorf("padding: %w", err)
		}
	}

	return New(m, cfg)
}

func loadPadding(p *paddingFile) (*Padding, error) {
	direction, err := ParseDirection(p.Direction)
	if err != nil {
		return nil, err
	}

	padding := Padding{
		Direction: direction,
		PadID:     p.PadID,
		PadTypeID: p.PadTypeID,
		PadToken:  p.PadToken,
	}

	if p.PadToMultipleOf != nil {
		padding.PadToMultipleOf = *p.PadToMultipleOf
	}

	var strategy string
	var fixed struct {
		Fixed *int `json:"Fixed"`
	}
	switch {
	case len(p.Strategy) == 0:
	case json.Unmarshal(p.Strategy, &strategy) == nil:
		if strategy != "BatchLongest" {
			return nil, fmt.Errorf("unknown padding strategy %q", strategy)
		}
	case json.Unmarshal(p.Strategy, &fixed) == nil && fixed.Fixed != nil:
		padding.Strategy = Fixed
		padding.Length = *fixed.Fixed
	default:
		return nil, fmt.Errorf("unknown padding strategy %s", p.Strategy)
	}

	return &padding, nil
}

// MarshalJSON writes the tokenizer.json form.
func (t Truncation) MarshalJSON() ([]byte, error) {
	return json.Marshal(truncationFile{
		MaxLength: t.MaxLength,
		Stride:    t.Stride,
		Strategy:  t.Strategy.String(),
		Direction: t.Direction.String(),
	})
}

// MarshalJSON writes the tokenizer.json form, where the strategy is either
// "BatchLongest" or {"Fixed": length}.
func (p Padding) MarshalJSON() ([]byte, error) {
	strategy, err := json.Marshal(p.Strategy.String())
	if p.Strategy == Fixed {
		strategy, err = json.Marshal(map[string]int{"Fixed": p.Length})
	}
	if err != nil {
		return nil, err
	}

	f := paddingFile{
		Strategy:  strategy,
		Direction: p.Direction.String(),
		PadID:     p.PadID,
		PadTypeID: p.PadTypeID,
		PadToken:  p.PadToken,
	}
	if p.PadToMultipleOf > 0 {
		f.PadToMultipleOf = &p.PadToMultipleOf
	}
	return json.Marshal(f)
}

func (t AddedToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(addedToken{
		ID:         t.ID,
		Content:    t.Content,
		SingleWord: t.SingleWord,
		LStrip:     t.LStrip,
		RStrip:     t.RStrip,
		Normalized: t.Normalized,
		Special:    t.Special,
	})
}

func loadModel(data json.RawMessage) (model.Model, error) {
	var f modelFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	if f.Type == "" {
		// older files omit the type
		switch {
		case len(f.Merges) > 0:
			f.Type = "BPE"
		case bytes.HasPrefix(bytes.TrimSpace(f.Vocab), []byte("[")):
			f.Type = "Unigram"
		case f.ContinuingSubwordPrefix != nil || f.MaxInputCharsPerWord > 0:
			f.Type = "WordPiece"
		default:
			f.Type = "WordLevel"
		}
	}

	switch f.Type {
	case "BPE":
		return loadBPE(&f)
	case "WordPiece":
		return loadWordPiece(&f)
	case "Unigram":
		return loadUnigram(&f)
	case "WordLevel":
		tokens, err := vocabMap(f.Vocab)
		if err != nil {
			return nil, err
		}

		vocab, err := model.NewVocabulary(model.KindWordLevel, tokens, model.VocabularyOptions{UnkToken: deref(f.UnkToken)})
		if err != nil {
			return nil, err
		}
		return model.NewWordLevel(vocab), nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", f.Type)
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func vocabMap(data json.RawMessage) ([]model.Token, error) {
	var vocab map[string]int32
	if err := json.Unmarshal(data, &vocab); err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}

	tokens := make([]model.Token, 0, len(vocab))
	for value, id := range vocab {
		tokens = append(tokens, model.Token{Value: value, ID: id})
	}

	slices.SortFunc(tokens, func(a, b model.Token) int {
		return cmp.Or(cmp.Compare(a.ID, b.ID), strings.Compare(a.Value, b.Value))
	})
	return tokens, nil
}

// parseMerges accepts both ["a b", ...] and [["a", "b"], ...].
func parseMerges(data json.RawMessage) ([]model.Merge, error) {
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var pairs [][2]string
	if err := json.Unmarshal(data, &pairs); err != nil {
		var lines []string
		if err := json.Unmarshal(data, &lines); err != nil {
			return nil, fmt.Errorf("merges: %w", err)
		}

		pairs = make([][2]string, len(lines))
		for i, line := range lines {
			left, right, ok := strings.Cut(line, " ")
			if !ok {
				return nil, fmt.Errorf("merges: invalid merge %q", line)
			}
			pairs[i] = [2]string{left, right}
		}
	}

	merges := make([]model.Merge, len(pairs))
	for i, p := range pairs {
		merges[i] = model.Merge{Left: p[0], Right: p[1], Rank: i}
	}
	return merges, nil
}

func loadBPE(f *modelFile) (model.Model, error) {
	tokens, err := vocabMap(f.Vocab)
	if err != nil {
		return nil, err
	}

	merges, err := parseMerges(f.Merges)
	if err != nil {
		return nil, err
	}

	if merges == nil && len(f.Merges) > 0 {
		merges = []model.Merge{}
	}

	if f.Dropout != nil && *f.Dropout > 0 {
		slog.Warn("ignoring BPE dropout", "dropout", *f.Dropout)
	}

	vocab, err := model.NewVocabulary(model.KindBPE, tokens, model.VocabularyOptions{
		Merges:                  merges,
		UnkToken:                deref(f.UnkToken),
		ContinuingSubwordPrefix: deref(f.ContinuingSubwordPrefix),
		EndOfWordSuffix:         deref(f.EndOfWordSuffix),
	})
	if err != nil {
		return nil, err
	}

	return model.NewBytePairEncoding(vocab, model.BPEOptions{
		ContinuingSubwordPrefix: deref(f.ContinuingSubwordPrefix),
		EndOfWordSuffix:         deref(f.EndOfWordSuffix),
		ByteFallback:            f.ByteFallback,
		IgnoreMerges:            f.IgnoreMerges,
		CacheCapacity:           -1,
	})
}

func loadWordPiece(f *modelFile) (model.Model, error) {
	tokens, err := vocabMap(f.Vocab)
	if err != nil {
		return nil, err
	}

	unk := deref(f.UnkToken)
	if unk == "" {
		unk = "[UNK]"
	}

	vocab, err := model.NewVocabulary(model.KindWordPiece, tokens, model.VocabularyOptions{UnkToken: unk})
	if err != nil {
		return nil, err
	}

	return model.NewWordPiece(vocab, model.WordPieceOptions{
		ContinuingSubwordPrefix: deref(f.ContinuingSubwordPrefix),
		MaxInputCharsPerWord:    f.MaxInputCharsPerWord,
	}), nil
}

func loadUnigram(f *modelFile) (model.Model, error) {
	var entries [][2]any
	if err := json.Unmarshal(f.Vocab, &entries); err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}

	tokens := make([]model.Token, len(entries))
	for i, e := range entries {
		value, ok := e[0].(string)
		if !ok {
			return nil, fmt.Errorf("vocab: entry %d: expected a string token, got %T", i, e[0])
		}

		score, ok := e[1].(float64)
		if !ok {
			return nil, fmt.Errorf("vocab: entry %d: expected a numeric score, got %T", i, e[1])
		}

		tokens[i] = model.Token{Value: value, ID: int32(i), Score: score}
	}

	var unk string
	if f.UnkID != nil {
		if *f.UnkID < 0 || int(*f.UnkID) >= len(tokens) {
			return nil, fmt.Errorf("%w: unk_id %d is out of range", model.ErrMalformedVocabulary, *f.UnkID)
		}
		unk = tokens[*f.UnkID].Value
	}

	vocab, err := model.NewVocabulary(model.KindUnigram, tokens, model.VocabularyOptions{Scores: true, UnkToken: unk})
	if err != nil {
		return nil, err
	}

	return model.NewUnigram(vocab, model.UnigramOptions{ByteFallback: f.ByteFallback}), nil
}

// pattern is {"String": "..."} or {"Regex": "..."}.
type pattern struct {
	String *string `json:"String"`
	Regex  *string `json:"Regex"`
}

func (p pattern) value() (string, bool, error) {
	switch {
	case p.Regex != nil:
		return *p.Regex, true, nil
	case p.String != nil:
		return *p.String, false, nil
	default:
		return "", false, errors.New("pattern must be a String or a Regex")
	}
}

func loadNormalizer(c component) (normalize.Normalizer, error) {
	switch c.kind() {
	case "Sequence":
		children, err := c.children("normalizers")
		if err != nil {
			return nil, err
		}

		var seq normalize.Sequence
		for _, child := range children {
			n, err := loadNormalizer(child)
			if err != nil {
				return nil, err
			}
			if n != nil {
				seq = append(seq, n)
			}
		}
		return seq, nil
	case "Lowercase":
		return normalize.Lowercase{}, nil
	case "NFC":
		return normalize.Unicode{Form: norm.NFC}, nil
	case "NFD":
		return normalize.Unicode{Form: norm.NFD}, nil
	case "NFKC":
		return normalize.Unicode{Form: norm.NFKC}, nil
	case "NFKD":
		return normalize.Unicode{Form: norm.NFKD}, nil
	case "StripAccents":
		return normalize.StripAccents{}, nil
	case "Nmt":
		return normalize.Nmt{}, nil
	case "ByteLevel":
		return normalize.ByteLevel{}, nil
	case "Strip":
		var cfg struct {
			Left  bool `json:"strip_left"`
			Right bool `json:"strip_right"`
		}
		if err := c.decode(&cfg); err != nil {
			return nil, err
		}
		return normalize.Strip{Left: cfg.Left, Right: cfg.Right}, nil
	case "Prepend":
		var cfg struct {
			Prepend string `json:"prepend"`
		}
		if err := c.decode(&cfg); err != nil {
			return nil, err
		}
		return normalize.Prepend{Prefix: cfg.Prepend}, nil
	case "Replace":
		var cfg struct {
			Pattern pattern `json:"pattern"`
			Content string  `json:"content"`
		}
		if err := c.decode(&cfg); err != nil {
			return nil, err
		}

		p, regex, err := cfg.Pattern.value()
		if err != nil {
			return nil, err
		}
		return normalize.NewReplace(p, regex, cfg.Content)
	case "BertNormalizer":
		cfg := struct {
			CleanText          bool  `json:"clean_text"`
			HandleChineseChars bool  `json:"handle_chinese_chars"`
			StripAccents       *bool `json:"strip_accents"`
			Lowercase          bool  `json:"lowercase"`
		}{CleanText: true, HandleChineseChars: true, Lowercase: true}
		if err := c.decode(&cfg); err != nil {
			return nil, err
		}
		return normalize.Bert(cfg), nil
	case "Precompiled":
		// the SentencePiece charsmap is largely NFKC
		slog.Warn("approximating Precompiled normalizer with NFKC")
		return normalize.Unicode{Form: norm.NFKC}, nil
	default:
		return nil, fmt.Errorf("unsupported normalizer %q", c.kind())
	}
}

func loadPreTokenizer(c component) (pretokenize.PreTokenizer, error) {
	switch c.kind() {
	case "Sequence":
		children, err := c.children("pretokenizers")
		if err != nil {
			return nil, err
		}

		var seq pretokenize.Sequence
		for _, child := range children {
			p, err := loadPreTokenizer(child)
			if err != nil {
				return nil, err
			}
			seq = append(seq, p)
		}
		return seq, nil
	case "Whitespace":
		return pretokenize.Whitespace{}, nil
	case "WhitespaceSplit":
		return pretokenize.WhitespaceSplit{}, nil
	case "BertPreTokenizer":
		return pretokenize.Bert{}, nil
	case "Punctuation":
		var cfg struct {
			Behavior string `json:"behavior"`
		}
		if err := c.decode(&cfg); err != nil {
			return nil, err
		}

		behavior, err := pretokenize.ParseBehavior(cfg.Behavior)
		if err != nil {
			return nil, err
		}
		return pretokenize.Punctuation{Behavior: behavior}, nil
	case "Digits":
		var cfg struct {
			IndividualDigits bool `json:"individual_digits"`
		}
		if err := c.decode(&cfg); err != nil {
			return nil, err
		}
		return pretokenize.Digits{IndividualDigits: cfg.IndividualDigits}, nil
	case "Metaspace":
		cfg := struct {
			Replacement    string `json:"replacement"`
			PrependScheme  string `json:"prepend_scheme"`
			AddPrefixSpace *bool  `json:"add_prefix_space"`
			Split          bool   `json:"split"`
		}{Split: true}
		if err := c.decode(&cfg); err != nil {
			return nil, err
		}

		scheme, err := pretokenize.ParsePrependScheme(cfg.PrependScheme)
		if err != nil {
			return nil, err
		}
		if cfg.PrependScheme == "" && cfg.AddPrefixSpace != nil && !*cfg.AddPrefixSpace {
			scheme = pretokenize.PrependNever
		}
		return pretokenize.Metaspace{Replacement: cfg.Replacement, PrependScheme: scheme, Split: cfg.Split}, nil
	case "ByteLevel":
		cfg := struct {
			AddPrefixSpace bool `json:"add_prefix_space"`
			UseRegex       bool `json:"use_regex"`
		}{AddPrefixSpace: true, UseRegex: true}
		if err := c.decode(&cfg); err != nil {
			return nil, err
		}
		return pretokenize.ByteLevel{AddPrefixSpace: cfg.AddPrefixSpace, UseRegex: cfg.UseRegex}, nil
	case "Split":
		var cfg struct {
			Pattern  pattern `json:"pattern"`
			Behavior string  `json:"behavior"`
			Invert   bool    `json:"invert"`
		}
		if err := c.decode(&cfg); err != nil {
			return nil, err
		}

		p, regex, err := cfg.Pattern.value()
		if err != nil {
			return nil, err
		}

		behavior, err := pretokenize.ParseBehavior(cfg.Behavior)
		if err != nil {
			return nil, err
		}
		return pretokenize.NewSplit(p, regex, behavior, cfg.Invert)
	case "CharDelimiterSplit":
		var cfg struct {
			Delimiter string `json:"delimiter"`
		}
		if err := c.decode(&cfg); err != nil {
			return nil, err
		}

		if utf8.RuneCountInString(cfg.Delimiter) != 1 {
			return nil, fmt.Errorf("delimiter %q is not a single character", cfg.Delimiter)
		}

		r, _ := utf8.DecodeRuneInString(cfg.Delimiter)
		return pretokenize.CharDelimiterSplit{Delimiter: r}, nil
	default:
		return nil, fmt.Errorf("unsupported pre-tokenizer %q", c.kind())
	}
}

type templatePiece struct {
	SpecialToken *struct {
		ID     string `json:"id"`
		TypeID uint32 `json:"type_id"`
	} `json:"SpecialToken"`
	Sequence *struct {
		ID     string `json:"id"`
		TypeID uint32 `json:"type_id"`
	} `json:"Sequence"`
}

// template accepts the string form or the list of pieces.
func template(v any) ([]TemplatePiece, error) {
	if s, ok := v.(string); ok {
		return ParseTemplate(s)
	}

	var raw []templatePiece
	if err := decode(v, &raw); err != nil {
		return nil, err
	}

	pieces := make([]TemplatePiece, 0, len(raw))
	for _, p := range raw {
		switch {
		case p.SpecialToken != nil:
			pieces = append(pieces, TemplatePiece{Special: p.SpecialToken.ID, TypeID: p.SpecialToken.TypeID})
		case p.Sequence != nil:
			pieces = append(pieces, TemplatePiece{Sequence: p.Sequence.ID, TypeID: p.Sequence.TypeID})
		default:
			return nil, errors.New("template piece must be a SpecialToken or a Sequence")
		}
	}
	return pieces, nil
}

// tokenRef is the ["[CLS]", 101] form used by BertProcessing.
func tokenRef(v any) (string, int32, error) {
	items, ok := v.([]any)
	if !ok || len(items) != 2 {
		return "", 0, fmt.Errorf("expected [token, id], got %v", v)
	}

	token, ok := items[0].(string)
	if !ok {
		return "", 0, fmt.Errorf("expected a token string, got %T", items[0])
	}

	id, ok := items[1].(float64)
	if !ok {
		return "", 0, fmt.Errorf("expected an id, got %T", items[1])
	}
	return token, int32(id), nil
}

func loadPostProcessor(c component, vocab *model.Vocabulary) (PostProcessor, error) {
	switch c.kind() {
	case "TemplateProcessing":
		single, err := template(c["single"])
		if err != nil {
			return nil, fmt.Errorf("single: %w", err)
		}

		pair, err := template(c["pair"])
		if err != nil {
			return nil, fmt.Errorf("pair: %w", err)
		}

		if len(pair) == 0 {
			pair = append(slices.Clone(single), TemplatePiece{Sequence: "B", TypeID: 1})
		}

		var cfg struct {
			SpecialTokens map[string]SpecialToken `json:"special_tokens"`
		}
		if err := c.decode(&cfg); err != nil {
			return nil, err
		}

		// tokens omitted from special_tokens resolve through the vocabulary
		special := cfg.SpecialTokens
		if special == nil {
			special = make(map[string]SpecialToken)
		}
		for _, p := range slices.Concat(single, pair) {
			if _, ok := special[p.Special]; p.Special == "" || ok {
				continue
			}
			if id, ok := vocab.ID(p.Special); ok {
				special[p.Special] = SpecialToken{ID: p.Special, IDs: []int32{id}, Tokens: []string{p.Special}}
			}
		}

		return &TemplateProcessing{Single: single, Pair: pair, Special: special}, nil
	case "BertProcessing", "RobertaProcessing":
		sep, sepID, err := tokenRef(c["sep"])
		if err != nil {
			return nil, fmt.Errorf("sep: %w", err)
		}

		cls, clsID, err := tokenRef(c["cls"])
		if err != nil {
			return nil, fmt.Errorf("cls: %w", err)
		}

		if c.kind() == "BertProcessing" {
			return NewBertProcessing(cls, sep, clsID, sepID), nil
		}
		return NewRobertaProcessing(cls, sep, clsID, sepID), nil
	case "ByteLevel":
		slog.Debug("ignoring ByteLevel post-processor")
		return nil, nil
	case "Sequence":
		children, err := c.children("processors")
		if err != nil {
			return nil, err
		}

		var processor PostProcessor
		for _, child := range children {
			p, err := loadPostProcessor(child, vocab)
			if err != nil {
				return nil, err
			}
			if p != nil {
				processor = p
			}
		}
		return processor, nil
	default:
		return nil, fmt.Errorf("unsupported post-processor %q", c.kind())
	}
}

func loadDecoder(c component) (decoder.Decoder, error) {
	switch c.kind() {
	case "Sequence":
		children, err := c.children("decoders")
		if err != nil {
			return nil, err
		}

		var seq decoder.Sequence
		for _, child := range children {
			d, err := loadDecoder(child)
			if err != nil {
				return nil, err
			}
			seq = append(seq, d)
		}
		return seq, nil
	case "WordPiece":
		cfg := struct {
			Prefix  string `json:"prefix"`
			Cleanup bool   `json:"cleanup"`
		}{Prefix: "##", Cleanup: true}
		if err := c.decode(&cfg); err != nil {
			return nil, err
		}
		return decoder.WordPiece{Prefix: cfg.Prefix, Cleanup: cfg.Cleanup}, nil
	case "ByteLevel":
		return decoder.ByteLevel{}, nil
	case "Metaspace":
		cfg := struct {
			Replacement    string `json:"replacement"`
			PrependScheme  string `json:"prepend_scheme"`
			AddPrefixSpace *bool  `json:"add_prefix_space"`
		}{}
		if err := c.decode(&cfg); err != nil {
			return nil, err
		}

		scheme, err := pretokenize.ParsePrependScheme(cfg.PrependScheme)
		if err != nil {
			return nil, err
		}

		strip := scheme != pretokenize.PrependNever
		if cfg.PrependScheme == "" && cfg.AddPrefixSpace != nil {
			strip = *cfg.AddPrefixSpace
		}
		return decoder.Metaspace{Replacement: cfg.Replacement, AddPrefixSpace: strip}, nil
	case "BPEDecoder":
		var cfg struct {
			Suffix string `json:"suffix"`
		}
		if err := c.decode(&cfg); err != nil {
			return nil, err
		}
		return decoder.BPE{Suffix: cfg.Suffix}, nil
	case "CTC":
		cfg := struct {
			PadToken      string `json:"pad_token"`
			WordDelimiter string `json:"word_delimiter_token"`
			Cleanup       bool   `json:"cleanup"`
		}{PadToken: "<pad>", WordDelimiter: "|", Cleanup: true}
		if err := c.decode(&cfg); err != nil {
			return nil, err
		}
		return decoder.CTC(cfg), nil
	case "ByteFallback":
		return decoder.ByteFallback{}, nil
	case "Fuse":
		return decoder.Fuse{}, nil
	case "Strip":
		var cfg struct {
			Content string `json:"content"`
			Start   int    `json:"start"`
			Stop    int    `json:"stop"`
		}
		if err := c.decode(&cfg); err != nil {
			return nil, err
		}
		return decoder.Strip{Content: cfg.Content, Start: cfg.Start, Stop: cfg.Stop}, nil
	case "Replace":
		var cfg struct {
			Pattern pattern `json:"pattern"`
			Content string  `json:"content"`
		}
		if err := c.decode(&cfg); err != nil {
			return nil, err
		}

		p, regex, err := cfg.Pattern.value()
		if err != nil {
			return nil, err
		}
		return decoder.NewReplace(p, regex, cfg.Content)
	default:
		return nil, fmt.Errorf("unsupported decoder %q", c.kind())
	}
}
