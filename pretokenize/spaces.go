package pretokenize

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/ollama/tokenizers/model"
	"github.com/ollama/tokenizers/normalize"
)

// gpt2 is the default byte-level split pattern, e.g.
// https://github.com/huggingface/tokenizers/blob/main/tokenizers/src/pre_tokenizers/byte_level.rs#L44
var gpt2 = regexp2.MustCompile(`'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+(?!\S)|\s+`, regexp2.RE2)

// ByteLevel rewrites every byte as a printable rune so a byte-level BPE
// vocabulary covers any input.
type ByteLevel struct {
	AddPrefixSpace bool
	UseRegex       bool
}

func (bl ByteLevel) PreTokenize(s *normalize.String) []*normalize.String {
	if bl.AddPrefixSpace && !strings.HasPrefix(s.String(), " ") {
		s.Prepend(" ")
	}

	words := []*normalize.String{s}
	if bl.UseRegex {
		words = split(s, s.FindAll(gpt2), Isolated, false)
	}

	for _, w := range words {
		w.MapBytes(func(b byte) string {
			return string(model.ByteLevelRune(b))
		})
	}
	return words
}

type PrependScheme int

const (
	PrependAlways PrependScheme = iota
	PrependFirst
	PrependNever
)

func ParsePrependScheme(s string) (PrependScheme, error) {
	switch s {
	case "always", "":
		return PrependAlways, nil
	case "first":
		return PrependFirst, nil
	case "never":
		return PrependNever, nil
	default:
		return 0, fmt.Errorf("unknown prepend scheme %q", s)
	}
}

// Metaspace replaces spaces with a visible marker, SentencePiece style.
type Metaspace struct {
	// Replacement defaults to "▁".
	Replacement   string
	PrependScheme PrependScheme
	Split         bool
}

func (m Metaspace) replacement() string {
	if m.Replacement == "" {
		return "▁"
	}
	return m.Replacement
}

func (m Metaspace) PreTokenize(s *normalize.String) []*normalize.String {
	replacement := m.replacement()
	s.ReplaceAll(" ", replacement)

	switch m.PrependScheme {
	case PrependAlways:
		if !strings.HasPrefix(s.String(), replacement) {
			s.Prepend(replacement)
		}
	case PrependFirst:
		// only the start of the input, not text following an added token
		if !strings.HasPrefix(s.String(), replacement) && s.Span().Start == 0 {
			s.Prepend(replacement)
		}
	}

	if !m.Split {
		return []*normalize.String{s}
	}

	var matches [][2]int
	text := s.String()
	for start := 0; start < len(text); {
		i := strings.Index(text[start:], replacement)
		if i < 0 {
			break
		}
		matches = append(matches, [2]int{start + i, start + i + len(replacement)})
		start += i + len(replacement)
	}

	return split(s, matches, MergedWithNext, false)
}
