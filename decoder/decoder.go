// Package decoder turns token surface forms back into text.
package decoder

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"

	"github.com/ollama/tokenizers/model"
)

// Decoder rewrites a token sequence. The decoded text is the concatenation
// of the final sequence.
type Decoder interface {
	DecodeChain(tokens []string) []string
}

func Decode(d Decoder, tokens []string) string {
	return strings.Join(d.DecodeChain(tokens), "")
}

type Sequence []Decoder

func (seq Sequence) DecodeChain(tokens []string) []string {
	for _, d := range seq {
		tokens = d.DecodeChain(tokens)
	}
	return tokens
}

var wordPieceReplacer = strings.NewReplacer(
	" .", ".",
	" ?", "?",
	" !", "!",
	" ,", ",",
	" ' ", "'",
	" n't", "n't",
	" 'm", "'m",
	" do not", " don't",
	" 's", "'s",
	" 've", "'ve",
	" 're", "'re",
)

// WordPiece glues continuation pieces to the previous piece and separates
// words with a space.
type WordPiece struct {
	// Prefix defaults to "##".
	Prefix  string
	Cleanup bool
}

func (wp WordPiece) DecodeChain(tokens []string) []string {
	prefix := wp.Prefix
	if prefix == "" {
		prefix = "##"
	}

	out := make([]string, len(tokens))
	for i, token := range tokens {
		if i > 0 {
			if strings.HasPrefix(token, prefix) {
				token = strings.TrimPrefix(token, prefix)
			} else {
				token = " " + token
			}
		}

		if wp.Cleanup {
			token = wordPieceReplacer.Replace(token)
		}
		out[i] = token
	}
	return out
}

// CTC collapses repeated tokens, drops the padding token and turns the word
// delimiter into a space.
type CTC struct {
	PadToken      string
	WordDelimiter string
	Cleanup       bool
}

func (c CTC) DecodeChain(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for i, token := range tokens {
		if i > 0 && token == tokens[i-1] {
			continue
		}

		token = strings.ReplaceAll(token, c.PadToken, "")
		if c.Cleanup {
			token = wordPieceReplacer.Replace(token)
			token = strings.ReplaceAll(token, c.WordDelimiter, " ")
		}

		if token != "" {
			out = append(out, token)
		}
	}
	return out
}

// ByteLevel maps the byte-level alphabet back to raw bytes.
type ByteLevel struct{}

func (ByteLevel) DecodeChain(tokens []string) []string {
	var sb strings.Builder
	for _, token := range tokens {
		for _, r := range token {
			if b, ok := model.ByteLevelByte(r); ok {
				// NOTE: not using WriteRune here because it writes the UTF-8
				// encoding of the rune which is _not_ what we want
				sb.WriteByte(b)
			} else {
				sb.WriteRune(r)
			}
		}
	}

	return []string{strings.ToValidUTF8(sb.String(), "�")}
}

// Metaspace turns the SentencePiece space marker back into spaces.
type Metaspace struct {
	// Replacement defaults to "▁".
	Replacement string
	// AddPrefixSpace strips the space the pre-tokenizer prepended.
	AddPrefixSpace bool
}

func (m Metaspace) DecodeChain(tokens []string) []string {
	replacement := m.Replacement
	if replacement == "" {
		replacement = "▁"
	}

	out := make([]string, len(tokens))
	for i, token := range tokens {
		token = strings.ReplaceAll(token, replacement, " ")
		if i == 0 && m.AddPrefixSpace {
			token = strings.TrimPrefix(token, " ")
		}
		out[i] = token
	}
	return out
}

// BPE replaces the end-of-word suffix with a space.
type BPE struct {
	// Suffix defaults to "</w>".
	Suffix string
}

func (b BPE) DecodeChain(tokens []string) []string {
	suffix := b.Suffix
	if suffix == "" {
		suffix = "</w>"
	}

	out := make([]string, len(tokens))
	for i, token := range tokens {
		replacement := " "
		if i == len(tokens)-1 {
			replacement = ""
		}
		out[i] = strings.ReplaceAll(token, suffix, replacement)
	}
	return out
}

// ByteFallback converts runs of <0xNN> tokens to text. Runs that are not
// valid UTF-8 become one replacement character per byte.
type ByteFallback struct{}

func parseByteToken(token string) (byte, bool) {
	if len(token) != 6 || !strings.HasPrefix(token, "<0x") || !strings.HasSuffix(token, ">") {
		return 0, false
	}

	b, err := strconv.ParseUint(token[3:5], 16, 8)
	if err != nil {
		return 0, false
	}
	return byte(b), true
}

func (ByteFallback) DecodeChain(tokens []string) []string {
	out := make([]string, 0, len(tokens))

	var pending []byte
	flush := func() {
		if len(pending) == 0 {
			return
		}

		if utf8.Valid(pending) {
			out = append(out, string(pending))
		} else {
			for range pending {
				out = append(out, "�")
			}
		}
		pending = pending[:0]
	}

	for _, token := range tokens {
		if b, ok := parseByteToken(token); ok {
			pending = append(pending, b)
			continue
		}

		flush()
		out = append(out, token)
	}
	flush()

	return out
}

// Fuse joins every token into one.
type Fuse struct{}

func (Fuse) DecodeChain(tokens []string) []string {
	return []string{strings.Join(tokens, "")}
}

// Strip removes up to Start leading and Stop trailing occurrences of
// Content from every token.
type Strip struct {
	Content     string
	Start, Stop int
}

func (s Strip) DecodeChain(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, token := range tokens {
		for range s.Start {
			if !strings.HasPrefix(token, s.Content) {
				break
			}
			token = strings.TrimPrefix(token, s.Content)
		}

		for range s.Stop {
			if !strings.HasSuffix(token, s.Content) {
				break
			}
			token = strings.TrimSuffix(token, s.Content)
		}
		out[i] = token
	}
	return out
}

// Replace substitutes a literal or regular expression in every token.
type Replace struct {
	literal string
	re      *regexp2.Regexp
	content string
}

func NewReplace(pattern string, regex bool, content string) (*Replace, error) {
	if !regex {
		return &Replace{literal: pattern, content: content}, nil
	}

	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("replace decoder: %w", err)
	}
	return &Replace{re: re, content: content}, nil
}

func (r *Replace) DecodeChain(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, token := range tokens {
		if r.re == nil {
			out[i] = strings.ReplaceAll(token, r.literal, r.content)
			continue
		}

		replaced, err := r.re.Replace(token, r.content, -1, -1)
		if err != nil {
			replaced = token
		}
		out[i] = replaced
	}
	return out
}

// Join separates tokens with Separator. It is used when a tokenizer has no
// decoder.
type Join struct {
	Separator string
}

func (j Join) DecodeChain(tokens []string) []string {
	return []string{strings.Join(tokens, j.Separator)}
}
