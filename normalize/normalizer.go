package normalize

import (
	"unicode"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/runes"
	"golang.org/x/text/unicode/norm"

	"github.com/ollama/tokenizers/model"
)

type Normalizer interface {
	Normalize(*String)
}

type Sequence []Normalizer

func (seq Sequence) Normalize(s *String) {
	for _, n := range seq {
		n.Normalize(s)
	}
}

type Lowercase struct{}

func (Lowercase) Normalize(s *String) {
	s.Map(unicode.ToLower)
}

// Unicode applies one of NFC, NFD, NFKC or NFKD.
type Unicode struct {
	Form norm.Form
}

func (u Unicode) Normalize(s *String) {
	s.Unicode(u.Form)
}

var nonSpacingMarks = runes.In(unicode.Mn)

// StripAccents removes combining marks. It is usually preceded by NFD.
type StripAccents struct{}

func (StripAccents) Normalize(s *String) {
	s.Filter(func(r rune) bool {
		return !nonSpacingMarks.Contains(r)
	})
}

type Strip struct {
	Left, Right bool
}

func (st Strip) Normalize(s *String) {
	s.Strip(st.Left, st.Right)
}

type Prepend struct {
	Prefix string
}

func (p Prepend) Normalize(s *String) {
	s.Prepend(p.Prefix)
}

// Replace substitutes a literal string or a regular expression.
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
		return nil, err
	}

	return &Replace{re: re, content: content}, nil
}

func (r *Replace) Normalize(s *String) {
	if r.re != nil {
		s.ReplaceRegexp(r.re, r.content)
		return
	}
	s.ReplaceAll(r.literal, r.content)
}

// Bert cleans control characters, isolates CJK ideographs, and optionally
// strips accents and lowercases.
type Bert struct {
	CleanText          bool
	HandleChineseChars bool
	// StripAccents defaults to Lowercase when nil
	StripAccents *bool
	Lowercase    bool
}

func (b Bert) Normalize(s *String) {
	if b.CleanText {
		s.Transform(func(r rune) string {
			switch {
			case r == 0, r == unicode.ReplacementChar, isControl(r):
				return ""
			case isWhitespace(r):
				return " "
			}
			return string(r)
		})
	}

	if b.HandleChineseChars {
		s.Transform(func(r rune) string {
			if IsChineseChar(r) {
				return " " + string(r) + " "
			}
			return string(r)
		})
	}

	strip := b.Lowercase
	if b.StripAccents != nil {
		strip = *b.StripAccents
	}

	if strip {
		s.Unicode(norm.NFD)
		StripAccents{}.Normalize(s)
	}

	if b.Lowercase {
		Lowercase{}.Normalize(s)
	}
}

// Nmt drops control characters and maps unusual spaces to ' ' the way
// machine translation vocabularies expect.
type Nmt struct{}

func (Nmt) Normalize(s *String) {
	s.Transform(func(r rune) string {
		switch {
		case r >= 0x0001 && r <= 0x0008, r == 0x000b, r >= 0x000e && r <= 0x001f,
			r == 0x007f, r == 0x008f, r == 0x009f:
			return ""
		case r == 0x0009, r == 0x000a, r == 0x000c, r == 0x000d, r == 0x1680,
			r >= 0x200b && r <= 0x200f, r == 0x2028, r == 0x2029,
			r == 0x2581, r == 0xfeff, r == 0xfffd:
			return " "
		}
		return string(r)
	})
}

// ByteLevel rewrites every byte as its byte-level rune.
type ByteLevel struct{}

func (ByteLevel) Normalize(s *String) {
	s.MapBytes(func(b byte) string {
		return string(model.ByteLevelRune(b))
	})
}

func isWhitespace(r rune) bool {
	switch r {
	case '\t', '\n', '\r', ' ':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return false
	}
	return unicode.In(r, unicode.Cc, unicode.Cf, unicode.Co)
}

// IsChineseChar reports whether r is in a CJK Unified Ideographs block.
func IsChineseChar(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF,
		r >= 0x3400 && r <= 0x4DBF,
		r >= 0x20000 && r <= 0x2A6DF,
		r >= 0x2A700 && r <= 0x2B73F,
		r >= 0x2B740 && r <= 0x2B81F,
		r >= 0x2B820 && r <= 0x2CEAF,
		r >= 0xF900 && r <= 0xFAFF,
		r >= 0x2F800 && r <= 0x2FA1F:
		return true
	}
	return false
}
