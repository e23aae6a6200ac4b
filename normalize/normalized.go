// Package normalize rewrites input text while remembering, for every byte of
// the rewritten text, which range of the original input produced it.
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/unicode/norm"
)

// Span is a [Start, End) byte range into the original input.
type Span struct {
	Start, End int
}

func (s Span) Len() int {
	return s.End - s.Start
}

// String is normalized text aligned to the original input. The zero value
// is an empty string at offset 0.
type String struct {
	normalized string
	align      []Span

	// origin is reported as the offset of an empty string
	origin int
}

func New(s string) *String {
	return NewAt(s, 0)
}

// NewAt returns a String for s where s starts at byte offset base of the
// original input.
func NewAt(s string, base int) *String {
	align := make([]Span, len(s))
	for i, r := range s {
		size := utf8.RuneLen(r)
		if r == utf8.RuneError {
			_, size = utf8.DecodeRuneInString(s[i:])
		}

		span := Span{base + i, base + i + size}
		for j := range size {
			align[i+j] = span
		}
	}

	return &String{normalized: s, align: align, origin: base}
}

func (s *String) String() string {
	return s.normalized
}

func (s *String) Len() int {
	return len(s.normalized)
}

func (s *String) Empty() bool {
	return len(s.normalized) == 0
}

// Offsets returns the original span covered by normalized bytes [start, end).
func (s *String) Offsets(start, end int) Span {
	switch {
	case len(s.align) == 0:
		return Span{s.origin, s.origin}
	case start >= end:
		if start >= len(s.align) {
			last := s.align[len(s.align)-1].End
			return Span{last, last}
		}
		return Span{s.align[start].Start, s.align[start].Start}
	}

	span := s.align[start]
	for _, a := range s.align[start+1 : end] {
		span.Start = min(span.Start, a.Start)
		span.End = max(span.End, a.End)
	}
	return span
}

// Span returns the original span of the whole string.
func (s *String) Span() Span {
	return s.Offsets(0, len(s.normalized))
}

// Slice returns the sub-string for normalized bytes [start, end).
func (s *String) Slice(start, end int) *String {
	return &String{
		normalized: s.normalized[start:end],
		align:      s.align[start:end],
		origin:     s.Offsets(start, end).Start,
	}
}

type builder struct {
	sb    strings.Builder
	align []Span
}

func (b *builder) write(s string, span Span) {
	b.sb.WriteString(s)
	for range len(s) {
		b.align = append(b.align, span)
	}
}

func (s *String) replace(b *builder) {
	s.normalized = b.sb.String()
	s.align = b.align
}

// Transform replaces every rune with the output of fn. An empty output
// removes the rune. New text inherits the span of the rune it replaces.
func (s *String) Transform(fn func(r rune) string) {
	var b builder
	b.align = make([]Span, 0, len(s.align))
	for i, r := range s.normalized {
		b.write(fn(r), s.align[i])
	}
	s.replace(&b)
}

// Map works like strings.Map: a negative rune drops the character.
func (s *String) Map(fn func(r rune) rune) {
	s.Transform(func(r rune) string {
		if r = fn(r); r < 0 {
			return ""
		}
		return string(r)
	})
}

// Filter keeps the runes fn reports true for.
func (s *String) Filter(fn func(r rune) bool) {
	s.Transform(func(r rune) string {
		if fn(r) {
			return string(r)
		}
		return ""
	})
}

// MapBytes replaces every byte with the output of fn.
func (s *String) MapBytes(fn func(b byte) string) {
	var b builder
	b.align = make([]Span, 0, len(s.align)*2)
	for i := range len(s.normalized) {
		b.write(fn(s.normalized[i]), s.align[i])
	}
	s.replace(&b)
}

// Unicode applies a Unicode normalization form. The text is normalized one
// boundary-delimited segment at a time; a rewritten segment is aligned to the
// union of the spans it was produced from.
func (s *String) Unicode(form norm.Form) {
	if form.IsNormalString(s.normalized) {
		return
	}

	var b builder
	b.align = make([]Span, 0, len(s.align))
	for start := 0; start < len(s.normalized); {
		n := form.NextBoundaryInString(s.normalized[start:], true)
		if n <= 0 {
			n = len(s.normalized) - start
		}

		segment := s.normalized[start : start+n]
		if out := form.String(segment); out != segment {
			b.write(out, s.Offsets(start, start+n))
		} else {
			b.sb.WriteString(segment)
			b.align = append(b.align, s.align[start:start+n]...)
		}
		start += n
	}
	s.replace(&b)
}

func (s *String) replaceRanges(ranges [][2]int, content string) {
	if len(ranges) == 0 {
		return
	}

	var b builder
	var last int
	for _, r := range ranges {
		for i := last; i < r[0]; i++ {
			b.write(s.normalized[i:i+1], s.align[i])
		}
		b.write(content, s.Offsets(r[0], r[1]))
		last = r[1]
	}

	for i := last; i < len(s.normalized); i++ {
		b.write(s.normalized[i:i+1], s.align[i])
	}
	s.replace(&b)
}

// ReplaceAll replaces every non-overlapping occurrence of old.
func (s *String) ReplaceAll(old, content string) {
	if old == "" {
		return
	}

	var ranges [][2]int
	for start := 0; start < len(s.normalized); {
		i := strings.Index(s.normalized[start:], old)
		if i < 0 {
			break
		}
		ranges = append(ranges, [2]int{start + i, start + i + len(old)})
		start += i + len(old)
	}

	s.replaceRanges(ranges, content)
}

// ReplaceRegexp replaces every match of re.
func (s *String) ReplaceRegexp(re *regexp2.Regexp, content string) {
	s.replaceRanges(s.FindAll(re), content)
}

// Prepend inserts prefix before the first character, aligned to it.
func (s *String) Prepend(prefix string) {
	if s.Empty() || prefix == "" {
		return
	}

	span := s.align[0]
	align := make([]Span, len(prefix), len(prefix)+len(s.align))
	for i := range align {
		align[i] = span
	}

	s.normalized = prefix + s.normalized
	s.align = append(align, s.align...)
}

// Strip removes leading and/or trailing whitespace.
func (s *String) Strip(left, right bool) {
	start, end := 0, len(s.normalized)
	if left {
		start = len(s.normalized) - len(strings.TrimLeftFunc(s.normalized, unicode.IsSpace))
	}
	if right {
		end = len(strings.TrimRightFunc(s.normalized, unicode.IsSpace))
	}
	if start >= end {
		s.origin = s.Offsets(0, 0).Start
		s.normalized, s.align = "", nil
		return
	}

	*s = *s.Slice(start, end)
}

// FindAll returns the byte ranges of every non-empty match of re.
func (s *String) FindAll(re *regexp2.Regexp) [][2]int {
	runes := []rune(s.normalized)
	offsets := make([]int, 0, len(runes)+1)
	for i := range s.normalized {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(s.normalized))

	var matches [][2]int
	m, _ := re.FindRunesMatch(runes)
	for m != nil {
		if m.Length > 0 {
			matches = append(matches, [2]int{offsets[m.Index], offsets[m.Index+m.Length]})
		}
		m, _ = re.FindNextMatch(m)
	}

	return matches
}
