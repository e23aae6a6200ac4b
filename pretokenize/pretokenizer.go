// Package pretokenize splits normalized text into the words a model
// segments independently.
package pretokenize

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"

	"github.com/ollama/tokenizers/normalize"
)

type PreTokenizer interface {
	PreTokenize(*normalize.String) []*normalize.String
}

// Behavior selects what happens to a delimiter when splitting.
type Behavior int

const (
	Removed Behavior = iota
	Isolated
	MergedWithPrevious
	MergedWithNext
	Contiguous
)

func ParseBehavior(s string) (Behavior, error) {
	switch s {
	case "removed", "Removed":
		return Removed, nil
	case "isolated", "Isolated", "":
		return Isolated, nil
	case "merged_with_previous", "MergedWithPrevious":
		return MergedWithPrevious, nil
	case "merged_with_next", "MergedWithNext":
		return MergedWithNext, nil
	case "contiguous", "Contiguous":
		return Contiguous, nil
	default:
		return 0, fmt.Errorf("unknown split behavior %q", s)
	}
}

type segment struct {
	start, end int
	match      bool
}

// segments interleaves matches with the text between them.
func segments(n int, matches [][2]int) []segment {
	var segs []segment
	var last int
	for _, m := range matches {
		if m[0] > last {
			segs = append(segs, segment{last, m[0], false})
		}
		segs = append(segs, segment{m[0], m[1], true})
		last = m[1]
	}

	if last < n {
		segs = append(segs, segment{last, n, false})
	}
	return segs
}

// split cuts s at the delimiter ranges in matches.
func split(s *normalize.String, matches [][2]int, behavior Behavior, invert bool) []*normalize.String {
	segs := segments(s.Len(), matches)
	if invert {
		for i := range segs {
			segs[i].match = !segs[i].match
		}
	}

	var ranges [][2]int
	switch behavior {
	case Removed:
		for _, seg := range segs {
			if !seg.match {
				ranges = append(ranges, [2]int{seg.start, seg.end})
			}
		}
	case Isolated:
		for _, seg := range segs {
			ranges = append(ranges, [2]int{seg.start, seg.end})
		}
	case Contiguous:
		previous := false
		for _, seg := range segs {
			if seg.match && previous {
				ranges[len(ranges)-1][1] = seg.end
			} else {
				ranges = append(ranges, [2]int{seg.start, seg.end})
			}
			previous = seg.match
		}
	case MergedWithPrevious:
		previous := false
		for _, seg := range segs {
			if seg.match && !previous && len(ranges) > 0 {
				ranges[len(ranges)-1][1] = seg.end
			} else {
				ranges = append(ranges, [2]int{seg.start, seg.end})
			}
			previous = seg.match
		}
	case MergedWithNext:
		previous := false
		for i := len(segs) - 1; i >= 0; i-- {
			seg := segs[i]
			if seg.match && !previous && len(ranges) > 0 {
				ranges[len(ranges)-1][0] = seg.start
			} else {
				ranges = append(ranges, [2]int{seg.start, seg.end})
			}
			previous = seg.match
		}

		for i, j := 0, len(ranges)-1; i < j; i, j = i+1, j-1 {
			ranges[i], ranges[j] = ranges[j], ranges[i]
		}
	}

	words := make([]*normalize.String, 0, len(ranges))
	for _, r := range ranges {
		if r[0] < r[1] {
			words = append(words, s.Slice(r[0], r[1]))
		}
	}
	return words
}

// runeMatches returns one range per rune fn accepts.
func runeMatches(s string, fn func(rune) bool) [][2]int {
	var matches [][2]int
	for i, r := range s {
		if fn(r) {
			_, size := utf8.DecodeRuneInString(s[i:])
			matches = append(matches, [2]int{i, i + size})
		}
	}
	return matches
}

// runMatches returns one range per maximal run of runes fn accepts.
func runMatches(s string, fn func(rune) bool) [][2]int {
	var matches [][2]int
	start := -1
	for i, r := range s {
		switch {
		case fn(r) && start < 0:
			start = i
		case !fn(r) && start >= 0:
			matches = append(matches, [2]int{start, i})
			start = -1
		}
	}

	if start >= 0 {
		matches = append(matches, [2]int{start, len(s)})
	}
	return matches
}

type Sequence []PreTokenizer

func (seq Sequence) PreTokenize(s *normalize.String) []*normalize.String {
	words := []*normalize.String{s}
	for _, p := range seq {
		var next []*normalize.String
		for _, w := range words {
			next = append(next, p.PreTokenize(w)...)
		}
		words = next
	}
	return words
}

// WhitespaceSplit splits on Unicode whitespace.
type WhitespaceSplit struct{}

func (WhitespaceSplit) PreTokenize(s *normalize.String) []*normalize.String {
	return split(s, runMatches(s.String(), unicode.IsSpace), Removed, false)
}

var wordsOrPunctuation = regexp2.MustCompile(`\w+|[^\w\s]+`, regexp2.None)

// Whitespace keeps runs of word characters and runs of punctuation.
type Whitespace struct{}

func (Whitespace) PreTokenize(s *normalize.String) []*normalize.String {
	return split(s, s.FindAll(wordsOrPunctuation), Removed, true)
}

func isPunctuation(r rune) bool {
	return r < unicode.MaxASCII && unicode.IsPrint(r) && !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' ||
		unicode.IsPunct(r)
}

type Punctuation struct {
	Behavior Behavior
}

func (p Punctuation) PreTokenize(s *normalize.String) []*normalize.String {
	return split(s, runeMatches(s.String(), isPunctuation), p.Behavior, false)
}

// Bert splits on whitespace and isolates punctuation.
type Bert struct{}

func (Bert) PreTokenize(s *normalize.String) []*normalize.String {
	return Sequence{WhitespaceSplit{}, Punctuation{Behavior: Isolated}}.PreTokenize(s)
}

type Digits struct {
	IndividualDigits bool
}

func (d Digits) PreTokenize(s *normalize.String) []*normalize.String {
	matches := runeMatches(s.String(), unicode.IsDigit)
	if d.IndividualDigits {
		return split(s, matches, Isolated, false)
	}
	return split(s, matches, Contiguous, false)
}

// CharDelimiterSplit splits on a single delimiter, dropping it.
type CharDelimiterSplit struct {
	Delimiter rune
}

func (c CharDelimiterSplit) PreTokenize(s *normalize.String) []*normalize.String {
	return split(s, runeMatches(s.String(), func(r rune) bool { return r == c.Delimiter }), Removed, false)
}

// Split cuts on a literal or regular expression pattern.
type Split struct {
	re       *regexp2.Regexp
	behavior Behavior
	invert   bool
}

func NewSplit(pattern string, regex bool, behavior Behavior, invert bool) (*Split, error) {
	if !regex {
		pattern = regexp2.Escape(pattern)
	}

	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, err
	}

	return &Split{re: re, behavior: behavior, invert: invert}, nil
}

func (sp *Split) PreTokenize(s *normalize.String) []*normalize.String {
	return split(s, s.FindAll(sp.re), sp.behavior, sp.invert)
}
