package tokenizer

import (
	"fmt"

	"github.com/ollama/tokenizers/normalize"
)

type Span = normalize.Span

// Encoding is the result of encoding one input or one input pair. All
// slices have the same length.
type Encoding struct {
	IDs               []int32
	Tokens            []string
	Offsets           []Span
	TypeIDs           []uint32
	AttentionMask     []uint32
	SpecialTokensMask []uint32
	// WordIDs and SequenceIDs are -1 for tokens that belong to no word or
	// input, such as template special tokens and padding.
	WordIDs     []int
	SequenceIDs []int

	// Overflowing holds the windows cut off by truncation.
	Overflowing []*Encoding
}

func (e *Encoding) Len() int {
	return len(e.IDs)
}

func (e *Encoding) push(id int32, token string, span Span, typeID uint32, special bool, word, sequence int) {
	e.IDs = append(e.IDs, id)
	e.Tokens = append(e.Tokens, token)
	e.Offsets = append(e.Offsets, span)
	e.TypeIDs = append(e.TypeIDs, typeID)
	e.AttentionMask = append(e.AttentionMask, 1)
	if special {
		e.SpecialTokensMask = append(e.SpecialTokensMask, 1)
	} else {
		e.SpecialTokensMask = append(e.SpecialTokensMask, 0)
	}
	e.WordIDs = append(e.WordIDs, word)
	e.SequenceIDs = append(e.SequenceIDs, sequence)
}

// appendFrom copies tokens [start, end) of other, overriding type ids.
func (e *Encoding) appendFrom(other *Encoding, start, end int, typeID uint32) {
	for i := start; i < end; i++ {
		e.IDs = append(e.IDs, other.IDs[i])
		e.Tokens = append(e.Tokens, other.Tokens[i])
		e.Offsets = append(e.Offsets, other.Offsets[i])
		e.TypeIDs = append(e.TypeIDs, typeID)
		e.AttentionMask = append(e.AttentionMask, other.AttentionMask[i])
		e.SpecialTokensMask = append(e.SpecialTokensMask, other.SpecialTokensMask[i])
		e.WordIDs = append(e.WordIDs, other.WordIDs[i])
		e.SequenceIDs = append(e.SequenceIDs, other.SequenceIDs[i])
	}
}

func (e *Encoding) slice(start, end int) *Encoding {
	var out Encoding
	for i := start; i < end; i++ {
		out.push(e.IDs[i], e.Tokens[i], e.Offsets[i], e.TypeIDs[i], e.SpecialTokensMask[i] == 1, e.WordIDs[i], e.SequenceIDs[i])
		out.AttentionMask[len(out.AttentionMask)-1] = e.AttentionMask[i]
	}
	return &out
}

func (e *Encoding) setSequence(sequence int) {
	for i := range e.SequenceIDs {
		e.SequenceIDs[i] = sequence
	}
	for _, o := range e.Overflowing {
		o.setSequence(sequence)
	}
}

// merge concatenates a and b without special tokens.
func merge(a, b *Encoding) *Encoding {
	var out Encoding
	out.appendFrom(a, 0, a.Len(), 0)
	if b != nil {
		out.appendFrom(b, 0, b.Len(), 0)
	}

	for _, o := range a.Overflowing {
		out.Overflowing = append(out.Overflowing, merge(o, b))
	}
	if b != nil {
		for _, o := range b.Overflowing {
			out.Overflowing = append(out.Overflowing, merge(a.withoutOverflow(), o))
		}
	}
	return &out
}

func (e *Encoding) withoutOverflow() *Encoding {
	c := *e
	c.Overflowing = nil
	return &c
}

type Direction int

const (
	Right Direction = iota
	Left
)

func (d Direction) String() string {
	if d == Left {
		return "Left"
	}
	return "Right"
}

func ParseDirection(s string) (Direction, error) {
	switch s {
	case "right", "Right", "":
		return Right, nil
	case "left", "Left":
		return Left, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

type TruncationStrategy int

const (
	LongestFirst TruncationStrategy = iota
	OnlyFirst
	OnlySecond
)

func (s TruncationStrategy) String() string {
	switch s {
	case OnlyFirst:
		return "OnlyFirst"
	case OnlySecond:
		return "OnlySecond"
	default:
		return "LongestFirst"
	}
}

func ParseTruncationStrategy(s string) (TruncationStrategy, error) {
	switch s {
	case "longest_first", "LongestFirst", "":
		return LongestFirst, nil
	case "only_first", "OnlyFirst":
		return OnlyFirst, nil
	case "only_second", "OnlySecond":
		return OnlySecond, nil
	default:
		return 0, fmt.Errorf("unknown truncation strategy %q", s)
	}
}

type Truncation struct {
	MaxLength int
	// Stride is the number of tokens repeated between overflow windows.
	Stride    int
	Strategy  TruncationStrategy
	Direction Direction
}

// truncate keeps the first window of at most limit tokens and moves the
// remaining windows to Overflowing.
func (e *Encoding) truncate(limit, stride int, direction Direction) {
	n := e.Len()
	if n <= limit {
		return
	}

	if limit == 0 {
		*e = Encoding{Overflowing: []*Encoding{e.withoutOverflow()}}
		return
	}

	step := limit - stride
	var ranges [][2]int
	switch direction {
	case Right:
		for start := 0; ; start += step {
			end := min(start+limit, n)
			ranges = append(ranges, [2]int{start, end})
			if end == n {
				break
			}
		}
	case Left:
		for stop := n; ; stop -= step {
			start := max(stop-limit, 0)
			ranges = append(ranges, [2]int{start, stop})
			if start == 0 {
				break
			}
		}
	}

	overflowing := make([]*Encoding, 0, len(ranges)-1)
	for _, r := range ranges[1:] {
		overflowing = append(overflowing, e.slice(r[0], r[1]))
	}

	*e = *e.slice(ranges[0][0], ranges[0][1])
	e.Overflowing = overflowing
}

func (t *Truncation) apply(a, b *Encoding, limit int) error {
	if t.MaxLength > 0 && t.Stride >= t.MaxLength {
		return fmt.Errorf("%w: truncation stride %d must be less than max length %d", ErrEncoding, t.Stride, t.MaxLength)
	}

	// stride must leave room to advance
	strideFor := func(n int) int {
		return max(0, min(t.Stride, n-1))
	}

	if b == nil {
		if t.Strategy == OnlySecond {
			return fmt.Errorf("%w: only_second truncation requires a pair", ErrEncoding)
		}
		a.truncate(limit, strideFor(limit), t.Direction)
		return nil
	}

	total := a.Len() + b.Len()
	if total <= limit {
		return nil
	}

	switch t.Strategy {
	case LongestFirst:
		n1, n2 := a.Len(), b.Len()
		swap := n1 > n2
		if swap {
			n1, n2 = n2, n1
		}

		if n1 > limit {
			n2 = n1
		} else {
			n2 = max(n1, limit-n1)
		}

		if n1+n2 > limit {
			n1 = limit / 2
			n2 = n1 + limit%2
		}

		if swap {
			n1, n2 = n2, n1
		}

		a.truncate(n1, strideFor(n1), t.Direction)
		b.truncate(n2, strideFor(n2), t.Direction)
	case OnlyFirst, OnlySecond:
		target := a
		if t.Strategy == OnlySecond {
			target = b
		}

		remove := total - limit
		if target.Len() <= remove {
			return fmt.Errorf("%w: sequence too short to truncate to %d tokens", ErrEncoding, limit)
		}

		n := target.Len() - remove
		target.truncate(n, strideFor(n), t.Direction)
	}
	return nil
}

type PaddingStrategy int

const (
	BatchLongest PaddingStrategy = iota
	Fixed
)

func (s PaddingStrategy) String() string {
	if s == Fixed {
		return "Fixed"
	}
	return "BatchLongest"
}

type Padding struct {
	Strategy PaddingStrategy
	// Length is the target length for Fixed padding.
	Length          int
	Direction       Direction
	PadToMultipleOf int
	PadID           int32
	PadTypeID       uint32
	PadToken        string
}

func (p *Padding) target(n int) int {
	if p.Strategy == Fixed {
		n = p.Length
	}
	if m := p.PadToMultipleOf; m > 0 && n%m != 0 {
		n += m - n%m
	}
	return n
}

func (p *Padding) pad(e *Encoding, length int) {
	for _, o := range e.Overflowing {
		p.pad(o, length)
	}

	n := length - e.Len()
	if n <= 0 {
		return
	}

	var pad Encoding
	for range n {
		pad.push(p.PadID, p.PadToken, Span{}, p.PadTypeID, true, -1, -1)
		pad.AttentionMask[len(pad.AttentionMask)-1] = 0
	}

	var out Encoding
	switch p.Direction {
	case Left:
		out.appendFrom(&pad, 0, n, p.PadTypeID)
		out.concat(e)
	default:
		out.concat(e)
		out.appendFrom(&pad, 0, n, p.PadTypeID)
	}

	out.Overflowing = e.Overflowing
	*e = out
}

// concat appends other keeping its type ids.
func (e *Encoding) concat(other *Encoding) {
	e.IDs = append(e.IDs, other.IDs...)
	e.Tokens = append(e.Tokens, other.Tokens...)
	e.Offsets = append(e.Offsets, other.Offsets...)
	e.TypeIDs = append(e.TypeIDs, other.TypeIDs...)
	e.AttentionMask = append(e.AttentionMask, other.AttentionMask...)
	e.SpecialTokensMask = append(e.SpecialTokensMask, other.SpecialTokensMask...)
	e.WordIDs = append(e.WordIDs, other.WordIDs...)
	e.SequenceIDs = append(e.SequenceIDs, other.SequenceIDs...)
}
