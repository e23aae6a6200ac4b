package tokenizer

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// PostProcessor adds special tokens around encoded sequences.
type PostProcessor interface {
	// AddedTokens is the number of tokens Process adds.
	AddedTokens(pair bool) int
	// Process combines a and the optional b into one encoding.
	Process(a, b *Encoding) *Encoding
}

// TemplatePiece is either a sequence placeholder ($A or $B) or a special
// token, each with the type id its tokens receive.
type TemplatePiece struct {
	Sequence string
	Special  string
	TypeID   uint32
}

// SpecialToken is a template special token. One name may expand to
// several ids.
type SpecialToken struct {
	ID     string   `json:"id"`
	IDs    []int32  `json:"ids"`
	Tokens []string `json:"tokens"`
}

type TemplateProcessing struct {
	Single, Pair []TemplatePiece
	Special      map[string]SpecialToken
}

// ParseTemplate parses the "[CLS] $A:0 [SEP]" form.
func ParseTemplate(s string) ([]TemplatePiece, error) {
	var pieces []TemplatePiece
	for _, field := range strings.Fields(s) {
		name, typeID := field, uint32(0)
		if i := strings.LastIndexByte(field, ':'); i > 0 {
			n, err := strconv.ParseUint(field[i+1:], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("template piece %q: %w", field, err)
			}
			name, typeID = field[:i], uint32(n)
		}

		switch {
		case name == "$":
			pieces = append(pieces, TemplatePiece{Sequence: "A", TypeID: typeID})
		case strings.HasPrefix(name, "$"):
			seq := strings.TrimPrefix(name, "$")
			if seq != "A" && seq != "B" {
				// "$1" is sequence A with type id 1
				n, err := strconv.ParseUint(seq, 10, 32)
				if err != nil {
					return nil, fmt.Errorf("unknown sequence %q in template", name)
				}
				seq, typeID = "A", uint32(n)
			}
			pieces = append(pieces, TemplatePiece{Sequence: seq, TypeID: typeID})
		default:
			pieces = append(pieces, TemplatePiece{Special: name, TypeID: typeID})
		}
	}
	return pieces, nil
}

func (tp *TemplateProcessing) validate() error {
	for _, piece := range slices.Concat(tp.Single, tp.Pair) {
		if piece.Special == "" {
			continue
		}

		special, ok := tp.Special[piece.Special]
		if !ok {
			return fmt.Errorf("template special token %q is not defined", piece.Special)
		}
		if len(special.IDs) != len(special.Tokens) {
			return fmt.Errorf("template special token %q has %d ids and %d tokens", piece.Special, len(special.IDs), len(special.Tokens))
		}
	}
	return nil
}

func (tp *TemplateProcessing) AddedTokens(pair bool) int {
	template := tp.Single
	if pair {
		template = tp.Pair
	}

	var n int
	for _, piece := range template {
		if piece.Special != "" {
			n += len(tp.Special[piece.Special].IDs)
		}
	}
	return n
}

func (tp *TemplateProcessing) Process(a, b *Encoding) *Encoding {
	template := tp.Single
	if b != nil {
		template = tp.Pair
	}

	var out Encoding
	for _, piece := range template {
		switch {
		case piece.Sequence == "A":
			out.appendFrom(a, 0, a.Len(), piece.TypeID)
		case piece.Sequence == "B" && b != nil:
			out.appendFrom(b, 0, b.Len(), piece.TypeID)
		case piece.Special != "":
			special := tp.Special[piece.Special]
			for i, id := range special.IDs {
				out.push(id, special.Tokens[i], Span{}, piece.TypeID, true, -1, -1)
			}
		}
	}

	for _, o := range a.Overflowing {
		out.Overflowing = append(out.Overflowing, tp.Process(o, b.withoutOverflowOrNil()))
	}
	if b != nil {
		for _, o := range b.Overflowing {
			out.Overflowing = append(out.Overflowing, tp.Process(a.withoutOverflow(), o))
		}
	}
	return &out
}

func (e *Encoding) withoutOverflowOrNil() *Encoding {
	if e == nil {
		return nil
	}
	return e.withoutOverflow()
}

// NewBertProcessing returns the "[CLS] $A [SEP] $B:1 [SEP]:1" template.
func NewBertProcessing(cls, sep string, clsID, sepID int32) *TemplateProcessing {
	return &TemplateProcessing{
		Single: []TemplatePiece{{Special: cls}, {Sequence: "A"}, {Special: sep}},
		Pair:   []TemplatePiece{{Special: cls}, {Sequence: "A"}, {Special: sep}, {Sequence: "B", TypeID: 1}, {Special: sep, TypeID: 1}},
		Special: map[string]SpecialToken{
			cls: {ID: cls, IDs: []int32{clsID}, Tokens: []string{cls}},
			sep: {ID: sep, IDs: []int32{sepID}, Tokens: []string{sep}},
		},
	}
}

// NewRobertaProcessing returns the "<s> $A </s> </s> $B </s>" template.
func NewRobertaProcessing(cls, sep string, clsID, sepID int32) *TemplateProcessing {
	return &TemplateProcessing{
		Single: []TemplatePiece{{Special: cls}, {Sequence: "A"}, {Special: sep}},
		Pair:   []TemplatePiece{{Special: cls}, {Sequence: "A"}, {Special: sep}, {Special: sep}, {Sequence: "B"}, {Special: sep}},
		Special: map[string]SpecialToken{
			cls: {ID: cls, IDs: []int32{clsID}, Tokens: []string{cls}},
			sep: {ID: sep, IDs: []int32{sepID}, Tokens: []string{sep}},
		},
	}
}
