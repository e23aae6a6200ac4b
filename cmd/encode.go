package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ollama/tokenizers/envconfig"
	"github.com/ollama/tokenizers/tokenizer"
)

// encoding is the JSON form of a tokenizer.Encoding.
type encoding struct {
	IDs               []int32     `json:"ids"`
	Tokens            []string    `json:"tokens"`
	Offsets           [][2]int    `json:"offsets"`
	TypeIDs           []uint32    `json:"type_ids"`
	AttentionMask     []uint32    `json:"attention_mask"`
	SpecialTokensMask []uint32    `json:"special_tokens_mask"`
	Overflowing       []*encoding `json:"overflowing,omitempty"`
}

func newEncoding(e *tokenizer.Encoding) *encoding {
	out := encoding{
		IDs:               e.IDs,
		Tokens:            e.Tokens,
		Offsets:           make([][2]int, len(e.Offsets)),
		TypeIDs:           e.TypeIDs,
		AttentionMask:     e.AttentionMask,
		SpecialTokensMask: e.SpecialTokensMask,
	}

	for i, span := range e.Offsets {
		out.Offsets[i] = [2]int{span.Start, span.End}
	}

	for _, o := range e.Overflowing {
		out.Overflowing = append(out.Overflowing, newEncoding(o))
	}
	return &out
}

func EncodeHandler(cmd *cobra.Command, args []string) error {
	t, err := loadTokenizer(cmd)
	if err != nil {
		return err
	}

	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	noSpecial, err := cmd.Flags().GetBool("no-special")
	if err != nil {
		return err
	}

	var enc *tokenizer.Encoding
	if cmd.Flags().Changed("pair") {
		pair, err := cmd.Flags().GetString("pair")
		if err != nil {
			return err
		}

		enc, err = t.EncodePair(text, pair, !noSpecial)
		if err != nil {
			return err
		}
	} else {
		enc, err = t.Encode(text, !noSpecial)
		if err != nil {
			return err
		}
	}

	table, err := useTable(cmd)
	if err != nil {
		return err
	}

	if !table {
		return writeJSON(cmd.OutOrStdout(), newEncoding(enc))
	}

	data := make([][]string, enc.Len())
	for i := range enc.Len() {
		data[i] = []string{
			strconv.Itoa(int(enc.IDs[i])),
			strconv.Quote(enc.Tokens[i]),
			fmt.Sprintf("%d:%d", enc.Offsets[i].Start, enc.Offsets[i].End),
			strconv.Itoa(int(enc.TypeIDs[i])),
		}
	}

	tw := newTable(cmd.OutOrStdout(), "ID", "TOKEN", "OFFSETS", "TYPE")
	tw.AppendBulk(data)
	tw.Render()
	return nil
}

func BatchHandler(cmd *cobra.Command, args []string) error {
	t, err := loadTokenizer(cmd)
	if err != nil {
		return err
	}

	noSpecial, err := cmd.Flags().GetBool("no-special")
	if err != nil {
		return err
	}

	if parallel, err := cmd.Flags().GetInt("parallel"); err != nil {
		return err
	} else if parallel > 0 {
		envconfig.NumParallel = parallel
	}

	lines, err := readLines(cmd.InOrStdin())
	if err != nil {
		return err
	}

	encodings, err := t.EncodeBatch(lines, !noSpecial)
	if err != nil {
		return err
	}

	table, err := useTable(cmd)
	if err != nil {
		return err
	}

	if !table {
		for _, enc := range encodings {
			if err := writeJSON(cmd.OutOrStdout(), enc.IDs); err != nil {
				return err
			}
		}
		return nil
	}

	data := make([][]string, len(encodings))
	for i, enc := range encodings {
		ids := make([]string, enc.Len())
		for j, id := range enc.IDs {
			ids[j] = strconv.Itoa(int(id))
		}
		data[i] = []string{strconv.Itoa(i + 1), strconv.Itoa(enc.Len()), strings.Join(ids, " ")}
	}

	tw := newTable(cmd.OutOrStdout(), "LINE", "TOKENS", "IDS")
	tw.AppendBulk(data)
	tw.Render()
	return nil
}
