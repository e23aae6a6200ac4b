package cmd

import (
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ollama/tokenizers/envconfig"
	"github.com/ollama/tokenizers/tokenizer"
)

type info struct {
	Model         string            `json:"model"`
	VocabSize     int               `json:"vocab_size"`
	AddedTokens   []string          `json:"added_tokens"`
	SpecialTokens int               `json:"special_tokens_to_add"`
	Truncation    string            `json:"truncation,omitempty"`
	Padding       string            `json:"padding,omitempty"`
	Environment   map[string]string `json:"environment"`
}

func newInfo(t *tokenizer.Tokenizer) info {
	i := info{
		Model:         t.Model().Vocabulary().Kind().String(),
		VocabSize:     t.VocabSize(true),
		SpecialTokens: t.NumSpecialTokensToAdd(false),
		Environment:   envconfig.Values(),
	}

	for _, added := range t.AddedTokens() {
		i.AddedTokens = append(i.AddedTokens, added.Content)
	}

	if tr := t.Truncation(); tr != nil {
		i.Truncation = fmt.Sprintf("max_length=%d stride=%d", tr.MaxLength, tr.Stride)
	}

	if p := t.Padding(); p != nil {
		if p.Strategy == tokenizer.Fixed {
			i.Padding = fmt.Sprintf("fixed=%d pad=%q", p.Length, p.PadToken)
		} else {
			i.Padding = fmt.Sprintf("batch_longest pad=%q", p.PadToken)
		}
	}

	return i
}

func InfoHandler(cmd *cobra.Command, args []string) error {
	t, err := loadTokenizer(cmd)
	if err != nil {
		return err
	}

	i := newInfo(t)

	table, err := useTable(cmd)
	if err != nil {
		return err
	}

	if !table {
		return writeJSON(cmd.OutOrStdout(), i)
	}

	prettyPrintInfo(cmd.OutOrStdout(), i)
	return nil
}

func prettyPrintInfo(out io.Writer, i info) {
	indent := "  "
	data := [][]string{
		{indent, "model", i.Model},
		{indent, "vocab size", strconv.Itoa(i.VocabSize)},
		{indent, "added tokens", strings.Join(i.AddedTokens, " ")},
		{indent, "special tokens", strconv.Itoa(i.SpecialTokens)},
	}

	if i.Truncation != "" {
		data = append(data, []string{indent, "truncation", i.Truncation})
	}

	if i.Padding != "" {
		data = append(data, []string{indent, "padding", i.Padding})
	}

	fmt.Fprintln(out, "Tokenizer")
	table := newTable(out)
	table.AppendBulk(data)
	table.Render()

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Environment")
	table = newTable(out)
	for _, k := range slices.Sorted(maps.Keys(i.Environment)) {
		table.Append([]string{indent, k, i.Environment[k]})
	}
	table.Render()
}

func VocabHandler(cmd *cobra.Command, args []string) error {
	t, err := loadTokenizer(cmd)
	if err != nil {
		return err
	}

	added, err := cmd.Flags().GetBool("added")
	if err != nil {
		return err
	}

	type entry struct {
		ID    int32  `json:"id"`
		Token string `json:"token"`
	}

	var entries []entry
	for token, id := range t.Vocab(added) {
		if len(args) == 0 || strings.HasPrefix(token, args[0]) {
			entries = append(entries, entry{ID: id, Token: token})
		}
	}

	slices.SortFunc(entries, func(a, b entry) int {
		return cmp.Or(cmp.Compare(a.ID, b.ID), strings.Compare(a.Token, b.Token))
	})

	table, err := useTable(cmd)
	if err != nil {
		return err
	}

	if !table {
		for _, e := range entries {
			if err := writeJSON(cmd.OutOrStdout(), e); err != nil {
				return err
			}
		}
		return nil
	}

	data := make([][]string, len(entries))
	for i, e := range entries {
		data[i] = []string{strconv.Itoa(int(e.ID)), strconv.Quote(e.Token)}
	}

	tw := newTable(cmd.OutOrStdout(), "ID", "TOKEN")
	tw.AppendBulk(data)
	tw.Render()
	return nil
}
