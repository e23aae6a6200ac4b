package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func DecodeHandler(cmd *cobra.Command, args []string) error {
	t, err := loadTokenizer(cmd)
	if err != nil {
		return err
	}

	skipSpecial, err := cmd.Flags().GetBool("skip-special")
	if err != nil {
		return err
	}

	ids := make([]int32, len(args))
	for i, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid token id %q: %w", arg, err)
		}
		ids[i] = int32(id)
	}

	text, err := t.Decode(ids, skipSpecial)
	if err != nil {
		return err
	}

	table, err := useTable(cmd)
	if err != nil {
		return err
	}

	if table {
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	}

	return writeJSON(cmd.OutOrStdout(), map[string]string{"text": text})
}
