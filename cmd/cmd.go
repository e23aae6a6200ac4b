package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ollama/tokenizers/envconfig"
	"github.com/ollama/tokenizers/logutil"
	"github.com/ollama/tokenizers/tokenizer"
)

var errUnknownFormat = errors.New("unknown output format")

func loadTokenizer(cmd *cobra.Command) (*tokenizer.Tokenizer, error) {
	path, err := cmd.Flags().GetString("tokenizer")
	if err != nil {
		return nil, err
	}

	return tokenizer.Load(path)
}

// useTable reports whether output is rendered as a table. Without an
// explicit --format, tables are used for terminals and JSON otherwise.
func useTable(cmd *cobra.Command) (bool, error) {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return false, err
	}

	switch format {
	case "table":
		return true, nil
	case "json":
		return false, nil
	case "":
		f, ok := cmd.OutOrStdout().(*os.File)
		return ok && term.IsTerminal(int(f.Fd())), nil
	default:
		return false, fmt.Errorf("%w %q", errUnknownFormat, format)
	}
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	if len(header) > 0 {
		table.SetHeader(header)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	}
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.SetAutoWrapText(false)
	return table
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// readInput joins args or, without args, reads all of stdin.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	bts, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(bts), "\n"), nil
}

// readLines reads one input per line from stdin.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tokenize",
		Short: "Encode and decode text with Hugging Face tokenizer.json files",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
			slog.SetDefault(logutil.NewLogger(cmd.ErrOrStderr(), envconfig.LogLevel()))
		},
	}

	rootCmd.PersistentFlags().StringP("tokenizer", "t", "tokenizer.json", "Path to a tokenizer.json file")
	rootCmd.PersistentFlags().String("format", "", "Output format: table or json (default table on a terminal, json otherwise)")

	cobra.EnableCommandSorting = false

	encodeCmd := &cobra.Command{
		Use:   "encode [TEXT...]",
		Short: "Encode text into token ids",
		Long:  "Encode text into token ids. Without arguments the text is read from stdin.",
		RunE:  EncodeHandler,
	}

	encodeCmd.Flags().String("pair", "", "Second sequence to encode with the text")
	encodeCmd.Flags().Bool("no-special", false, "Do not add special tokens")

	decodeCmd := &cobra.Command{
		Use:   "decode ID...",
		Short: "Decode token ids into text",
		Args:  cobra.MinimumNArgs(1),
		RunE:  DecodeHandler,
	}

	decodeCmd.Flags().Bool("skip-special", false, "Drop special tokens from the output")

	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Encode every line of stdin",
		Args:  cobra.NoArgs,
		RunE:  BatchHandler,
	}

	batchCmd.Flags().Bool("no-special", false, "Do not add special tokens")
	batchCmd.Flags().Int("parallel", 0, "Maximum lines encoded in parallel (default TOKENIZERS_NUM_PARALLEL)")

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show tokenizer details",
		Args:  cobra.NoArgs,
		RunE:  InfoHandler,
	}

	vocabCmd := &cobra.Command{
		Use:   "vocab [PREFIX]",
		Short: "List vocabulary tokens",
		Args:  cobra.MaximumNArgs(1),
		RunE:  VocabHandler,
	}

	vocabCmd.Flags().Bool("added", false, "Include added tokens")

	envVars := envconfig.AsMap()
	envs := []envconfig.EnvVar{envVars["TOKENIZERS_DEBUG"], envVars["TOKENIZERS_NUM_PARALLEL"], envVars["TOKENIZERS_BPE_CACHE_SIZE"], envVars["TOKENIZERS_MAX_INPUT_CHARS_PER_WORD"]}
	for _, cmd := range []*cobra.Command{encodeCmd, decodeCmd, batchCmd, infoCmd, vocabCmd} {
		appendEnvDocs(cmd, envs)
	}

	rootCmd.AddCommand(
		encodeCmd,
		decodeCmd,
		batchCmd,
		infoCmd,
		vocabCmd,
	)

	return rootCmd
}

func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-36s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}
