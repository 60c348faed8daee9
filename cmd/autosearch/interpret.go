package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PonchoGAD/auto-search-mvp/internal/usecase/interpret"
)

var interpretCmd = &cobra.Command{
	Use:   "interpret <query>",
	Short: "Print the structured query extracted from free text",
	Long:  "Runs only the query interpreter. No index, embedding provider or search log is contacted.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lex, err := loadLexicon()
		if err != nil {
			return err
		}

		raw := strings.Join(args, " ")
		sq, residual := interpret.New(lex).Interpret(raw)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(map[string]any{ //nolint:wrapcheck // CLI output
			"structuredQuery": sq,
			"residual":        residual,
			"query_language":  interpret.DetectLanguage(raw),
		})
	},
}

func init() {
	rootCmd.AddCommand(interpretCmd)
}
