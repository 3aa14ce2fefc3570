package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/nnnkkk7/pgcompat/pkg/diagnostic"
	"github.com/nnnkkk7/pgcompat/pkg/query"
	"github.com/nnnkkk7/pgcompat/server/types"
	"github.com/spf13/cobra"
)

func newTranslateCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "translate [sql...]",
		Short: "Translate MySQL-dialect statements without executing them",
		Long: `Translate each argument as one statement and print the PostgreSQL-compatible
text. With no arguments the statement is read from standard input.
Translation gaps are logged to standard error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			statements := args
			if len(statements) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read statement: %w", err)
				}
				stmt := strings.TrimSpace(string(data))
				if stmt == "" {
					return fmt.Errorf("no statement given")
				}
				statements = []string{stmt}
			}
			return runTranslate(cmd, opts, statements, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print full translation results as JSON")

	return cmd
}

func runTranslate(cmd *cobra.Command, opts *rootOptions, statements []string, asJSON bool) error {
	ctx := cmd.Context()
	translator := query.NewTranslatorFromConfig(opts.cfg, diagnostic.NewLogSink(opts.logger))
	classifier := query.NewClassifier()

	results := make([]types.TranslateResult, 0, len(statements))
	for _, stmt := range statements {
		results = append(results, types.NewTranslateResult(translator.Translate(ctx, stmt), classifier.Classify(stmt)))
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	warn := color.New(color.FgYellow)
	for _, res := range results {
		fmt.Fprintln(out, res.Transformed)
		if res.ResidualCount > 0 {
			_, _ = warn.Fprintf(cmd.ErrOrStderr(), "-- %d conditional call(s) left untranslated\n", res.ResidualCount)
		}
	}
	return nil
}
