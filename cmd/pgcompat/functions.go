package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

// withApp runs fn against a database-backed app and closes it afterwards.
func withApp(ctx context.Context, opts *rootOptions, fn func(*app) error) (err error) {
	a, err := newApp(ctx, opts.cfg, opts.logger, true)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(a)
}

func newInstallFunctionsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "install-functions",
		Short: "Create the GROUP_CONCAT, unix_timestamp and timestampdiff routines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				report, err := a.installer.Install(cmd.Context())
				if err != nil {
					return err
				}
				printInstallReport(cmd.OutOrStdout(), report.Succeeded, report.Warnings)
				return nil
			})
		},
	}
}

func printInstallReport(w io.Writer, succeeded int, warnings []string) {
	if len(warnings) == 0 {
		_, _ = successColor.Fprintf(w, "✓ Created compatibility functions (%d statements)\n", succeeded)
		return
	}
	_, _ = warningColor.Fprintf(w, "! Created functions with %d warnings (%d succeeded)\n", len(warnings), succeeded)
	for _, warning := range warnings {
		fmt.Fprintf(w, "  - %s\n", warning)
	}
}

func newVerifyFunctionsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-functions",
		Short: "Run a test query against each compatibility routine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				passed, checks := a.installer.Verify(cmd.Context())
				out := cmd.OutOrStdout()
				for _, c := range checks {
					if c.Passed {
						_, _ = successColor.Fprint(out, "PASS ")
						fmt.Fprintf(out, "%s = %s\n", c.Name, c.Actual)
						continue
					}
					_, _ = errorColor.Fprint(out, "FAIL ")
					if c.Error != "" {
						fmt.Fprintf(out, "%s: %s\n", c.Name, c.Error)
					} else {
						fmt.Fprintf(out, "%s = %s, want %s\n", c.Name, c.Actual, c.Expected)
					}
				}
				if !passed {
					return fmt.Errorf("compatibility function verification failed")
				}
				return nil
			})
		},
	}
}

func newDropFunctionsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drop-functions",
		Short: "Remove the compatibility routines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				if err := a.installer.Drop(cmd.Context()); err != nil {
					return err
				}
				_, _ = successColor.Fprintln(cmd.OutOrStdout(), "✓ Dropped compatibility functions")
				return nil
			})
		},
	}
}
