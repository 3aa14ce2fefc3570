package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/nnnkkk7/pgcompat/pkg/patch"
	"github.com/spf13/cobra"
)

func newStatusCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the installed patches and compatibility functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				status := a.registry.Status()
				catalog := patch.Catalog(status.Installed, a.installer.Installed(cmd.Context()))

				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(struct {
						Status  patch.Status `json:"status"`
						Patches []patch.Info `json:"patches"`
					}{status, catalog})
				}
				printStatus(out, status, catalog)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print status as JSON")

	return cmd
}

func printStatus(w io.Writer, status patch.Status, catalog []patch.Info) {
	_, _ = infoColor.Fprintf(w, "pgcompat patches v%s\n", patch.Version)
	fmt.Fprintf(w, "  execute patched:  %t\n", status.ExecutePatched)
	fmt.Fprintf(w, "  commit patched:   %t\n", status.CommitPatched)
	fmt.Fprintf(w, "  rollback patched: %t\n\n", status.RollbackPatched)

	for _, info := range catalog {
		if info.Applied {
			_, _ = successColor.Fprint(w, "✓ ")
		} else {
			_, _ = errorColor.Fprint(w, "✗ ")
		}
		fmt.Fprintf(w, "%s (%s): %s\n", info.Name, info.Package, info.Description)
		if len(info.Features) > 0 {
			fmt.Fprintf(w, "    %s\n", strings.Join(info.Features, ", "))
		}
	}
}
