// Package main provides the pgcompat command: the admin server, the
// translation preview and compatibility function management.
package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/lib/pq"
)

// Version information (set by build)
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
