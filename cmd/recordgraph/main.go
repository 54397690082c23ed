// Command recordgraph queries and edits typed in-memory records.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/recordgraph/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Errors wrapping a cause were already reported through the formatter.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || exitErr.Err == nil {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
