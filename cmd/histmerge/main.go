// Command histmerge exports browser history as a sorted, deduplicated text
// file and merges it with previous exports.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/histmerge/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "histmerge: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
