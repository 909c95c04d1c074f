// Command groupmeal runs the group order auto-pick job.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/groupmeal/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
