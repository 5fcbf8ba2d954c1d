// Command bosync reconciles a betting catalog against a proposal/approval
// ledger.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/bosync/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "bosync:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
