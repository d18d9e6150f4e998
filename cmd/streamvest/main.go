// Command streamvest manages a ledger of continuous payment streams.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/streamvest/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
