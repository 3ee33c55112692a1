// Command fintrackctl mints development tokens and prints analytics reports
// straight from the configured store.
package main

import (
	"fmt"
	"os"

	"fintrack/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	if err := newRootCmd(logger).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
