package main

import (
	"fmt"
	"os"

	"github.com/roach88/cadenza/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		code := cli.GetExitCode(err)
		// Commands print their own failure output; surface only
		// command-level errors (bad flags, unreadable paths).
		if code == cli.ExitCommandError {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(code)
	}
}
