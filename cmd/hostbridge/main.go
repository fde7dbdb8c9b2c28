// Package main provides the entry point for the hostbridge CLI.
package main

import (
	"fmt"
	"os"

	"github.com/opencode-ai/hostbridge/cmd/hostbridge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
