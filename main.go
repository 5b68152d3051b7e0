// ./main.go
package main

import (
	"context"
	"os"

	"github.com/xkilldash9x/fintel-cli/cmd"
)

// main is the entry point for the fintel CLI application.
func main() {
	// Execute the root command defined in the cmd package.
	// This handles all command-line parsing, configuration, and execution.
	if err := cmd.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
