// File: cmd/version.go
package cmd

import (
	"runtime"

	"github.com/spf13/cobra"
)

// Version is the application version.
// This value is intended to be set at build time using ldflags.
// Example: go build -ldflags "-X github.com/xkilldash9x/fintel-cli/cmd.Version=1.0.0"
var Version = "0.1.0"

// newVersionCmd reports the build version.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the fintel version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("fintel %s %s/%s\n", Version, runtime.GOOS, runtime.GOARCH)
		},
	}
}
