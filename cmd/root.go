// Package cmd implements siphon's CLI: a chunked HTTP(S) downloader
// fronting internal/engine/chunked, with a small history ledger for past
// downloads.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set via ldflags during build.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:     "siphon",
	Short:   "A multi-connection HTTP(S) file downloader",
	Long:    `siphon splits a download into parallel ranged-request chunks, throttles and retries each independently, and merges the result into one file.`,
	Version: Version,
}

// Execute runs the CLI, exiting the process with status 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.SetVersionTemplate("siphon version {{.Version}}\n")
}
