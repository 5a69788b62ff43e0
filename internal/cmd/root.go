package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for treedump
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "treedump",
		Short: "Scan directory trees and keep a persistent file selection",
		Long: `treedump scans a directory into a tree, marks the entries selected in the
directory's treedump.json file, and saves edited selections back to it.

Each scanned directory carries its own selection and ignore patterns in a
sidecar file, so selections travel with the directory. Ignore patterns use
glob syntax and match entry names or paths relative to the scanned directory.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: $TREEDUMP_HOME/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error (default: from config)")
	cmd.PersistentFlags().Int("concurrency", 0, "Directories listed in parallel (default: from config)")
	cmd.PersistentFlags().String("sidecar", "", "Sidecar file name inside each directory (default: from config)")

	cmd.AddCommand(NewScanCommand())
	cmd.AddCommand(NewSaveCommand())
	cmd.AddCommand(NewOpenCommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewConfigCommand())

	return cmd
}
