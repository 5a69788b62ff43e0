package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/harrison/treedump/internal/display"
	"github.com/spf13/cobra"
)

// scanOptions selects how a scan result is printed
type scanOptions struct {
	JSON         bool
	SelectedOnly bool
	Colored      bool
}

// NewScanCommand creates the scan command
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Scan a directory and show its persisted selection",
		Long: `Scan a directory into a tree, skipping entries that match the ignore
patterns in the directory's sidecar file, and mark the entries the sidecar
selects. Without a directory the current path (see 'treedump open') is used.

Selected entries that no longer appear in the tree are reported as stale.
They stay in the sidecar until the next save.

Examples:
  treedump scan ~/project
  treedump scan --selected          # only checked entries and their parents
  treedump scan --json > scan.json  # machine-readable result`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			root, err := s.resolveRoot(args)
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			selectedOnly, _ := cmd.Flags().GetBool("selected")
			opts := scanOptions{
				JSON:         jsonOut,
				SelectedOnly: selectedOnly,
				Colored:      colorEnabled(cmd.OutOrStdout()),
			}
			return scanWithOutput(cmd.Context(), s, root, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().Bool("json", false, "Print the scan result as JSON")
	cmd.Flags().Bool("selected", false, "Only show checked entries and the directories containing them")

	return cmd
}

// scanWithOutput scans root and prints the result to out, with warnings on errOut
func scanWithOutput(ctx context.Context, s *session, root string, opts scanOptions, out, errOut io.Writer) error {
	result, err := s.engine.Scan(ctx, root)
	if err != nil {
		return err
	}

	s.log.LogScanSummary(result)
	for _, w := range result.Warnings {
		s.log.LogWarn(w.Error())
	}
	s.recordScan(ctx, result)

	if opts.JSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode scan result: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	display.RenderTree(out, result, display.TreeOptions{
		Colored:      opts.Colored,
		SelectedOnly: opts.SelectedOnly,
	})
	display.RenderSummary(out, result, opts.Colored)

	if stale := result.Stale(); len(stale) > 0 {
		display.WarnStaleSelections(result.Root, stale).Display(errOut, colorEnabled(errOut))
	}
	if len(result.Errors) > 0 {
		display.WarnSkippedEntries(result.Errors).Display(errOut, colorEnabled(errOut))
	}

	return nil
}
