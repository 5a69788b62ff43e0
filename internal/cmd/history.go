package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/treedump/internal/history"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [dir]",
		Short: "List recorded scans and saves",
		Long: `List recorded scan and save events, most recent first.

Without a directory, events for the current path are listed; with --all, or
when no current path is set, events for every directory are listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}

			all, _ := cmd.Flags().GetBool("all")
			limit, _ := cmd.Flags().GetInt("limit")

			root := ""
			if len(args) > 0 || (!all && s.cfg.CurrentPath != "") {
				root, err = s.resolveRoot(args)
				if err != nil {
					return err
				}
			}
			return historyWithOutput(cmd.Context(), s, root, limit, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of events to list (0 = all)")
	cmd.Flags().Bool("all", false, "List events for every directory")

	return cmd
}

// historyWithOutput lists events for root (every root when empty)
func historyWithOutput(ctx context.Context, s *session, root string, limit int, out io.Writer) error {
	if !s.cfg.History.Enabled {
		fmt.Fprintln(out, "History is disabled (history.enabled: false)")
		return nil
	}

	store := s.openHistory()
	if store == nil {
		return fmt.Errorf("history database unavailable")
	}
	defer store.Close()

	events, err := store.Recent(ctx, root, limit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if len(events) == 0 {
		if root == "" {
			fmt.Fprintln(out, "No history recorded")
		} else {
			fmt.Fprintf(out, "No history recorded for %s\n", root)
		}
		return nil
	}

	colored := colorEnabled(out)
	for _, e := range events {
		fmt.Fprintln(out, formatEvent(e, root == "", colored))
	}
	return nil
}

// formatEvent renders one event as a single line
func formatEvent(e *history.Event, showRoot bool, colored bool) string {
	ts := e.Timestamp.Local().Format("2006-01-02 15:04:05")

	var detail string
	switch e.Kind {
	case history.KindScan:
		detail = fmt.Sprintf("%d dirs, %d files, %d selected", e.Directories, e.Files, e.Selected)
		if e.Stale > 0 {
			detail += fmt.Sprintf(", %d stale", e.Stale)
		}
		if e.Skipped > 0 {
			detail += fmt.Sprintf(", %d skipped", e.Skipped)
		}
		detail += fmt.Sprintf(" (%s)", e.Duration.Round(time.Millisecond))
	case history.KindSave:
		if e.ErrorMessage != "" {
			detail = "failed: " + e.ErrorMessage
		} else {
			detail = fmt.Sprintf("%d %s", e.Files, pluralize(e.Files, "entry", "entries"))
		}
	default:
		detail = e.Kind
	}

	kind := fmt.Sprintf("%-4s", e.Kind)
	if colored {
		c := color.New(color.FgCyan)
		if e.ErrorMessage != "" {
			c = color.New(color.FgRed)
		}
		c.EnableColor()
		kind = c.Sprint(kind)
	}

	line := fmt.Sprintf("%s  %s  ", ts, kind)
	if showRoot {
		line += filepath.Clean(e.Root) + "  "
	}
	return line + detail
}
