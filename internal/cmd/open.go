package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/harrison/treedump/internal/config"
	"github.com/spf13/cobra"
)

// NewOpenCommand creates the open command
func NewOpenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open [dir]",
		Short: "Set or show the current directory",
		Long: `Remember a directory as the current path so later commands can omit it.
Without an argument, print the current path.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			dir := ""
			if len(args) > 0 {
				dir = args[0]
			}
			return openWithOutput(cmd.Context(), s, dir, cmd.OutOrStdout())
		},
	}

	return cmd
}

// openWithOutput stores dir as the current path, or prints the current path
// when dir is empty.
func openWithOutput(ctx context.Context, s *session, dir string, out io.Writer) error {
	if dir == "" {
		if s.cfg.CurrentPath == "" {
			fmt.Fprintln(out, "No current path set")
			return nil
		}
		fmt.Fprintln(out, s.cfg.CurrentPath)
		return nil
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve directory path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", abs)
	}

	// Reload so flag overrides merged into s.cfg stay one-off
	stored, err := config.LoadConfig(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config from %s: %w", s.configPath, err)
	}
	stored.CurrentPath = abs
	if err := config.SaveConfig(ctx, s.configPath, stored); err != nil {
		return err
	}
	s.cfg.CurrentPath = abs

	s.log.LogInfo(fmt.Sprintf("Current path saved to %s", s.configPath))
	fmt.Fprintf(out, "Current path: %s\n", abs)
	return nil
}
