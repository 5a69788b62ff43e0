package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/harrison/treedump/internal/config"
	"github.com/harrison/treedump/internal/history"
	"github.com/harrison/treedump/internal/logger"
	"github.com/harrison/treedump/internal/models"
	"github.com/harrison/treedump/internal/selection"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// session holds what every subcommand needs: the effective config, a logger
// on stderr and an engine built from both.
type session struct {
	cfg        *config.Config
	configPath string
	log        *logger.ConsoleLogger
	engine     *selection.Engine
}

// newSession loads the config named by --config (or the home config), applies
// the persistent flags on top and validates the result.
func newSession(cmd *cobra.Command) (*session, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		path, err := config.GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to locate config: %w", err)
		}
		configPath = path
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	var logLevel, sidecarName *string
	var concurrency *int
	if cmd.Flags().Changed("log-level") {
		v, _ := cmd.Flags().GetString("log-level")
		logLevel = &v
	}
	if cmd.Flags().Changed("concurrency") {
		v, _ := cmd.Flags().GetInt("concurrency")
		concurrency = &v
	}
	if cmd.Flags().Changed("sidecar") {
		v, _ := cmd.Flags().GetString("sidecar")
		sidecarName = &v
	}
	cfg.MergeWithFlags(logLevel, concurrency, sidecarName)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	return &session{
		cfg:        cfg,
		configPath: configPath,
		log:        log,
		engine: selection.New(selection.Options{
			SidecarName:   cfg.SidecarName,
			DefaultIgnore: cfg.DefaultIgnore,
			Concurrency:   cfg.Concurrency,
			Logger:        log,
		}),
	}, nil
}

// resolveRoot returns the directory argument, or the current path from config
// when none was given.
func (s *session) resolveRoot(args []string) (string, error) {
	root := s.cfg.CurrentPath
	if len(args) > 0 {
		root = args[0]
	}
	if root == "" {
		return "", fmt.Errorf("no directory given and no current path set; run 'treedump open <dir>' first")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve directory path: %w", err)
	}
	return abs, nil
}

// openHistory opens the history store, or returns nil when history is
// disabled or unavailable. History problems never fail a command.
func (s *session) openHistory() *history.Store {
	if !s.cfg.History.Enabled {
		return nil
	}

	dbPath, err := config.GetHistoryDBPath(s.cfg)
	if err != nil {
		s.log.LogWarn(fmt.Sprintf("History disabled: %v", err))
		return nil
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		s.log.LogWarn(fmt.Sprintf("History disabled: %v", err))
		return nil
	}
	return store
}

func (s *session) recordScan(ctx context.Context, result *models.ScanResult) {
	store := s.openHistory()
	if store == nil {
		return
	}
	defer store.Close()

	if err := store.RecordScan(ctx, result); err != nil {
		s.log.LogWarn(fmt.Sprintf("Failed to record scan: %v", err))
	}
}

func (s *session) recordSave(ctx context.Context, root string, records int, saveErr error) {
	store := s.openHistory()
	if store == nil {
		return
	}
	defer store.Close()

	if err := store.RecordSave(ctx, root, records, saveErr); err != nil {
		s.log.LogWarn(fmt.Sprintf("Failed to record save: %v", err))
	}
}

// colorEnabled reports whether w is a terminal that should get ANSI colors
func colorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return !color.NoColor && isatty.IsTerminal(f.Fd())
}
