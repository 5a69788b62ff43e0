// Package selection scans a root directory into a tree annotated with the
// selection persisted in the root's sidecar file, and persists edited
// selections back.
//
// A scan is a pure function of the filesystem at call time and the sidecar
// content: nothing carries over between scans except through the sidecar.
package selection

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/treedump/internal/fileutil"
	"github.com/harrison/treedump/internal/filelock"
	"github.com/harrison/treedump/internal/models"
	"github.com/harrison/treedump/internal/pattern"
	"github.com/harrison/treedump/internal/sidecar"
)

// Logger is the logging surface the engine needs.
// *logger.ConsoleLogger satisfies it.
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
}

// Options configures an Engine
type Options struct {
	// SidecarName is the sidecar file name inside each root (default sidecar.DefaultName)
	SidecarName string
	// DefaultIgnore patterns apply to every scan in addition to the sidecar's.
	// They are never written into a sidecar.
	DefaultIgnore []string
	// Concurrency bounds parallel directory listing (<= 1 = sequential)
	Concurrency int
	// Logger is optional
	Logger Logger
}

// Engine runs scans and persists selections
type Engine struct {
	sidecarName   string
	defaultIgnore []string
	concurrency   int
	logger        Logger
}

// New creates an Engine
func New(opts Options) *Engine {
	name := opts.SidecarName
	if name == "" {
		name = sidecar.DefaultName
	}
	return &Engine{
		sidecarName:   name,
		defaultIgnore: append([]string(nil), opts.DefaultIgnore...),
		concurrency:   opts.Concurrency,
		logger:        opts.Logger,
	}
}

// SidecarPath returns the sidecar location for root
func (e *Engine) SidecarPath(root string) string {
	return sidecar.Path(absRoot(root), e.sidecarName)
}

// Scan reads root's sidecar and scans root.
//
// A missing sidecar means no selection and no patterns. An unreadable or
// malformed one is recorded in ScanResult.Warnings and treated the same way. The
// returned error is non-nil only when ctx is cancelled.
func (e *Engine) Scan(ctx context.Context, root string) (*models.ScanResult, error) {
	root = absRoot(root)

	var persisted []byte
	var warnings []error

	data, err := os.ReadFile(sidecar.Path(root, e.sidecarName))
	switch {
	case err == nil:
		persisted = data
	case errors.Is(err, os.ErrNotExist):
	default:
		warnings = append(warnings, fmt.Errorf("failed to read sidecar: %w", err))
	}

	result, err := e.ScanWithState(ctx, root, persisted)
	if err != nil {
		return nil, err
	}
	result.Warnings = append(warnings, result.Warnings...)
	return result, nil
}

// ScanWithState scans root using persisted as the sidecar content.
// A nil persisted means there is no sidecar.
func (e *Engine) ScanWithState(ctx context.Context, root string, persisted []byte) (*models.ScanResult, error) {
	start := time.Now()
	root = absRoot(root)

	result := &models.ScanResult{
		ScanID:      uuid.NewString(),
		Root:        root,
		Tree:        make([]*models.TreeNode, 0),
		SelectedIDs: make([]string, 0),
	}

	e.info(fmt.Sprintf("Scanning directory: %s", root))

	var state models.Sidecar
	if persisted != nil {
		sc, err := sidecar.Parse(persisted)
		if err != nil {
			e.warn(fmt.Sprintf("Ignoring sidecar for %s: %v", root, err))
			result.Warnings = append(result.Warnings, err)
		} else {
			state = sc
		}
	}

	index := sidecar.BuildIndex(root, state.Files)
	patterns := append(sidecar.SplitPatterns(state.IgnorePatterns), e.defaultIgnore...)
	e.debug(fmt.Sprintf("%d selected, %d ignore patterns", len(index), len(patterns)))

	tree, err := fileutil.ScanTree(ctx, root, fileutil.TreeOptions{
		Matcher:     pattern.NewMatcher(patterns),
		Selection:   index,
		Concurrency: e.concurrency,
		Logger:      e.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("scan of %s cancelled: %w", root, err)
	}

	result.Errors = tree.Errors
	result.Duration = time.Since(start)

	// An unlistable root is reported as an empty result with no selection
	if tree.RootErr != nil {
		e.warn(fmt.Sprintf("Cannot scan %s: %v", root, tree.RootErr))
		return result, nil
	}

	result.Tree = tree.Nodes
	result.SelectedIDs = index.Keys()
	result.IgnorePatternsText = state.IgnorePatterns
	result.Directories = tree.Directories
	result.Files = tree.Files

	e.debug(fmt.Sprintf("Scanned %s: %d directories, %d files, %d skipped in %s",
		root, tree.Directories, tree.Files, len(tree.Errors), result.Duration.Round(time.Millisecond)))
	return result, nil
}

// Persist overwrites root's sidecar with ignoreText and selection.
//
// The list is written as given, without filtering on Checked; callers pass
// the records they want kept. Ids that are absolute paths inside root are
// rewritten relative to root with "/" separators. The write is serialized with
// other writers through a file lock and replaces the file atomically.
func (e *Engine) Persist(ctx context.Context, root string, selection []models.FileRecord, ignoreText string) error {
	root = absRoot(root)

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", root)
	}

	files := make([]models.FileRecord, len(selection))
	for i, rec := range selection {
		rec.ID = sidecar.RelativeID(root, rec.ID)
		files[i] = rec
	}

	data, err := sidecar.Encode(models.Sidecar{
		IgnorePatterns: ignoreText,
		Files:          files,
	})
	if err != nil {
		return err
	}

	path := sidecar.Path(root, e.sidecarName)
	if err := filelock.LockAndWrite(ctx, path, data); err != nil {
		return fmt.Errorf("failed to save selection: %w", err)
	}

	e.info(fmt.Sprintf("Saved %d selected entries to %s", len(files), path))
	return nil
}

func (e *Engine) info(message string) {
	if e.logger != nil {
		e.logger.LogInfo(message)
	}
}

func (e *Engine) debug(message string) {
	if e.logger != nil {
		e.logger.LogDebug(message)
	}
}

func (e *Engine) warn(message string) {
	if e.logger != nil {
		e.logger.LogWarn(message)
	}
}

// absRoot resolves root to a clean absolute path, falling back to the cleaned
// input when the working directory is unavailable.
func absRoot(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return filepath.Clean(root)
	}
	return abs
}
