package fileutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/harrison/treedump/internal/models"
	"github.com/harrison/treedump/internal/pattern"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ErrSymlinkCycle marks a directory that resolves to one of its own ancestors
var ErrSymlinkCycle = errors.New("symlink cycle")

// ErrNotDirectory is recorded when the scan root exists but is not a directory
var ErrNotDirectory = errors.New("not a directory")

// Logger receives progress and contained-error messages from a scan
type Logger interface {
	LogTrace(message string)
	LogWarn(message string)
}

// TreeOptions configures ScanTree
type TreeOptions struct {
	// Matcher prunes entries; nil excludes nothing
	Matcher *pattern.Matcher
	// Selection maps absolute node ids to persisted records
	Selection map[string]models.FileRecord
	// Concurrency is the maximum number of directories listed at once (<= 1 = sequential)
	Concurrency int
	// Logger is optional
	Logger Logger
}

// TreeResult contains the tree built by ScanTree
type TreeResult struct {
	// Nodes holds the root's entries in directory order; never nil
	Nodes []*models.TreeNode
	// Errors contains contained, non-fatal errors encountered during the walk
	Errors []error
	// RootErr is set when the root itself could not be listed; Nodes is then empty
	RootErr error
	// Directories and Files count the nodes in Nodes
	Directories int
	Files       int
}

// ScanTree walks root and returns a tree of its entries.
//
// Failures are contained where they happen: an unreadable or missing root
// yields an empty tree, an unreadable subdirectory yields a node with empty
// children, and an entry that cannot be statted is skipped. Each is recorded in
// TreeResult.Errors. Ignored entries are never statted and ignored directories are
// never listed. The only error returned is ctx's, when the walk is cancelled.
func ScanTree(ctx context.Context, root string, opts TreeOptions) (*TreeResult, error) {
	w := &treeWalker{
		root: root,
		opts: opts,
	}
	if opts.Concurrency > 1 {
		// The calling goroutine always walks too, so it does not hold a token
		w.sem = semaphore.NewWeighted(int64(opts.Concurrency - 1))
	}

	result := &TreeResult{Nodes: make([]*models.TreeNode, 0)}

	info, err := os.Stat(root)
	if err != nil {
		result.RootErr = fmt.Errorf("failed to access directory: %w", err)
		w.record(result.RootErr)
		result.Errors = w.errs
		return result, nil
	}
	if !info.IsDir() {
		result.RootErr = fmt.Errorf("%w: %s", ErrNotDirectory, root)
		w.record(result.RootErr)
		result.Errors = w.errs
		return result, nil
	}

	nodes, err := w.walkDir(ctx, root, "", []os.FileInfo{info})
	if err != nil {
		return nil, err
	}

	result.Nodes = nodes
	result.Errors = w.errs
	result.RootErr = w.rootErr
	result.Directories = int(w.dirs.Load())
	result.Files = int(w.files.Load())
	return result, nil
}

// treeWalker holds the per-scan state shared by every directory of one walk
type treeWalker struct {
	root  string
	opts  TreeOptions
	sem   *semaphore.Weighted
	dirs  atomic.Int64
	files atomic.Int64

	mu      sync.Mutex
	errs    []error
	rootErr error
}

// walkDir lists dir and returns its surviving entries in listing order.
// rel is dir's slash-separated path relative to the walk root ("" for the root).
// ancestors holds the FileInfo of dir and every directory above it.
func (w *treeWalker) walkDir(ctx context.Context, dir, rel string, ancestors []os.FileInfo) ([]*models.TreeNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.trace(fmt.Sprintf("listing %s", dir))

	entries, err := os.ReadDir(dir)
	if err != nil {
		err = fmt.Errorf("failed to read directory %s: %w", dir, err)
		if rel == "" {
			w.rootErr = err
		}
		w.record(err)
		return make([]*models.TreeNode, 0), nil
	}

	slots := make([]*models.TreeNode, len(entries))
	g, gctx := errgroup.WithContext(ctx)

	for i, entry := range entries {
		name := entry.Name()
		entryRel := path.Join(rel, name)

		if by := w.ignoredBy(name, entryRel); by != "" {
			w.trace(fmt.Sprintf("ignoring %s (%s)", entryRel, by))
			continue
		}

		full := filepath.Join(dir, name)
		info, err := os.Stat(full)
		if err != nil {
			w.record(fmt.Errorf("failed to stat %s: %w", full, err))
			continue
		}

		node := w.newNode(full, name, info)
		slots[i] = node
		if !info.IsDir() {
			continue
		}

		if isAncestor(info, ancestors) {
			w.record(fmt.Errorf("%w: %s", ErrSymlinkCycle, full))
			continue
		}

		childAncestors := append(ancestors[:len(ancestors):len(ancestors)], info)
		descend := func(ctx context.Context) error {
			children, err := w.walkDir(ctx, full, entryRel, childAncestors)
			if err != nil {
				return err
			}
			node.Children = children
			return nil
		}

		if w.sem != nil && w.sem.TryAcquire(1) {
			g.Go(func() error {
				defer w.sem.Release(1)
				return descend(gctx)
			})
			continue
		}

		if err := descend(gctx); err != nil {
			_ = g.Wait()
			return nil, err
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	nodes := make([]*models.TreeNode, 0, len(slots))
	for _, node := range slots {
		if node != nil {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

// ignoredBy returns the pattern excluding the entry, or "". The entry is checked
// both by its name and by its path from the walk root, so separator-free
// patterns and path patterns both apply.
func (w *treeWalker) ignoredBy(name, rel string) string {
	if w.opts.Matcher == nil {
		return ""
	}
	if by := w.opts.Matcher.MatchingPattern(name); by != "" {
		return by
	}
	return w.opts.Matcher.MatchingPattern(rel)
}

func (w *treeWalker) newNode(id, name string, info os.FileInfo) *models.TreeNode {
	node := &models.TreeNode{
		ID:          id,
		Label:       name,
		IsDirectory: info.IsDir(),
	}

	if rec, ok := w.opts.Selection[id]; ok {
		node.Checked = true
		if rec.LineFrom != nil {
			node.LineFrom = models.IntPtr(*rec.LineFrom)
		}
		if rec.LineTo != nil {
			node.LineTo = models.IntPtr(*rec.LineTo)
		}
	}

	if node.IsDirectory {
		node.Children = make([]*models.TreeNode, 0)
		w.dirs.Add(1)
	} else {
		w.files.Add(1)
	}
	return node
}

func (w *treeWalker) record(err error) {
	w.mu.Lock()
	w.errs = append(w.errs, err)
	w.mu.Unlock()

	if w.opts.Logger != nil {
		w.opts.Logger.LogWarn(err.Error())
	}
}

func (w *treeWalker) trace(message string) {
	if w.opts.Logger != nil {
		w.opts.Logger.LogTrace(message)
	}
}

// isAncestor reports whether info is the same directory as any of ancestors
func isAncestor(info os.FileInfo, ancestors []os.FileInfo) bool {
	for _, a := range ancestors {
		if os.SameFile(info, a) {
			return true
		}
	}
	return false
}
