package fileutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrison/treedump/internal/models"
	"github.com/harrison/treedump/internal/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTree creates files (and their parent directories) under root.
// Entries ending in "/" are created as empty directories.
func makeTree(t *testing.T, root string, entries ...string) {
	t.Helper()
	for _, e := range entries {
		path := filepath.Join(root, filepath.FromSlash(e))
		if strings.HasSuffix(e, "/") {
			require.NoError(t, os.MkdirAll(path, 0755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("test content"), 0644))
	}
}

// flatten renders a tree as "rel[/]" lines in pre-order for easy comparison
func flatten(root string, nodes []*models.TreeNode) []string {
	var out []string
	for _, n := range nodes {
		n.Walk(func(node *models.TreeNode) bool {
			rel, _ := filepath.Rel(root, node.ID)
			rel = filepath.ToSlash(rel)
			if node.IsDirectory {
				rel += "/"
			}
			out = append(out, rel)
			return true
		})
	}
	return out
}

type recordingLogger struct {
	traces []string
	warns  []string
}

func (l *recordingLogger) LogTrace(message string) { l.traces = append(l.traces, message) }
func (l *recordingLogger) LogWarn(message string)  { l.warns = append(l.warns, message) }

func TestScanTree(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root,
		"a.txt",
		"b.log",
		"sub/c.txt",
		"sub/deep/d.go",
		"empty/",
		".hidden/h.txt",
	)

	result, err := ScanTree(context.Background(), root, TreeOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Errors)

	assert.Equal(t, []string{
		".hidden/",
		".hidden/h.txt",
		"a.txt",
		"b.log",
		"empty/",
		"sub/",
		"sub/c.txt",
		"sub/deep/",
		"sub/deep/d.go",
	}, flatten(root, result.Nodes))
	assert.Equal(t, 4, result.Directories)
	assert.Equal(t, 5, result.Files)

	for _, n := range result.Nodes {
		n.Walk(func(node *models.TreeNode) bool {
			assert.Equal(t, filepath.Base(node.ID), node.Label)
			assert.False(t, node.Checked)
			assert.Nil(t, node.LineFrom)
			assert.Nil(t, node.LineTo)
			if node.IsDirectory {
				assert.NotNil(t, node.Children, "directory %s must have children", node.ID)
			} else {
				assert.Nil(t, node.Children, "file %s must not have children", node.ID)
			}
			return true
		})
	}
}

func TestScanTree_EmptyDirectoryHasEmptyChildren(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "empty/")

	result, err := ScanTree(context.Background(), root, TreeOptions{})
	require.NoError(t, err)
	require.Len(t, result.Nodes, 1)

	node := result.Nodes[0]
	assert.True(t, node.IsDirectory)
	require.NotNil(t, node.Children)
	assert.Len(t, node.Children, 0)
}

func TestScanTree_IgnorePatterns(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root,
		"a.txt",
		"b.log",
		"sub/c.txt",
		"sub/d.log",
		"node_modules/pkg/index.js",
		"docs/guide.md",
		"docs/api/ref.md",
	)

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{
			name:     "extension pattern prunes at every depth",
			patterns: []string{"*.log"},
			want: []string{
				"a.txt", "docs/", "docs/api/", "docs/api/ref.md", "docs/guide.md",
				"node_modules/", "node_modules/pkg/", "node_modules/pkg/index.js",
				"sub/", "sub/c.txt",
			},
		},
		{
			name:     "directory name prunes whole subtree",
			patterns: []string{"node_modules", "docs"},
			want:     []string{"a.txt", "b.log", "sub/", "sub/c.txt", "sub/d.log"},
		},
		{
			name:     "path pattern relative to root",
			patterns: []string{"docs/*.md"},
			want: []string{
				"a.txt", "b.log", "docs/", "docs/api/", "docs/api/ref.md",
				"node_modules/", "node_modules/pkg/", "node_modules/pkg/index.js",
				"sub/", "sub/c.txt", "sub/d.log",
			},
		},
		{
			name:     "no patterns keeps everything",
			patterns: nil,
			want: []string{
				"a.txt", "b.log", "docs/", "docs/api/", "docs/api/ref.md", "docs/guide.md",
				"node_modules/", "node_modules/pkg/", "node_modules/pkg/index.js",
				"sub/", "sub/c.txt", "sub/d.log",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ScanTree(context.Background(), root, TreeOptions{
				Matcher: pattern.NewMatcher(tt.patterns),
			})
			require.NoError(t, err)
			assert.Empty(t, result.Errors)
			assert.Equal(t, tt.want, flatten(root, result.Nodes))
		})
	}
}

func TestScanTree_IgnoredEntryIsNeverStatted(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "a.txt")
	// A dangling symlink fails stat, so an error would show up if it were touched
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "dangling.lnk")))

	result, err := ScanTree(context.Background(), root, TreeOptions{
		Matcher: pattern.NewMatcher([]string{"*.lnk"}),
	})
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	assert.Equal(t, []string{"a.txt"}, flatten(root, result.Nodes))
}

func TestScanTree_StatFailureSkipsEntry(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "a.txt", "z.txt")
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "m.lnk")))

	logger := &recordingLogger{}
	result, err := ScanTree(context.Background(), root, TreeOptions{Logger: logger})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt", "z.txt"}, flatten(root, result.Nodes))
	require.Len(t, result.Errors, 1)
	assert.True(t, errors.Is(result.Errors[0], os.ErrNotExist))
	assert.Len(t, logger.warns, 1)
	assert.NotEmpty(t, logger.traces)
}

func TestScanTree_UnreadableSubdirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}

	root := t.TempDir()
	makeTree(t, root, "a.txt", "locked/secret.txt", "open/b.txt")
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	result, err := ScanTree(context.Background(), root, TreeOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt", "locked/", "open/", "open/b.txt"}, flatten(root, result.Nodes))
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error(), "failed to read directory")

	lockedNode := result.Nodes[1]
	require.NotNil(t, lockedNode.Children)
	assert.Empty(t, lockedNode.Children)
}

func TestScanTree_MissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "does-not-exist")

	result, err := ScanTree(context.Background(), root, TreeOptions{})
	require.NoError(t, err)
	require.NotNil(t, result.Nodes)
	assert.Empty(t, result.Nodes)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], os.ErrNotExist)
}

func TestScanTree_RootIsFile(t *testing.T) {
	dir := t.TempDir()
	makeTree(t, dir, "file.txt")

	result, err := ScanTree(context.Background(), filepath.Join(dir, "file.txt"), TreeOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Nodes)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], ErrNotDirectory)
}

func TestScanTree_SymlinkCycle(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "sub/a.txt")
	require.NoError(t, os.Symlink(root, filepath.Join(root, "sub", "loop")))

	result, err := ScanTree(context.Background(), root, TreeOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"sub/", "sub/a.txt", "sub/loop/"}, flatten(root, result.Nodes))
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], ErrSymlinkCycle)
}

func TestScanTree_Selection(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "a.txt", "sub/c.txt", "sub/d.txt")

	selection := map[string]models.FileRecord{
		filepath.Join(root, "a.txt"):        {ID: "a.txt", LineFrom: models.IntPtr(1), LineTo: models.IntPtr(5)},
		filepath.Join(root, "sub"):          {ID: "sub"},
		filepath.Join(root, "sub", "d.txt"): {ID: "sub/d.txt", LineFrom: models.IntPtr(4)},
		filepath.Join(root, "gone.txt"):     {ID: "gone.txt"},
	}

	result, err := ScanTree(context.Background(), root, TreeOptions{Selection: selection})
	require.NoError(t, err)
	require.Len(t, result.Nodes, 2)

	a := result.Nodes[0]
	assert.True(t, a.Checked)
	require.NotNil(t, a.LineFrom)
	require.NotNil(t, a.LineTo)
	assert.Equal(t, 1, *a.LineFrom)
	assert.Equal(t, 5, *a.LineTo)

	sub := result.Nodes[1]
	assert.True(t, sub.Checked)
	assert.Nil(t, sub.LineFrom)
	require.Len(t, sub.Children, 2)

	c, d := sub.Children[0], sub.Children[1]
	assert.False(t, c.Checked)
	assert.Nil(t, c.LineFrom)
	assert.True(t, d.Checked)
	assert.Equal(t, 4, *d.LineFrom)
	assert.Nil(t, d.LineTo)

	// Node ranges are copies, not aliases of the persisted records
	*a.LineFrom = 99
	assert.Equal(t, 1, *selection[filepath.Join(root, "a.txt")].LineFrom)
}

func TestScanTree_ConcurrentMatchesSequential(t *testing.T) {
	root := t.TempDir()
	var entries []string
	for _, d := range []string{"a", "b", "c", "d", "e"} {
		for _, s := range []string{"x", "y", "z"} {
			entries = append(entries, d+"/"+s+"/file1.txt", d+"/"+s+"/file2.log", d+"/top.txt")
		}
	}
	makeTree(t, root, entries...)

	opts := TreeOptions{Matcher: pattern.NewMatcher([]string{"*.log"})}
	sequential, err := ScanTree(context.Background(), root, opts)
	require.NoError(t, err)

	opts.Concurrency = 4
	parallel, err := ScanTree(context.Background(), root, opts)
	require.NoError(t, err)

	assert.Equal(t, flatten(root, sequential.Nodes), flatten(root, parallel.Nodes))
	assert.Equal(t, sequential.Directories, parallel.Directories)
	assert.Equal(t, sequential.Files, parallel.Files)
}

func TestScanTree_Cancelled(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "a/b/c.txt")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := ScanTree(ctx, root, TreeOptions{})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanTree_TracesIgnoringPattern(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "keep.txt", "build/out.bin")

	logger := &recordingLogger{}
	_, err := ScanTree(context.Background(), root, TreeOptions{
		Matcher: pattern.NewMatcher([]string{"  build/ "}),
		Logger:  logger,
	})
	require.NoError(t, err)
	assert.Contains(t, logger.traces, "ignoring build (  build/ )")
}
