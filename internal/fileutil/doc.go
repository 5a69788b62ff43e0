// Package fileutil builds the directory tree a scan returns.
//
// ScanTree walks a root depth-first and produces one models.TreeNode per
// surviving entry. Each entry is checked against the ignore matcher before it is
// statted, so an ignored directory is never listed and nothing below it is
// visited. Nodes whose id appears in the selection map come back checked, with
// the persisted line range copied over.
//
// # Error Tolerance
//
// The walk never fails because of the filesystem. Problems are collected in
// TreeResult.Errors and the walk continues:
//   - root missing, unreadable or not a directory: empty tree
//   - subdirectory unreadable: that node keeps an empty children list
//   - entry vanished or cannot be statted between listing and stat: entry skipped
//   - directory that is its own ancestor through a symlink: empty children
//
// Only cancellation of the context passed to ScanTree aborts a walk.
//
// # Ordering
//
// Siblings keep the order os.ReadDir reports, which is sorted by name. With
// TreeOptions.Concurrency above one, subdirectories are listed in parallel but
// results are placed by listing index, so output is identical to a sequential walk.
//
// # Usage
//
//	result, err := fileutil.ScanTree(ctx, "/path/to/root", fileutil.TreeOptions{
//	    Matcher:   pattern.NewMatcher([]string{"*.log", "node_modules"}),
//	    Selection: index,
//	})
//	if err != nil {
//	    return err // cancelled
//	}
//	for _, werr := range result.Errors {
//	    log.Printf("skipped: %v", werr)
//	}
package fileutil
