package display

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/harrison/treedump/internal/models"
)

const (
	branchMid  = "├── "
	branchLast = "└── "
	indentMid  = "│   "
	indentLast = "    "
)

// TreeOptions controls RenderTree output
type TreeOptions struct {
	Colored bool
	// SelectedOnly hides unchecked files and directories with no checked descendant
	SelectedOnly bool
}

// RenderTree writes result as an indented tree headed by the root path
func RenderTree(out io.Writer, result *models.ScanResult, opts TreeOptions) {
	fmt.Fprintln(out, paint(color.New(color.Bold), opts.Colored, result.Root))

	nodes := visible(result.Tree, opts.SelectedOnly)
	if len(nodes) == 0 {
		fmt.Fprintln(out, paint(color.New(color.FgHiBlack), opts.Colored, "(empty)"))
		return
	}
	renderNodes(out, nodes, "", opts)
}

func renderNodes(out io.Writer, nodes []*models.TreeNode, prefix string, opts TreeOptions) {
	for i, node := range nodes {
		last := i == len(nodes)-1

		branch, indent := branchMid, indentMid
		if last {
			branch, indent = branchLast, indentLast
		}

		fmt.Fprintf(out, "%s%s%s\n", prefix, branch, formatNode(node, opts.Colored))

		if node.IsDirectory {
			renderNodes(out, visible(node.Children, opts.SelectedOnly), prefix+indent, opts)
		}
	}
}

// formatNode renders "[x] label" with a trailing "/" for directories and the
// line range for checked files that have one.
func formatNode(node *models.TreeNode, colored bool) string {
	marker := "[ ]"
	if node.Checked {
		marker = paint(color.New(color.FgGreen), colored, "[x]")
	}

	label := node.Label
	if node.IsDirectory {
		label = paint(color.New(color.FgBlue, color.Bold), colored, label+"/")
	}

	line := marker + " " + label
	if r := formatRange(node); r != "" {
		line += " " + paint(color.New(color.FgCyan), colored, r)
	}
	return line
}

// formatRange returns "(L<from>-<to>)", "(L<from>-)" or "(L-<to>)", or ""
// when the node has no range.
func formatRange(node *models.TreeNode) string {
	if node.LineFrom == nil && node.LineTo == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("(L")
	if node.LineFrom != nil {
		fmt.Fprintf(&b, "%d", *node.LineFrom)
	}
	b.WriteString("-")
	if node.LineTo != nil {
		fmt.Fprintf(&b, "%d", *node.LineTo)
	}
	b.WriteString(")")
	return b.String()
}

func visible(nodes []*models.TreeNode, selectedOnly bool) []*models.TreeNode {
	if !selectedOnly {
		return nodes
	}

	kept := make([]*models.TreeNode, 0, len(nodes))
	for _, node := range nodes {
		if hasChecked(node) {
			kept = append(kept, node)
		}
	}
	return kept
}

func hasChecked(node *models.TreeNode) bool {
	found := false
	node.Walk(func(n *models.TreeNode) bool {
		if n.Checked {
			found = true
		}
		return !found
	})
	return found
}

// RenderSummary writes a one-line count of directories, files and selections
func RenderSummary(out io.Writer, result *models.ScanResult, colored bool) {
	selected := len(result.SelectedIDs)
	line := fmt.Sprintf("%d %s, %d %s, %d selected",
		result.Directories, plural(result.Directories, "directory", "directories"),
		result.Files, plural(result.Files, "file", "files"),
		selected)

	if stale := len(result.Stale()); stale > 0 {
		line += fmt.Sprintf(" (%d stale)", stale)
	}

	fmt.Fprintln(out, paint(color.New(color.FgHiBlack), colored, line))
}

// paint applies c to s when colored is set. Color is forced on or off so the
// result does not depend on fatih/color's global terminal detection.
func paint(c *color.Color, colored bool, s string) string {
	if colored {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(s)
}

// relativeLabel shows id relative to root with "/" separators, or id itself
// when it lies outside root.
func relativeLabel(root, id string) string {
	rel, err := filepath.Rel(root, id)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return id
	}
	return filepath.ToSlash(rel)
}
