package models

import (
	"encoding/json"
	"time"
)

// TreeNode represents one filesystem entry in a scan result
type TreeNode struct {
	ID          string      `json:"id"`                 // filepath.Join(root, relative path); identity across rescans
	Label       string      `json:"label"`              // Base name of the entry
	IsDirectory bool        `json:"isDirectory"`        // Fixed from stat at scan time
	Checked     bool        `json:"checked"`            // True iff ID was in the selection index
	LineFrom    *int        `json:"lineFrom,omitempty"` // Set only when Checked and persisted
	LineTo      *int        `json:"lineTo,omitempty"`   // Set only when Checked and persisted
	Children    []*TreeNode `json:"children,omitempty"` // Non-nil iff IsDirectory
}

// MarshalJSON emits "children" for every directory, as [] when it is empty,
// and never for files.
func (n TreeNode) MarshalJSON() ([]byte, error) {
	type wire struct {
		ID          string       `json:"id"`
		Label       string       `json:"label"`
		IsDirectory bool         `json:"isDirectory"`
		Checked     bool         `json:"checked"`
		LineFrom    *int         `json:"lineFrom,omitempty"`
		LineTo      *int         `json:"lineTo,omitempty"`
		Children    *[]*TreeNode `json:"children,omitempty"`
	}

	w := wire{
		ID:          n.ID,
		Label:       n.Label,
		IsDirectory: n.IsDirectory,
		Checked:     n.Checked,
		LineFrom:    n.LineFrom,
		LineTo:      n.LineTo,
	}
	if n.IsDirectory {
		children := n.Children
		if children == nil {
			children = []*TreeNode{}
		}
		w.Children = &children
	}
	return json.Marshal(w)
}

// Walk visits n and every descendant in pre-order. Returning false from fn
// skips that node's children. Nil nodes are skipped.
func (n *TreeNode) Walk(fn func(node *TreeNode) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// ScanResult is the output of one scan of a root directory
type ScanResult struct {
	ScanID             string        `json:"scanId"`
	Root               string        `json:"root"`
	Tree               []*TreeNode   `json:"tree"`
	SelectedIDs        []string      `json:"selectedIds"`
	IgnorePatternsText string        `json:"ignorePatternsText"`
	Errors             []error       `json:"-"` // Contained walk errors (unreadable dirs, vanished entries)
	Warnings           []error       `json:"-"` // Recovered sidecar problems
	Directories        int           `json:"-"`
	Files              int           `json:"-"`
	Duration           time.Duration `json:"-"`
}

// Nodes returns every node in the tree in pre-order
func (r *ScanResult) Nodes() []*TreeNode {
	var nodes []*TreeNode
	for _, top := range r.Tree {
		top.Walk(func(node *TreeNode) bool {
			nodes = append(nodes, node)
			return true
		})
	}
	return nodes
}

// Find returns the node with the given id, or nil
func (r *ScanResult) Find(id string) *TreeNode {
	for _, node := range r.Nodes() {
		if node.ID == id {
			return node
		}
	}
	return nil
}

// Stale returns selected ids that have no node in the tree (deleted, renamed or
// now ignored), in SelectedIDs order.
func (r *ScanResult) Stale() []string {
	present := make(map[string]bool)
	for _, node := range r.Nodes() {
		present[node.ID] = true
	}

	stale := make([]string, 0)
	for _, id := range r.SelectedIDs {
		if !present[id] {
			stale = append(stale, id)
		}
	}
	return stale
}
