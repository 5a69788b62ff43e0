package models

// FileRecord is one persisted selection entry. ID is relative to the scanned
// root and uses forward slashes.
type FileRecord struct {
	ID       string `json:"id"`
	Checked  *bool  `json:"checked,omitempty"`
	LineFrom *int   `json:"lineFrom,omitempty"`
	LineTo   *int   `json:"lineTo,omitempty"`
}

// HasRange reports whether both ends of the line range were recorded
func (r FileRecord) HasRange() bool {
	return r.LineFrom != nil && r.LineTo != nil
}

// Sidecar is the durable per-root state file
type Sidecar struct {
	IgnorePatterns string       `json:"ignore_patterns"`
	Files          []FileRecord `json:"files"`
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}

// BoolPtr returns a pointer to v
func BoolPtr(v bool) *bool {
	return &v
}
