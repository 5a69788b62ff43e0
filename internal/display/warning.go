package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Files      []string // Related entries (optional)
	Suggestion string   // Action to take (optional)
}

// Display writes the warning to out, in yellow when colored is set
func (w Warning) Display(out io.Writer, colored bool) {
	var b strings.Builder

	b.WriteString("Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Files) > 0 {
		b.WriteString("    ")
		if len(w.Files) == 1 {
			b.WriteString("Affected entry:\n")
		} else {
			b.WriteString("Affected entries:\n")
		}

		for i, file := range w.Files {
			b.WriteString(fmt.Sprintf("      %d. %s\n", i+1, file))
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	fmt.Fprint(out, paint(color.New(color.FgYellow), colored, b.String()))
}

// WarnStaleSelections creates a warning for selected ids that no longer
// appear in the tree. Ids are shown relative to root where possible.
func WarnStaleSelections(root string, stale []string) Warning {
	files := make([]string, len(stale))
	for i, id := range stale {
		files[i] = relativeLabel(root, id)
	}

	return Warning{
		Title:      fmt.Sprintf("%d selected %s not found", len(stale), plural(len(stale), "entry", "entries")),
		Message:    "They no longer exist on disk or are now ignored. They stay in the selection until the next save.",
		Files:      files,
		Suggestion: "Run 'treedump save' to drop them from the selection",
	}
}

// WarnSkippedEntries creates a warning for entries the scan could not read
func WarnSkippedEntries(errs []error) Warning {
	files := make([]string, len(errs))
	for i, err := range errs {
		files[i] = err.Error()
	}

	return Warning{
		Title: fmt.Sprintf("%d %s skipped during scan", len(errs), plural(len(errs), "entry", "entries")),
		Files: files,
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
