package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// colorScheme defines consistent colors for scan metrics.
// Green: selected entries
// Red: skipped entries
// Yellow: stale selections
// Cyan: labels
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	value   *color.Color
}

func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
	}
}

type scanMetrics struct {
	directories int
	files       int
	selected    int
	stale       int
	skipped     int
}

// formatScanMetrics formats metrics as plain text.
// Format: "dirs: N, files: N, selected: N[, stale: N][, skipped: N]"
func formatScanMetrics(m scanMetrics) string {
	parts := []string{
		fmt.Sprintf("dirs: %d", m.directories),
		fmt.Sprintf("files: %d", m.files),
		fmt.Sprintf("selected: %d", m.selected),
	}
	if m.stale > 0 {
		parts = append(parts, fmt.Sprintf("stale: %d", m.stale))
	}
	if m.skipped > 0 {
		parts = append(parts, fmt.Sprintf("skipped: %d", m.skipped))
	}
	return strings.Join(parts, ", ")
}

// formatColorizedMetric formats a single metric with colorized label and value.
// Format: "label: value"
func formatColorizedMetric(label string, value interface{}, scheme *colorScheme) string {
	labelColored := scheme.label.Sprint(label)
	valueColored := scheme.value.Sprintf("%v", value)
	return fmt.Sprintf("%s: %s", labelColored, valueColored)
}

// formatColorizedScanMetrics formats metrics with the same layout as
// formatScanMetrics. Colors are disabled by fatih/color when output is not a TTY.
func formatColorizedScanMetrics(m scanMetrics) string {
	scheme := newColorScheme()

	parts := []string{
		formatColorizedMetric("dirs", m.directories, scheme),
		formatColorizedMetric("files", m.files, scheme),
	}

	if m.selected > 0 {
		parts = append(parts, fmt.Sprintf("%s: %s", scheme.success.Sprint("selected"), scheme.value.Sprintf("%d", m.selected)))
	} else {
		parts = append(parts, formatColorizedMetric("selected", m.selected, scheme))
	}

	if m.stale > 0 {
		parts = append(parts, fmt.Sprintf("%s: %s", scheme.warn.Sprint("stale"), scheme.warn.Sprintf("%d", m.stale)))
	}

	if m.skipped > 0 {
		parts = append(parts, fmt.Sprintf("%s: %s", scheme.fail.Sprint("skipped"), scheme.fail.Sprintf("%d", m.skipped)))
	}

	return strings.Join(parts, ", ")
}
