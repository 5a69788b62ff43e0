// Package display renders scan results and warnings for the terminal.
//
// # Trees
//
// RenderTree prints a scan result as an indented tree with a check marker per
// entry and the persisted line range of checked files:
//
//	/home/me/project
//	├── [x] main.go (L10-42)
//	├── [ ] docs/
//	│   └── [ ] guide.md
//	└── [ ] go.mod
//
// # Warning Messages
//
// Display warnings with optional components:
//
//	warning := display.WarnStaleSelections(result.Root, result.Stale())
//	warning.Display(os.Stderr, colored)
//
// Color is always an explicit argument. Callers decide it once, usually from
// isatty on the output stream, and tests pass false for stable output.
package display
