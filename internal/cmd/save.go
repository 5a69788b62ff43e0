package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/harrison/treedump/internal/models"
	"github.com/harrison/treedump/internal/selection"
	"github.com/harrison/treedump/internal/sidecar"
	"github.com/spf13/cobra"
)

// saveOptions carries the save command inputs
type saveOptions struct {
	Selection []byte
	// IgnoreText replaces the stored ignore patterns when non-nil
	IgnoreText *string
}

// NewSaveCommand creates the save command
func NewSaveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save [dir] --selection <file|->",
		Short: "Save a selection to a directory's sidecar file",
		Long: `Replace the selection stored in a directory's sidecar file.

--selection reads JSON from a file, or from stdin with '-'. Accepted forms:
  - a list of records: [{"id": "src/main.go", "checked": true, "lineFrom": 1, "lineTo": 20}]
  - a scan result or tree as printed by 'treedump scan --json'; its checked
    entries become the selection

Records are written exactly as given. Absolute ids inside the directory are
stored relative to it. The ignore patterns already stored are kept unless
--ignore or --ignore-file is given.

Examples:
  treedump scan --json ~/project | jq '...' | treedump save ~/project --selection -
  treedump save ~/project --selection picks.json --ignore-file .treedumpignore`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			root, err := s.resolveRoot(args)
			if err != nil {
				return err
			}

			opts, err := readSaveOptions(cmd)
			if err != nil {
				return err
			}
			return saveWithOutput(cmd.Context(), s, root, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("selection", "", "Selection JSON file, or '-' for stdin (required)")
	cmd.Flags().String("ignore", "", "Ignore patterns, one per line")
	cmd.Flags().String("ignore-file", "", "File with ignore patterns, one per line")
	cmd.MarkFlagRequired("selection")
	cmd.MarkFlagsMutuallyExclusive("ignore", "ignore-file")

	return cmd
}

func readSaveOptions(cmd *cobra.Command) (saveOptions, error) {
	var opts saveOptions

	source, _ := cmd.Flags().GetString("selection")
	var data []byte
	var err error
	if source == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return opts, fmt.Errorf("failed to read selection: %w", err)
	}
	opts.Selection = data

	if cmd.Flags().Changed("ignore-file") {
		path, _ := cmd.Flags().GetString("ignore-file")
		content, err := os.ReadFile(path)
		if err != nil {
			return opts, fmt.Errorf("failed to read ignore file: %w", err)
		}
		text := string(content)
		opts.IgnoreText = &text
	} else if cmd.Flags().Changed("ignore") {
		text, _ := cmd.Flags().GetString("ignore")
		opts.IgnoreText = &text
	}

	return opts, nil
}

// saveWithOutput persists the selection in opts to root's sidecar
func saveWithOutput(ctx context.Context, s *session, root string, opts saveOptions, out io.Writer) error {
	records, err := decodeSelection(root, opts.Selection)
	if err != nil {
		return err
	}

	var ignoreText string
	if opts.IgnoreText != nil {
		ignoreText = *opts.IgnoreText
	} else {
		existing, err := sidecar.Load(s.engine.SidecarPath(root))
		if err != nil {
			s.log.LogWarn(fmt.Sprintf("Existing sidecar unreadable, ignore patterns reset: %v", err))
		}
		ignoreText = existing.IgnorePatterns
	}

	saveErr := s.engine.Persist(ctx, root, records, ignoreText)
	s.recordSave(ctx, root, len(records), saveErr)
	if saveErr != nil {
		return saveErr
	}

	fmt.Fprintf(out, "Saved %d %s to %s\n", len(records), pluralize(len(records), "entry", "entries"), s.engine.SidecarPath(root))
	return nil
}

// decodeSelection accepts a record list, a node list, or an object carrying
// "tree" (a scan result) or "files" (a sidecar).
func decodeSelection(root string, data []byte) ([]models.FileRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("selection is empty")
	}

	if data[0] == '{' {
		var doc struct {
			Tree  []*models.TreeNode  `json:"tree"`
			Files []models.FileRecord `json:"files"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse selection: %w", err)
		}
		if doc.Tree != nil {
			return selection.CheckedRecords(root, doc.Tree), nil
		}
		if doc.Files != nil {
			return doc.Files, nil
		}
		return nil, errors.New("selection object has neither \"tree\" nor \"files\"")
	}

	var nodes []*models.TreeNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("failed to parse selection: %w", err)
	}
	if isTree(nodes) {
		return selection.CheckedRecords(root, nodes), nil
	}

	var records []models.FileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse selection: %w", err)
	}
	if records == nil {
		records = []models.FileRecord{}
	}
	return records, nil
}

// isTree reports whether any node carries tree-only fields
func isTree(nodes []*models.TreeNode) bool {
	for _, n := range nodes {
		if n != nil && (n.Label != "" || n.IsDirectory || n.Children != nil) {
			return true
		}
	}
	return false
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
