package selection

import (
	"context"

	"github.com/harrison/treedump/internal/models"
	"github.com/harrison/treedump/internal/sidecar"
)

// Scan scans root with default options, using persisted as the sidecar content
// (nil for none).
func Scan(ctx context.Context, root string, persisted []byte) (*models.ScanResult, error) {
	return New(Options{}).ScanWithState(ctx, root, persisted)
}

// Persist writes root's sidecar with default options
func Persist(ctx context.Context, root string, selection []models.FileRecord, ignoreText string) error {
	return New(Options{}).Persist(ctx, root, selection, ignoreText)
}

// CheckedRecords collects the checked nodes of tree, in pre-order, as records
// ready for Persist. Ids are made relative to root and line ranges are kept.
func CheckedRecords(root string, tree []*models.TreeNode) []models.FileRecord {
	root = absRoot(root)
	records := make([]models.FileRecord, 0)
	for _, top := range tree {
		if top == nil {
			continue
		}
		top.Walk(func(node *models.TreeNode) bool {
			if !node.Checked {
				return true
			}
			rec := models.FileRecord{
				ID:      sidecar.RelativeID(root, node.ID),
				Checked: models.BoolPtr(true),
			}
			if node.LineFrom != nil {
				rec.LineFrom = models.IntPtr(*node.LineFrom)
			}
			if node.LineTo != nil {
				rec.LineTo = models.IntPtr(*node.LineTo)
			}
			records = append(records, rec)
			return true
		})
	}
	return records
}
