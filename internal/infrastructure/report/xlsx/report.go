package xlsx

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
)

const sheetName = "Documents"

var header = []any{
	"ID", "Name", "Path", "Category", "Classification", "Confidence",
	"Pages", "Status", "Title", "Author", "Summary", "Processed At",
}

// Write renders one row per processed document.
func Write(w io.Writer, docs []domain.ProcessedDocument) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, doc := range docs {
		processedAt := ""
		if !doc.ProcessedAt.IsZero() {
			processedAt = doc.ProcessedAt.UTC().Format(time.RFC3339)
		}
		row := []any{
			doc.ID,
			doc.Name,
			doc.Path,
			doc.Category,
			doc.Classification,
			doc.ConfidenceScore,
			doc.PageCount,
			string(doc.ProcessingStatus),
			doc.Metadata.Title,
			doc.Metadata.Author,
			strings.TrimSpace(doc.Summary),
			processedAt,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
