// Package report renders search results into reviewer-facing workbooks.
package report

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"tagmatch/internal"
	"tagmatch/internal/search"
)

// RowsFromResult flattens one search result into export rows, one per ranked
// candidate, each stamped with the query-level decision.
func RowsFromResult(result *search.Result) []internal.SearchExportRow {
	rows := make([]internal.SearchExportRow, 0, len(result.Candidates))
	for i, c := range result.Candidates {
		rows = append(rows, internal.SearchExportRow{
			Rank:          i + 1,
			ItemID:        c.ItemID,
			Brand:         c.Item.Brand,
			Code:          c.Item.Code,
			Name:          c.Item.Name,
			Stock:         c.Item.Stock,
			HasImage:      c.Item.HasImage,
			SemanticScore: c.SemanticScore,
			LexicalScore:  c.LexicalScore,
			RerankScore:   c.RerankScore,
			Confidence:    c.FinalConfidence(),
			Action:        string(result.Decision.Action),
			SourceFile:    c.Item.SourceFile,
			SheetName:     c.Item.SheetName,
		})
	}
	return rows
}

func ExportRowsToXLSX(rows []internal.SearchExportRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"rank", "item_id", "brand", "code", "name", "stock", "has_image",
		"semantic_score", "lexical_score", "rerank_score", "confidence",
		"action", "source_file", "sheet_name",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.Rank)
		set(2, row.ItemID)
		set(3, row.Brand)
		set(4, derefString(row.Code))
		set(5, derefString(row.Name))
		set(6, row.Stock)
		set(7, row.HasImage)
		set(8, row.SemanticScore)
		set(9, derefFloat(row.LexicalScore))
		set(10, derefFloat(row.RerankScore))
		set(11, row.Confidence)
		set(12, row.Action)
		set(13, row.SourceFile)
		set(14, row.SheetName)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
