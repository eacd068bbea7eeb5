package report

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"tagmatch/internal"
	"tagmatch/internal/search"
	"tagmatch/internal/util"
)

func TestRowsFromResult(t *testing.T) {
	result := &search.Result{
		Query: "black tag",
		Candidates: []internal.QueryCandidate{
			{
				ItemID: "ALLENSOLLY_AS-001",
				Item: internal.CatalogItem{
					ItemID: "ALLENSOLLY_AS-001",
					Brand:  "ALLEN SOLLY",
					Code:   util.StringPtr("AS-001"),
					Name:   util.StringPtr("BLACK WOVEN TAG"),
					Stock:  120,
				},
				SemanticScore: 0.7,
				RerankScore:   util.FloatPtr(0.95),
			},
			{
				ItemID:        "ZODIAC_ZD-101",
				Item:          internal.CatalogItem{ItemID: "ZODIAC_ZD-101", Brand: "ZODIAC", Stock: 15},
				SemanticScore: 0.4,
			},
		},
		Decision: internal.MatchDecision{Action: internal.ActionAutoApprove, Confidence: 0.95},
	}

	rows := RowsFromResult(result)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Rank != 1 || rows[1].Rank != 2 {
		t.Errorf("ranks = %d, %d", rows[0].Rank, rows[1].Rank)
	}
	if rows[0].Confidence != 0.95 {
		t.Errorf("confidence = %f, want rerank score", rows[0].Confidence)
	}
	if rows[1].Confidence != 0.4 {
		t.Errorf("confidence = %f, want semantic score", rows[1].Confidence)
	}
	for _, row := range rows {
		if row.Action != "auto_approve" {
			t.Errorf("action = %s", row.Action)
		}
	}
}

func TestExportRowsToXLSX(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reports", "search.xlsx")
	rows := []internal.SearchExportRow{
		{
			Rank:          1,
			ItemID:        "ALLENSOLLY_AS-001",
			Brand:         "ALLEN SOLLY",
			Code:          util.StringPtr("AS-001"),
			Name:          util.StringPtr("BLACK WOVEN TAG"),
			Stock:         120,
			SemanticScore: 0.7,
			Confidence:    0.7,
			Action:        "manual_review",
			SourceFile:    "ALLEN SOLLY STOCK.xlsx",
			SheetName:     "Sheet1",
		},
	}

	if err := ExportRowsToXLSX(rows, out); err != nil {
		t.Fatalf("ExportRowsToXLSX: %v", err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	got, err := f.GetRows(sheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("sheet rows = %d, want header + 1", len(got))
	}
	if got[0][0] != "rank" || got[0][1] != "item_id" {
		t.Errorf("header = %v", got[0][:2])
	}
	if got[1][1] != "ALLENSOLLY_AS-001" || got[1][4] != "BLACK WOVEN TAG" {
		t.Errorf("row = %v", got[1])
	}
}
