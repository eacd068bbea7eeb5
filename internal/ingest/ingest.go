// Package ingest reads brand inventory workbooks and writes normalized,
// embedded rows into the index.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"tagmatch/internal"
	"tagmatch/internal/catalog"
	"tagmatch/internal/common"
	"tagmatch/internal/config"
	"tagmatch/internal/embed"
	"tagmatch/internal/index"
	"tagmatch/internal/schema"
	"tagmatch/internal/util"
)

// headerScanRows limits how deep into a sheet the header search goes; brand
// files put at most a title banner and a blank line above the header.
const headerScanRows = 8

type Ingester struct {
	cfg      config.Config
	provider embed.Provider
	store    *index.Store
	cache    *schema.Cache
	log      *slog.Logger
}

func New(cfg config.Config, provider embed.Provider, store *index.Store, cache *schema.Cache) *Ingester {
	return &Ingester{
		cfg:      cfg,
		provider: provider,
		store:    store,
		cache:    cache,
		log:      common.Logger(),
	}
}

// Folder ingests every workbook in dir. A file that fails is recorded in the
// report with its error and the batch moves on; only an unreadable directory
// is a hard failure.
func (g *Ingester) Folder(ctx context.Context, dir string) (*internal.IngestReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ingest: reading folder: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "~$") {
			continue // Excel lock files
		}
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".xlsx" && ext != ".xlsm" {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)

	report := &internal.IngestReport{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		fileReport := g.File(ctx, path)
		report.Files = append(report.Files, fileReport)
		report.ItemCount += fileReport.ItemCount
	}

	if err := g.finish(); err != nil {
		return report, err
	}
	return report, nil
}

// File ingests one workbook. Errors never propagate past the report: a bad
// sheet is logged and skipped, a bad file comes back with Status "error".
func (g *Ingester) File(ctx context.Context, path string) internal.IngestFileReport {
	report := internal.IngestFileReport{
		File:  filepath.Base(path),
		Brand: schema.BrandFromFilename(path),
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		report.Status = "error"
		report.Error = err.Error()
		g.log.Error("opening workbook failed", "file", report.File, "error", err)
		return report
	}
	defer f.Close()

	var items []internal.CatalogItem
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			g.log.Warn("reading sheet failed", "file", report.File, "sheet", sheet, "error", err)
			continue
		}
		sheetItems, skipped := g.sheetItems(report.Brand, report.File, sheet, rows)
		if len(sheetItems) == 0 && skipped == 0 {
			continue
		}
		report.Sheets++
		report.Skipped += skipped
		items = append(items, sheetItems...)
	}

	if err := g.write(ctx, items); err != nil {
		report.Status = "error"
		report.Error = err.Error()
		return report
	}

	report.Status = "ok"
	report.ItemCount = len(items)
	g.log.Info("ingested workbook",
		"file", report.File, "brand", report.Brand,
		"sheets", report.Sheets, "items", report.ItemCount, "skipped", report.Skipped)
	return report
}

// sheetItems normalizes one sheet into catalog rows. Returns the rows plus
// the count of data rows skipped for having no usable name.
func (g *Ingester) sheetItems(brand, file, sheet string, rows [][]string) ([]internal.CatalogItem, int) {
	mapping, headerIdx := g.resolveHeader(brand, sheet, rows)
	if mapping == nil {
		g.log.Warn("no header row recognized", "file", file, "sheet", sheet)
		return nil, 0
	}

	data := rows[headerIdx+1:]

	// Merged name cells arrive blank on continuation rows; repair the key
	// column before row extraction so variant rows keep their parent name.
	if col, ok := mapping[schema.ColName]; ok {
		schema.ForwardFill(data, []int{col})
	}

	var items []internal.CatalogItem
	skipped := 0
	for i, row := range data {
		rowIndex := headerIdx + 2 + i // 1-based sheet coordinates

		name := cellAt(row, mapping, schema.ColName)
		if name == "" {
			if len(row) > 0 && strings.TrimSpace(strings.Join(row, "")) != "" {
				skipped++
				g.log.Warn("skipping row without product name",
					"file", file, "sheet", sheet, "row", rowIndex)
			}
			continue
		}

		item := internal.CatalogItem{
			Brand:      brand,
			Name:       util.StringPtr(util.CollapseSpaces(name)),
			Stock:      util.ParseStock(cellAt(row, mapping, schema.ColStock)),
			SourceFile: file,
			SheetName:  sheet,
			RowIndex:   rowIndex,
		}
		if code := cellAt(row, mapping, schema.ColCode); code != "" {
			item.Code = util.StringPtr(code)
		}
		if serial := cellAt(row, mapping, schema.ColSerial); serial != "" {
			item.Serial = util.StringPtr(serial)
		}
		item.HasImage = cellAt(row, mapping, schema.ColImage) != ""

		item.SearchText = catalog.BuildSearchText(item)
		item.ItemID = catalog.ItemID(item)
		items = append(items, item)
	}
	return items, skipped
}

// resolveHeader locates the header row and its column mapping, consulting
// the schema cache before scanning and recording fresh resolutions in it.
func (g *Ingester) resolveHeader(brand, sheet string, rows [][]string) (schema.Mapping, int) {
	best := schema.Mapping{}
	bestIdx := -1
	limit := headerScanRows
	if limit > len(rows) {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		mapping := schema.MapHeaders(rows[i])
		if len(mapping) > len(best) {
			best = mapping
			bestIdx = i
		}
	}

	key := brand + "|" + sheet
	if _, hasName := best[schema.ColName]; !hasName {
		// Fall back to the layout remembered from an earlier file of the
		// same brand; some re-exports ship with the header row deleted.
		if cached, ok := g.cache.Get(key); ok {
			// bestIdx of -1 means no banner row either: data starts at row 0.
			return cached, bestIdx
		}
	}
	if bestIdx < 0 {
		return nil, 0
	}

	if _, hasName := best[schema.ColName]; hasName {
		g.cache.Put(key, best)
	}
	return best, bestIdx
}

// write embeds and upserts the batch, chunked to the provider batch size.
func (g *Ingester) write(ctx context.Context, items []internal.CatalogItem) error {
	batchSize := g.cfg.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		texts := make([]string, len(batch))
		for i, item := range batch {
			texts[i] = item.SearchText
		}
		vectors, err := g.provider.EmbedDocuments(ctx, texts)
		if err != nil {
			return fmt.Errorf("ingest: embedding batch: %w", err)
		}
		if err := g.store.UpsertItems(batch, vectors); err != nil {
			return fmt.Errorf("ingest: upserting batch: %w", err)
		}
	}
	return nil
}

// finish persists the schema cache and stamps the store with the embedding
// provider, so a later search run can detect a provider mismatch.
func (g *Ingester) finish() error {
	if err := g.cache.Save(); err != nil {
		return fmt.Errorf("ingest: saving schema cache: %w", err)
	}
	if err := g.store.SetMetadata("embed_provider", g.provider.Name()); err != nil {
		return fmt.Errorf("ingest: stamping provider: %w", err)
	}
	return nil
}

func cellAt(row []string, mapping schema.Mapping, key string) string {
	col, ok := mapping[key]
	if !ok || col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
