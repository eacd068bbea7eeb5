package schema

import (
	"path/filepath"
	"regexp"
	"strings"

	"tagmatch/internal/util"
)

// Canonical column keys produced by the normalizer. Headers with no synonym
// match keep their original name so downstream lookups can still reach them.
const (
	ColCode   = "code"
	ColName   = "name"
	ColStock  = "stock"
	ColImage  = "image"
	ColSerial = "serial"
)

// headerSynonyms maps each canonical key to the header spellings observed
// across brand inventory files. Matching is case-insensitive and
// whitespace-trimmed.
var headerSynonyms = map[string][]string{
	ColCode:   {"TRIM CODE", "CODE", "ITEM CODE", "TRIMCODE", "ITEM NO", "ARTICLE CODE", "PRODUCT CODE"},
	ColName:   {"NAME", "ITEM NAME", "DESCRIPTION", "ITEM DESCRIPTION", "PRODUCT", "PRODUCT NAME", "ITEM", "PARTICULARS", "TRIMS"},
	ColStock:  {"QTY", "QUANTITY", "STOCK", "STOCK QTY", "CLOSING STOCK", "BALANCE", "CLOSING BALANCE", "AVAILABLE QTY"},
	ColImage:  {"IMAGE", "IMAGES", "PHOTO", "PICTURE", "IMG"},
	ColSerial: {"S NO", "S.NO", "SNO", "SL NO", "SL.NO", "SR NO", "SR.NO", "SERIAL", "SERIAL NO"},
}

// Mapping relates a canonical key to the zero-based column position it was
// found at in a sheet's header row.
type Mapping map[string]int

// MapHeaders resolves a header row against the synonym table. Columns with
// no match are simply absent from the mapping, never dropped from the sheet.
func MapHeaders(headers []string) Mapping {
	mapping := Mapping{}
	for idx, header := range headers {
		norm := normalizeHeader(header)
		if norm == "" {
			continue
		}
		for key, synonyms := range headerSynonyms {
			if _, taken := mapping[key]; taken {
				continue
			}
			for _, syn := range synonyms {
				if norm == normalizeHeader(syn) {
					mapping[key] = idx
					break
				}
			}
		}
	}
	return mapping
}

// LooksLikeHeader reports whether a row resolves at least one canonical
// column, used to locate the header row in sheets with title banners.
func LooksLikeHeader(row []string) bool {
	return len(MapHeaders(row)) > 0
}

func normalizeHeader(header string) string {
	s := util.NormalizeText(header)
	s = strings.ReplaceAll(s, ".", " ")
	return util.CollapseSpaces(s)
}

var (
	reStockSuffix = regexp.MustCompile(`(?i)\s+STOCK(\s+\d{4})?$`)
	reYearSuffix  = regexp.MustCompile(`\s+\d{4}$`)
)

// BrandFromFilename derives the brand label from an inventory file name:
// "VAN HEUSEN STOCK 2024 (updated).xlsx" -> "VAN HEUSEN".
func BrandFromFilename(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if idx := strings.Index(base, "("); idx >= 0 {
		base = base[:idx]
	}
	base = reStockSuffix.ReplaceAllString(base, "")
	base = reYearSuffix.ReplaceAllString(base, "")
	return util.CollapseSpaces(base)
}

// ForwardFill repairs vertically merged cells: for each listed column, blank
// cells inherit the previous non-blank value so size/variant rows keep their
// parent item's fields. Rows shorter than a listed column are extended:
// excelize trims trailing blank cells, so a merged cell in the rightmost
// column arrives as a missing cell, not an empty one.
func ForwardFill(rows [][]string, cols []int) {
	last := map[int]string{}
	for i, row := range rows {
		for _, col := range cols {
			if col < 0 {
				continue
			}
			for col >= len(row) {
				row = append(row, "")
			}
			cell := strings.TrimSpace(row[col])
			if cell == "" {
				row[col] = last[col]
			} else {
				last[col] = cell
			}
		}
		rows[i] = row
	}
}
