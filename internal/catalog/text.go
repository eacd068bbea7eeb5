// Package catalog builds the searchable representation of inventory rows.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"tagmatch/internal"
	"tagmatch/internal/util"
)

// Attribute vocabularies scanned out of product names. The tags are
// redundant with the raw name on purpose: short catalog rows embed poorly,
// so recall is bought with repeated phrasings and precision is restored by
// the reranker.
var (
	materialTerms = []string{"silk", "cotton", "polyester", "wool"}
	colorTerms    = []string{"black", "white", "blue", "red", "green", "gold", "silver", "purple", "pink", "grey"}
	styleTerms    = []string{"formal", "casual", "sport"}
)

// BuildSearchText renders one normalized row into the pipe-separated text
// blob that gets embedded. Pure and deterministic: the same item always
// produces byte-identical output, which is what keeps re-ingestion
// idempotent.
func BuildSearchText(item internal.CatalogItem) string {
	segments := make([]string, 0, 12)
	segments = append(segments, "Brand: "+item.Brand)

	code := ""
	if item.Code != nil {
		code = strings.TrimSpace(*item.Code)
	}
	if code != "" {
		// The code appears twice, labeled and bare, so both "code AS-001"
		// and a pasted bare token land near this document.
		segments = append(segments, "Code: "+code, code)
	}

	name := ""
	if item.Name != nil {
		name = util.CollapseSpaces(*item.Name)
	}
	if name != "" {
		segments = append(segments, "Product: "+name)
	}

	lower := strings.ToLower(name)
	if tag := scanTerms(lower, materialTerms); tag != "" {
		segments = append(segments, "Material: "+tag)
	}
	if tag := scanTerms(lower, colorTerms); tag != "" {
		segments = append(segments, "Color: "+tag)
	}
	if tag := scanTerms(lower, styleTerms); tag != "" {
		segments = append(segments, "Style: "+tag)
	}
	if strings.Contains(lower, "thread") {
		segments = append(segments, "Type: thread")
	}
	if strings.Contains(lower, "sustainable") || strings.Contains(lower, "fsc") {
		segments = append(segments, "Feature: sustainable FSC certified")
	}
	if strings.Contains(lower, "premium") {
		segments = append(segments, "Quality: premium")
	}

	if item.Stock > 0 {
		segments = append(segments,
			fmt.Sprintf("Stock available: %d units", item.Stock),
			"In stock")
	} else {
		segments = append(segments, "Out of stock", "No stock available")
	}

	sentence := "This is " + name
	if sentence == "This is " {
		sentence = "This is an unnamed trim item"
	}
	if code != "" {
		sentence += " with code " + code
	}
	sentence += " from brand " + item.Brand + "."
	segments = append(segments, sentence)

	return strings.Join(segments, " | ")
}

func scanTerms(lowerName string, terms []string) string {
	found := make([]string, 0, 2)
	for _, term := range terms {
		if strings.Contains(lowerName, term) {
			found = append(found, term)
		}
	}
	return strings.Join(found, ", ")
}

// ItemID returns the stable index key for a row: brand plus trim code when a
// code exists, otherwise a hash of the row content. Re-ingesting an
// unchanged row therefore always lands on the same key.
func ItemID(item internal.CatalogItem) string {
	brand := util.NormalizeCode(item.Brand)
	if item.Code != nil {
		if code := util.NormalizeCode(*item.Code); code != "" {
			return brand + "_" + code
		}
	}
	name := ""
	if item.Name != nil {
		name = util.NormalizeText(*item.Name)
	}
	sum := sha256.Sum256([]byte(brand + "|" + item.SheetName + "|" + name))
	return brand + "_" + hex.EncodeToString(sum[:8])
}
