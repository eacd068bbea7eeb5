package catalog

import (
	"strings"
	"testing"

	"tagmatch/internal"
	"tagmatch/internal/util"
)

func TestBuildSearchTextDeterministic(t *testing.T) {
	item := internal.CatalogItem{
		Brand: "ALLEN SOLLY",
		Code:  util.StringPtr("AS-001"),
		Name:  util.StringPtr("Allen  Solly Black Cotton   Casual Tag"),
		Stock: 120,
	}
	first := BuildSearchText(item)
	second := BuildSearchText(item)
	if first != second {
		t.Fatal("BuildSearchText must be deterministic")
	}
}

func TestBuildSearchTextSegments(t *testing.T) {
	item := internal.CatalogItem{
		Brand: "ALLEN SOLLY",
		Code:  util.StringPtr("AS-001"),
		Name:  util.StringPtr("Allen Solly Black Cotton Casual Tag"),
		Stock: 120,
	}
	text := BuildSearchText(item)

	for _, want := range []string{
		"Brand: ALLEN SOLLY",
		"Code: AS-001",
		" AS-001 |",
		"Product: Allen Solly Black Cotton Casual Tag",
		"Material: cotton",
		"Color: black",
		"Style: casual",
		"Stock available: 120 units",
		"In stock",
		"with code AS-001 from brand ALLEN SOLLY.",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in %q", want, text)
		}
	}
	if strings.Contains(text, "Material: ,") || strings.Contains(text, "Feature:  ") {
		t.Fatalf("empty attribute segment leaked: %q", text)
	}
}

func TestBuildSearchTextOutOfStock(t *testing.T) {
	item := internal.CatalogItem{Brand: "SYMBOL", Name: util.StringPtr("Symbol hand tag"), Stock: 0}
	text := BuildSearchText(item)
	if !strings.Contains(text, "Out of stock") || !strings.Contains(text, "No stock available") {
		t.Fatalf("missing negative stock phrasing: %q", text)
	}
	if strings.Contains(text, "Stock available") {
		t.Fatalf("positive phrasing on empty stock: %q", text)
	}
}

func TestBuildSearchTextNoAttributeCategories(t *testing.T) {
	item := internal.CatalogItem{Brand: "ARROW", Name: util.StringPtr("Seasonal sticker"), Stock: 5}
	text := BuildSearchText(item)
	for _, label := range []string{"Material:", "Color:", "Style:"} {
		if strings.Contains(text, label) {
			t.Fatalf("absent category must contribute nothing, got %q", text)
		}
	}
}

func TestItemID(t *testing.T) {
	coded := internal.CatalogItem{Brand: "ALLEN SOLLY", Code: util.StringPtr("as-001")}
	if got := ItemID(coded); got != "ALLENSOLLY_AS-001" {
		t.Fatalf("coded id = %q", got)
	}

	nameless := internal.CatalogItem{Brand: "SYMBOL", Name: util.StringPtr("Symbol hand tag"), SheetName: "Sheet1"}
	first := ItemID(nameless)
	second := ItemID(nameless)
	if first != second {
		t.Fatal("content-hash id must be stable")
	}
	if !strings.HasPrefix(first, "SYMBOL_") {
		t.Fatalf("hash id = %q", first)
	}
}
