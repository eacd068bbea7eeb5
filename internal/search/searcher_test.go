package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"tagmatch/internal"
	"tagmatch/internal/catalog"
	"tagmatch/internal/config"
	"tagmatch/internal/embed"
	"tagmatch/internal/index"
	"tagmatch/internal/util"
)

func searchTestConfig() config.Config {
	return config.Config{
		SearchLimit:         5,
		OverfetchFactor:     4,
		MatchLowThreshold:   0.60,
		MatchHighThreshold:  0.80,
		RerankHighThreshold: 0.90,
		RerankProvider:      "off",
	}
}

func fixtureItem(brand, code, name string, stock int) internal.CatalogItem {
	item := internal.CatalogItem{
		Brand:      brand,
		Code:       util.StringPtr(code),
		Name:       util.StringPtr(name),
		Stock:      stock,
		SourceFile: brand + ".xlsx",
		SheetName:  "Sheet1",
		RowIndex:   2,
	}
	item.SearchText = catalog.BuildSearchText(item)
	item.ItemID = catalog.ItemID(item)
	return item
}

func newTestSearcher(t *testing.T, cfg config.Config, items []internal.CatalogItem) (*Searcher, *index.Store) {
	t.Helper()

	store, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	provider := embed.NewLocalProvider()
	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.SearchText
	}
	vectors, err := provider.EmbedDocuments(context.Background(), texts)
	if err != nil {
		t.Fatalf("embedding fixtures: %v", err)
	}
	if err := store.UpsertItems(items, vectors); err != nil {
		t.Fatalf("upserting fixtures: %v", err)
	}

	searcher, err := NewSearcher(cfg, provider, store)
	if err != nil {
		t.Fatalf("NewSearcher: %v", err)
	}
	return searcher, store
}

func fixtureCatalog() []internal.CatalogItem {
	return []internal.CatalogItem{
		fixtureItem("ALLEN SOLLY", "AS-001", "BLACK WOVEN TAG", 120),
		fixtureItem("ALLEN SOLLY", "AS-002", "WHITE COTTON LABEL", 40),
		fixtureItem("ZODIAC", "ZD-101", "BLACK PRICE STICKER", 15),
		fixtureItem("ZODIAC", "ZD-102", "GOLD FOIL HANG TAG", 0),
		fixtureItem("VAN HEUSEN", "TBAMTAG4507", "FORMAL SHIRT TAG", 60),
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	searcher, _ := newTestSearcher(t, searchTestConfig(), fixtureCatalog())
	if _, err := searcher.Search(context.Background(), "   ", Options{}); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestSearchTopCandidate(t *testing.T) {
	searcher, _ := newTestSearcher(t, searchTestConfig(), fixtureCatalog())

	result, err := searcher.Search(context.Background(), "ALLEN SOLLY BLACK WOVEN TAG", Options{RequestedQty: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Candidates) == 0 {
		t.Fatal("no candidates")
	}
	if got := result.Candidates[0].ItemID; got != "ALLENSOLLY_AS-001" {
		t.Errorf("top candidate = %s, want ALLENSOLLY_AS-001", got)
	}
	// Without a reranker the decision confidence is the semantic score.
	if result.Decision.Confidence != result.Candidates[0].SemanticScore {
		t.Errorf("confidence = %f, want semantic %f",
			result.Decision.Confidence, result.Candidates[0].SemanticScore)
	}
	if result.Candidates[0].RerankScore != nil {
		t.Error("rerank score set with reranking disabled")
	}
}

func TestSearchRankingIsMonotonic(t *testing.T) {
	searcher, _ := newTestSearcher(t, searchTestConfig(), fixtureCatalog())

	result, err := searcher.Search(context.Background(), "black tag", Options{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for i := 1; i < len(result.Candidates); i++ {
		prev := result.Candidates[i-1].FinalConfidence()
		cur := result.Candidates[i].FinalConfidence()
		if cur > prev {
			t.Fatalf("candidates out of order at %d: %f > %f", i, cur, prev)
		}
	}
}

func TestSearchBrandFilter(t *testing.T) {
	searcher, _ := newTestSearcher(t, searchTestConfig(), fixtureCatalog())

	result, err := searcher.Search(context.Background(), "black tag", Options{Brand: "ZODIAC"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Candidates) == 0 {
		t.Fatal("no candidates for brand filter")
	}
	for _, c := range result.Candidates {
		if c.Item.Brand != "ZODIAC" {
			t.Errorf("candidate %s has brand %s", c.ItemID, c.Item.Brand)
		}
	}
}

func TestSearchMinStockFilter(t *testing.T) {
	searcher, _ := newTestSearcher(t, searchTestConfig(), fixtureCatalog())

	result, err := searcher.Search(context.Background(), "tag", Options{MinStock: 50})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, c := range result.Candidates {
		if c.Item.Stock < 50 {
			t.Errorf("candidate %s has stock %d below floor", c.ItemID, c.Item.Stock)
		}
	}
}

func TestSearchLexicalCodeHit(t *testing.T) {
	searcher, _ := newTestSearcher(t, searchTestConfig(), fixtureCatalog())

	result, err := searcher.Search(context.Background(), "TBAMTAG4507", Options{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Candidates) == 0 {
		t.Fatal("no candidates for exact code query")
	}
	if got := result.Candidates[0].ItemID; got != "VANHEUSEN_TBAMTAG4507" {
		t.Errorf("top candidate = %s, want VANHEUSEN_TBAMTAG4507", got)
	}
	if result.Candidates[0].LexicalScore == nil {
		t.Error("exact code hit missing lexical score")
	}
}

func TestSearchRerankOverridesConfidence(t *testing.T) {
	cfg := searchTestConfig()
	cfg.RerankProvider = "overlap"
	searcher, _ := newTestSearcher(t, cfg, fixtureCatalog())

	result, err := searcher.Search(context.Background(), "BLACK WOVEN TAG", Options{RequestedQty: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	top := result.Candidates[0]
	if top.RerankScore == nil {
		t.Fatal("top candidate missing rerank score")
	}
	if result.Decision.Confidence != *top.RerankScore {
		t.Errorf("confidence = %f, want rerank %f", result.Decision.Confidence, *top.RerankScore)
	}
	if top.ItemID != "ALLENSOLLY_AS-001" {
		t.Errorf("top candidate = %s, want ALLENSOLLY_AS-001", top.ItemID)
	}
}

func TestSearchRerankFailureFallsBackToSemantic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := searchTestConfig()
	cfg.RerankProvider = "http"
	cfg.RerankURL = srv.URL
	cfg.RerankTimeoutMs = 5000
	searcher, _ := newTestSearcher(t, cfg, fixtureCatalog())

	result, err := searcher.Search(context.Background(), "black tag", Options{RequestedQty: 1})
	if err != nil {
		t.Fatalf("Search must survive a rerank failure: %v", err)
	}
	if len(result.Candidates) == 0 {
		t.Fatal("no candidates")
	}
	for _, c := range result.Candidates {
		if c.RerankScore != nil {
			t.Fatalf("candidate %s has a rerank score from a failed pass", c.ItemID)
		}
		if c.FinalConfidence() != c.SemanticScore {
			t.Fatalf("candidate %s confidence %f != semantic %f",
				c.ItemID, c.FinalConfidence(), c.SemanticScore)
		}
	}
	if result.Decision.Confidence != result.Candidates[0].SemanticScore {
		t.Errorf("decision confidence = %f, want semantic %f",
			result.Decision.Confidence, result.Candidates[0].SemanticScore)
	}
}

func TestSearchOutOfStockNeverAutoApproves(t *testing.T) {
	cfg := searchTestConfig()
	cfg.RerankProvider = "overlap"
	searcher, _ := newTestSearcher(t, cfg, fixtureCatalog())

	// Exact name of the zero-stock item; overlap rerank scores it near 1.
	result, err := searcher.Search(context.Background(), "GOLD FOIL HANG TAG", Options{RequestedQty: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := result.Candidates[0].ItemID; got != "ZODIAC_ZD-102" {
		t.Fatalf("top candidate = %s, want ZODIAC_ZD-102", got)
	}
	if result.Decision.Action == internal.ActionAutoApprove {
		t.Fatalf("out-of-stock item auto-approved: %+v", result.Decision)
	}
}

func TestRetrieveOverfetchesAndOrdersBySemantic(t *testing.T) {
	searcher, _ := newTestSearcher(t, searchTestConfig(), fixtureCatalog())

	candidates, err := searcher.Retrieve(context.Background(), "black tag", Options{Limit: 2})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	// Overfetch keeps more than the final limit for the reranker to chew on.
	if len(candidates) <= 2 {
		t.Fatalf("got %d candidates, want more than the limit", len(candidates))
	}
	for i := 1; i < len(candidates); i++ {
		if candidates[i].SemanticScore > candidates[i-1].SemanticScore {
			t.Fatalf("provisional order broken at %d", i)
		}
	}
	for _, c := range candidates {
		if c.RerankScore != nil {
			t.Fatal("retrieval stage must not set rerank scores")
		}
	}
}

func TestSearchLimit(t *testing.T) {
	searcher, _ := newTestSearcher(t, searchTestConfig(), fixtureCatalog())

	result, err := searcher.Search(context.Background(), "tag", Options{Limit: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Candidates) > 2 {
		t.Errorf("got %d candidates, want at most 2", len(result.Candidates))
	}
}
