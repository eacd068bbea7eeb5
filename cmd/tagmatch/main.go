package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tagmatch/internal/config"
	"tagmatch/internal/embed"
	"tagmatch/internal/index"
	"tagmatch/internal/ingest"
	"tagmatch/internal/report"
	"tagmatch/internal/schema"
	"tagmatch/internal/search"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	store, err := index.Open(cfg.DBPath)
	must(err)
	defer store.Close()

	cmd := os.Args[1]
	switch cmd {
	case "inventory:ingest":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		path := fs.String("path", "", "inventory xlsx file or folder")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*path) == "" {
			must(fmt.Errorf("--path is required"))
		}

		provider, err := embed.NewProvider(cfg)
		must(err)
		cache := schema.NewCache(cfg.SchemaCachePath)
		must(cache.Load())
		ingester := ingest.New(cfg, provider, store, cache)

		info, err := os.Stat(*path)
		must(err)
		if info.IsDir() {
			result, err := ingester.Folder(context.Background(), *path)
			must(err)
			for _, fr := range result.Files {
				if fr.Status == "ok" {
					fmt.Printf("  %s brand=%s sheets=%d items=%d skipped=%d\n",
						fr.File, fr.Brand, fr.Sheets, fr.ItemCount, fr.Skipped)
				} else {
					fmt.Printf("  %s FAILED: %s\n", fr.File, fr.Error)
				}
			}
			fmt.Printf("ingest complete files=%d items=%d\n", len(result.Files), result.ItemCount)
			return
		}
		fr := ingester.File(context.Background(), *path)
		must(cache.Save())
		must(store.SetMetadata("embed_provider", provider.Name()))
		if fr.Status != "ok" {
			must(fmt.Errorf("%s: %s", fr.File, fr.Error))
		}
		fmt.Printf("ingest complete file=%s brand=%s items=%d skipped=%d\n",
			fr.File, fr.Brand, fr.ItemCount, fr.Skipped)

	case "search":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		query := fs.String("query", "", "order line text")
		brand := fs.String("brand", "", "restrict to one brand")
		qty := fs.Int("qty", 1, "requested quantity")
		minStock := fs.Int("minStock", 0, "minimum stock floor")
		limit := fs.Int("limit", 0, "max candidates (default from config)")
		out := fs.String("out", "", "optional output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*query) == "" {
			must(fmt.Errorf("--query is required"))
		}

		provider, err := embed.NewProvider(cfg)
		must(err)
		warnProviderMismatch(store, provider)

		searcher, err := search.NewSearcher(cfg, provider, store)
		must(err)
		result, err := searcher.Search(context.Background(), *query, search.Options{
			Brand:        *brand,
			MinStock:     *minStock,
			Limit:        *limit,
			RequestedQty: *qty,
		})
		must(err)

		fmt.Printf("query: %s\n", result.Query)
		for i, c := range result.Candidates {
			name := ""
			if c.Item.Name != nil {
				name = *c.Item.Name
			}
			fmt.Printf("  %d. %-28s %-32s stock=%-5d confidence=%.3f\n",
				i+1, c.ItemID, name, c.Item.Stock, c.FinalConfidence())
		}
		d := result.Decision
		fmt.Printf("decision: %s confidence=%.3f qty=%d stock=%d (%s)\n",
			d.Action, d.Confidence, d.RequestedQuantity, d.AvailableStock, d.Reason)

		if strings.TrimSpace(*out) != "" {
			rows := report.RowsFromResult(result)
			must(report.ExportRowsToXLSX(rows, resolveOut(cfg, *out)))
			fmt.Printf("exported %d rows to %s\n", len(rows), resolveOut(cfg, *out))
		}

	case "index:stats":
		count, err := store.Count()
		must(err)
		brands, err := store.BrandCounts()
		must(err)
		provider, err := store.GetMetadata("embed_provider")
		must(err)

		fmt.Printf("items: %d\n", count)
		if provider != nil {
			fmt.Printf("embed provider: %s\n", *provider)
		}
		fmt.Println("brands:")
		for brand, n := range brands {
			fmt.Printf("  %-24s %d\n", brand, n)
		}

	default:
		usage()
		os.Exit(1)
	}
}

// warnProviderMismatch flags a search run whose embedding provider differs
// from the one the index was built with; scores across providers are not
// comparable.
func warnProviderMismatch(store *index.Store, provider embed.Provider) {
	stamped, err := store.GetMetadata("embed_provider")
	if err != nil || stamped == nil {
		return
	}
	if *stamped != provider.Name() {
		fmt.Fprintf(os.Stderr, "warning: index built with provider %s, searching with %s\n",
			*stamped, provider.Name())
	}
}

func resolveOut(cfg config.Config, out string) string {
	if filepath.IsAbs(out) || strings.ContainsRune(out, os.PathSeparator) {
		return out
	}
	return filepath.Join(cfg.OutputDir, out)
}

func usage() {
	fmt.Println("usage: tagmatch <command>")
	fmt.Println("commands:")
	fmt.Println("  inventory:ingest --path=./stocklists")
	fmt.Println("  search --query=\"allen solly black tag\" [--brand=...] [--qty=10] [--minStock=1] [--limit=5] [--out=result.xlsx]")
	fmt.Println("  index:stats")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
