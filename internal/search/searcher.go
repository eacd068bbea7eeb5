package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"tagmatch/internal"
	"tagmatch/internal/common"
	"tagmatch/internal/config"
	"tagmatch/internal/embed"
	"tagmatch/internal/index"
)

// Options narrow one query. A zero value means "no restriction" for Brand
// and MinStock; Limit and RequestedQty fall back to config defaults.
type Options struct {
	Brand        string
	MinStock     int
	Limit        int
	RequestedQty int
}

// Result is the full answer to one query: the ranked candidates and the
// decision taken over the best of them.
type Result struct {
	Query      string
	Candidates []internal.QueryCandidate
	Decision   internal.MatchDecision
}

// Searcher runs the retrieve-rerank-decide pipeline. The lexical index is
// built once from the store at construction; reconstruct the Searcher after
// an ingest to pick up new rows.
type Searcher struct {
	cfg        config.Config
	provider   embed.Provider
	store      *index.Store
	lexical    *index.Lexical
	reranker   Reranker
	thresholds Thresholds
}

func NewSearcher(cfg config.Config, provider embed.Provider, store *index.Store) (*Searcher, error) {
	items, err := store.ListItems()
	if err != nil {
		return nil, fmt.Errorf("search: loading catalog: %w", err)
	}

	reranker, err := NewReranker(cfg)
	if err != nil {
		return nil, err
	}

	return &Searcher{
		cfg:        cfg,
		provider:   provider,
		store:      store,
		lexical:    index.BuildLexical(items),
		reranker:   reranker,
		thresholds: ThresholdsFromConfig(cfg),
	}, nil
}

func (s *Searcher) Search(ctx context.Context, query string, opts Options) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search: empty query")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = s.cfg.SearchLimit
	}

	candidates, err := s.Retrieve(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	s.rerank(ctx, query, candidates)

	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := candidates[i].FinalConfidence(), candidates[j].FinalConfidence()
		if ci != cj {
			return ci > cj
		}
		return candidates[i].Item.Stock > candidates[j].Item.Stock
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	var top *internal.QueryCandidate
	if len(candidates) > 0 {
		top = &candidates[0]
	}

	return &Result{
		Query:      query,
		Candidates: candidates,
		Decision:   Decide(top, opts.RequestedQty, s.thresholds),
	}, nil
}

// Retrieve runs the hybrid candidate stage: an overfetched vector query
// merged with the keyword channel by item id. Overlapping ids get the
// lexical score attached; lexical-only ids are fetched and scored against
// the query vector so every candidate carries a semantic score. Ordering is
// provisional (semantic score); final ordering belongs to the reranker.
func (s *Searcher) Retrieve(ctx context.Context, query string, opts Options) ([]internal.QueryCandidate, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = s.cfg.SearchLimit
	}
	fetchK := limit * s.cfg.OverfetchFactor
	if fetchK < limit {
		fetchK = limit
	}

	vectors, err := s.provider.EmbedQueries(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("search: embedding query: %w", err)
	}
	queryVec := vectors[0]

	hits, err := s.store.Query(queryVec, fetchK, index.Filter{Brand: opts.Brand, MinStock: opts.MinStock})
	if err != nil {
		return nil, fmt.Errorf("search: vector query: %w", err)
	}

	candidates := make([]internal.QueryCandidate, 0, len(hits))
	byID := make(map[string]int, len(hits))
	for _, hit := range hits {
		byID[hit.Item.ItemID] = len(candidates)
		candidates = append(candidates, internal.QueryCandidate{
			ItemID:        hit.Item.ItemID,
			Item:          hit.Item,
			SemanticScore: hit.Similarity,
		})
	}

	for _, lhit := range s.lexical.Search(query, fetchK) {
		if at, ok := byID[lhit.ItemID]; ok {
			score := lhit.Score
			candidates[at].LexicalScore = &score
			continue
		}

		item, vec, err := s.store.Get(lhit.ItemID)
		if err != nil {
			return nil, fmt.Errorf("search: fetching lexical hit: %w", err)
		}
		if item == nil {
			continue
		}
		// The lexical index is metadata-blind; apply the filters here.
		if opts.Brand != "" && item.Brand != opts.Brand {
			continue
		}
		if opts.MinStock > 0 && item.Stock < opts.MinStock {
			continue
		}

		score := lhit.Score
		byID[item.ItemID] = len(candidates)
		candidates = append(candidates, internal.QueryCandidate{
			ItemID:        item.ItemID,
			Item:          *item,
			SemanticScore: index.Cosine(queryVec, vec),
			LexicalScore:  &score,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].SemanticScore > candidates[j].SemanticScore
	})
	if len(candidates) > fetchK {
		candidates = candidates[:fetchK]
	}
	return candidates, nil
}

// rerank scores the candidate set in place. A reranker failure is logged
// and the candidates keep their semantic scores; a degraded answer beats no
// answer.
func (s *Searcher) rerank(ctx context.Context, query string, candidates []internal.QueryCandidate) {
	if s.reranker == nil || len(candidates) == 0 {
		return
	}

	scores, err := s.reranker.Rerank(ctx, query, candidates)
	if err != nil {
		common.Logger().Warn("reranker failed, falling back to semantic scores",
			"reranker", s.reranker.Name(), "error", err)
		return
	}
	if len(scores) != len(candidates) {
		common.Logger().Warn("reranker returned wrong count, falling back to semantic scores",
			"reranker", s.reranker.Name(), "want", len(candidates), "got", len(scores))
		return
	}

	for i := range candidates {
		score := scores[i]
		candidates[i].RerankScore = &score
	}
}
