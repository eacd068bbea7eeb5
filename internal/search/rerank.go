package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tagmatch/internal"
	"tagmatch/internal/config"
	"tagmatch/internal/util"
)

// Reranker scores each (query, document) pair directly instead of through
// embedding distance. Implementations return one relevance score in [0,1]
// per candidate, aligned by index. A failed rerank is an enhancement lost,
// not a search failure: callers fall back to semantic scores.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []internal.QueryCandidate) ([]float64, error)
	Name() string
}

// NewReranker builds the configured implementation; (nil, nil) means
// reranking is disabled.
func NewReranker(cfg config.Config) (Reranker, error) {
	switch cfg.RerankProvider {
	case "", "off":
		return nil, nil
	case "http":
		if err := cfg.Require("RERANK_URL", cfg.RerankURL); err != nil {
			return nil, err
		}
		return NewHTTPReranker(cfg), nil
	case "overlap":
		return &OverlapReranker{}, nil
	default:
		return nil, fmt.Errorf("unsupported rerank provider: %s", cfg.RerankProvider)
	}
}

// HTTPReranker calls an external cross-encoder service. The wire format is
// the common rerank shape: {model, query, documents[]} in,
// {results: [{index, relevance_score}]} out.
type HTTPReranker struct {
	httpClient *http.Client
	url        string
	model      string
}

func NewHTTPReranker(cfg config.Config) *HTTPReranker {
	return &HTTPReranker{
		httpClient: &http.Client{Timeout: time.Duration(cfg.RerankTimeoutMs) * time.Millisecond},
		url:        cfg.RerankURL,
		model:      cfg.RerankModel,
	}
}

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

func (r *HTTPReranker) Rerank(ctx context.Context, query string, candidates []internal.QueryCandidate) ([]float64, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = c.Item.SearchText
	}
	payload, err := json.Marshal(rerankRequest{Model: r.model, Query: query, Documents: documents})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank %s failed: %s", r.url, strings.TrimSpace(string(data)))
	}

	var decoded rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	scores := make([]float64, len(candidates))
	seen := make(map[int]struct{}, len(candidates))
	for _, result := range decoded.Results {
		if result.Index < 0 || result.Index >= len(scores) {
			return nil, fmt.Errorf("rerank result index %d out of range", result.Index)
		}
		if _, dup := seen[result.Index]; dup {
			return nil, fmt.Errorf("rerank result index %d duplicated", result.Index)
		}
		seen[result.Index] = struct{}{}
		scores[result.Index] = clamp01(result.RelevanceScore)
	}
	if len(seen) != len(candidates) {
		return nil, fmt.Errorf("rerank returned %d scores for %d candidates", len(seen), len(candidates))
	}
	return scores, nil
}

func (r *HTTPReranker) Name() string {
	return "http/" + r.model
}

// OverlapReranker is a deterministic local scorer: bigram Dice similarity
// blended with query-token coverage on the normalized pair. Much weaker
// than a cross-encoder but dependency-free, which makes it the offline and
// test implementation.
type OverlapReranker struct{}

func (o *OverlapReranker) Rerank(ctx context.Context, query string, candidates []internal.QueryCandidate) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	normQuery := util.NormalizeText(query)
	queryTokens := util.Tokenize(query)

	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		// Dice runs against the product name, not the whole text blob:
		// the blob's boilerplate segments would drown the pair signal.
		target := c.Item.SearchText
		if c.Item.Name != nil && strings.TrimSpace(*c.Item.Name) != "" {
			target = *c.Item.Name
		}
		scores[i] = overlapScore(normQuery, queryTokens, target, c.Item.SearchText)
	}
	return scores, nil
}

func overlapScore(normQuery string, queryTokens []string, target, fullText string) float64 {
	dice := util.DiceCoefficient(normQuery, util.NormalizeText(target))

	if len(queryTokens) == 0 {
		return clamp01(dice)
	}
	docTokens := map[string]struct{}{}
	for _, token := range util.Tokenize(fullText) {
		docTokens[token] = struct{}{}
	}
	covered := 0
	for _, token := range queryTokens {
		if _, ok := docTokens[token]; ok {
			covered++
		}
	}
	coverage := float64(covered) / float64(len(queryTokens))

	return clamp01(0.65*dice + 0.35*coverage)
}

func (o *OverlapReranker) Name() string {
	return "overlap"
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
