package embed

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"tagmatch/internal/config"
)

// CachingProvider memoizes query embeddings with a TTL. Only the query path
// is cached: the same order line tends to be searched repeatedly while the
// catalog is reviewed, whereas document embedding is a one-shot batch job.
type CachingProvider struct {
	inner Provider
	cache *gocache.Cache
}

func NewCachingProvider(inner Provider, cfg config.Config) *CachingProvider {
	ttl := time.Duration(cfg.EmbedCacheTTLs) * time.Second
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachingProvider{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *CachingProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return c.inner.EmbedDocuments(ctx, texts)
}

func (c *CachingProvider) EmbedQueries(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	missing := make([]string, 0, len(texts))
	missingIdx := make([]int, 0, len(texts))

	for i, text := range texts {
		if cached, ok := c.cache.Get(c.key(text)); ok {
			out[i] = cached.([]float32)
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := c.inner.EmbedQueries(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, vec := range vectors {
		out[missingIdx[j]] = vec
		c.cache.Set(c.key(missing[j]), vec, gocache.DefaultExpiration)
	}
	return out, nil
}

func (c *CachingProvider) key(text string) string {
	return c.inner.Name() + "|" + text
}

func (c *CachingProvider) Name() string {
	return c.inner.Name()
}
