// Package embed generates document and query vectors for the inventory
// index. Providers are swappable implementations selected by configuration;
// the query/document split is part of the contract because asymmetric
// encoders need to know which side of the pair they are embedding.
package embed

import (
	"context"
	"fmt"

	"tagmatch/internal/common"
	"tagmatch/internal/config"
)

type Provider interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQueries(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// NewProvider builds the configured provider, wrapped with the TTL query
// cache.
func NewProvider(cfg config.Config) (Provider, error) {
	logger := common.Logger()

	var (
		provider Provider
		err      error
	)
	switch cfg.EmbedProvider {
	case "openai":
		if reqErr := cfg.Require("OPENAI_API_KEY", cfg.OpenAIAPIKey); reqErr != nil {
			return nil, reqErr
		}
		provider = NewOpenAIProvider(cfg)
	case "onnx":
		provider, err = NewONNXProvider(cfg)
		if err != nil {
			return nil, err
		}
	case "local":
		provider = NewLocalProvider()
	default:
		return nil, fmt.Errorf("unsupported embed provider: %s", cfg.EmbedProvider)
	}

	logger.Info("embed: provider selected", "provider", provider.Name())
	return NewCachingProvider(provider, cfg), nil
}
