package embed

import (
	"context"
	"fmt"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"tagmatch/internal/common"
	"tagmatch/internal/config"
)

// OpenAIProvider embeds through the hosted embeddings API. OpenAI models use
// the same encoding for queries and documents, so both paths share one call.
type OpenAIProvider struct {
	client  openai.Client
	model   string
	limiter *RateLimiter
}

func NewOpenAIProvider(cfg config.Config) *OpenAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAIAPIKey),
		option.WithRequestTimeout(time.Duration(cfg.OpenAITimeoutMs) * time.Millisecond),
	}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}
	return &OpenAIProvider{
		client:  openai.NewClient(opts...),
		model:   cfg.OpenAIModel,
		limiter: NewRateLimiter(cfg.EmbedRateRPS),
	}
}

func (o *OpenAIProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return o.embed(ctx, texts)
}

func (o *OpenAIProvider) EmbedQueries(ctx context.Context, texts []string) ([][]float32, error) {
	return o.embed(ctx, texts)
}

func (o *OpenAIProvider) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	o.limiter.WaitTurn()

	logger := common.Logger()
	logger.Debug("embed: openai request", "model", o.model, "items", len(texts))
	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(o.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (o *OpenAIProvider) Name() string {
	return "openai/" + o.model
}
