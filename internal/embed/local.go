package embed

import (
	"context"
	"hash/fnv"
	"math"

	"tagmatch/internal/util"
)

const localDims = 256

// LocalProvider is a deterministic feature-hashing encoder: each token of
// the normalized text is hashed into a fixed-size bucket vector which is
// then L2-normalized. It needs no network or model files, which makes it the
// offline-development and test backend. Token overlap still produces a
// meaningful cosine signal, unlike a constant stub.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func (l *LocalProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return l.embedAll(ctx, texts)
}

func (l *LocalProvider) EmbedQueries(ctx context.Context, texts []string) ([][]float32, error) {
	return l.embedAll(ctx, texts)
}

func (l *LocalProvider) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = hashEmbed(text)
	}
	return out, nil
}

func hashEmbed(text string) []float32 {
	vec := make([]float32, localDims)
	for _, token := range util.Tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		bucket := h.Sum32()
		// Sign bit decorrelates colliding tokens.
		sign := float32(1)
		if bucket&1 == 1 {
			sign = -1
		}
		vec[(bucket>>1)%localDims] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for d := range vec {
			vec[d] *= inv
		}
	}
	return vec
}

func (l *LocalProvider) Name() string {
	return "local"
}
