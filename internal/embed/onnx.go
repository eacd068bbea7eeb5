package embed

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"

	"tagmatch/internal/config"
)

var ortInitOnce sync.Once

// ONNXProvider runs a local sentence-transformer (MiniLM-class) export:
// tokenize, run the transformer, mean-pool the last hidden state over the
// attention mask, L2-normalize. Asymmetric checkpoints are supported via
// configurable query/document prefixes.
type ONNXProvider struct {
	mu          sync.Mutex
	session     *ort.DynamicAdvancedSession
	tk          *tokenizer.Tokenizer
	maxSeqLen   int
	queryPrefix string
	docPrefix   string
	modelID     string
}

func NewONNXProvider(cfg config.Config) (*ONNXProvider, error) {
	if err := cfg.Require("ONNX_MODEL_PATH", cfg.ONNXModelPath); err != nil {
		return nil, err
	}
	if err := cfg.Require("ONNX_TOKENIZER_PATH", cfg.ONNXTokenizer); err != nil {
		return nil, err
	}

	var initErr error
	ortInitOnce.Do(func() {
		if cfg.ONNXLibraryPath != "" {
			ort.SetSharedLibraryPath(cfg.ONNXLibraryPath)
		}
		initErr = ort.InitializeEnvironment()
	})
	if initErr != nil {
		return nil, fmt.Errorf("onnxruntime init: %w", initErr)
	}

	tk, err := pretrained.FromFile(cfg.ONNXTokenizer)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ONNXModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("open onnx session: %w", err)
	}

	maxSeqLen := cfg.ONNXMaxSeqLen
	if maxSeqLen <= 0 {
		maxSeqLen = 256
	}

	return &ONNXProvider{
		session:     session,
		tk:          tk,
		maxSeqLen:   maxSeqLen,
		queryPrefix: cfg.ONNXQueryPrefix,
		docPrefix:   cfg.ONNXDocPrefix,
		modelID:     filepath.Base(cfg.ONNXModelPath),
	}, nil
}

func (o *ONNXProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return o.embedAll(ctx, texts, o.docPrefix)
}

func (o *ONNXProvider) EmbedQueries(ctx context.Context, texts []string) ([][]float32, error) {
	return o.embedAll(ctx, texts, o.queryPrefix)
}

func (o *ONNXProvider) embedAll(ctx context.Context, texts []string, prefix string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := o.encode(prefix + text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (o *ONNXProvider) encode(text string) ([]float32, error) {
	encoding, err := o.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}

	ids := encoding.Ids
	mask := encoding.AttentionMask
	types := encoding.TypeIds
	if len(ids) > o.maxSeqLen {
		ids = ids[:o.maxSeqLen]
		mask = mask[:o.maxSeqLen]
		types = types[:o.maxSeqLen]
	}
	n := len(ids)
	if n == 0 {
		return nil, fmt.Errorf("tokenize: empty encoding")
	}

	idsInt64 := make([]int64, n)
	maskInt64 := make([]int64, n)
	typeInt64 := make([]int64, n)
	for i := 0; i < n; i++ {
		idsInt64[i] = int64(ids[i])
		maskInt64[i] = int64(mask[i])
		typeInt64[i] = int64(types[i])
	}

	shape := ort.NewShape(1, int64(n))
	idsTensor, err := ort.NewTensor(shape, idsInt64)
	if err != nil {
		return nil, err
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, maskInt64)
	if err != nil {
		return nil, err
	}
	defer maskTensor.Destroy()
	typeTensor, err := ort.NewTensor(shape, typeInt64)
	if err != nil {
		return nil, err
	}
	defer typeTensor.Destroy()

	// The session is not safe for concurrent Run calls.
	o.mu.Lock()
	outputs := []ort.Value{nil}
	err = o.session.Run([]ort.Value{idsTensor, maskTensor, typeTensor}, outputs)
	o.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	hidden, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("onnx run: unexpected output type %T", outputs[0])
	}
	defer hidden.Destroy()

	dims := hidden.GetShape()
	if len(dims) != 3 {
		return nil, fmt.Errorf("onnx run: unexpected output rank %d", len(dims))
	}
	seqLen := int(dims[1])
	hiddenSize := int(dims[2])
	data := hidden.GetData()

	return meanPool(data, maskInt64, seqLen, hiddenSize), nil
}

// meanPool averages token vectors weighted by the attention mask and
// L2-normalizes the result so cosine similarity equals the dot product.
func meanPool(data []float32, mask []int64, seqLen, hiddenSize int) []float32 {
	vec := make([]float32, hiddenSize)
	count := 0
	for t := 0; t < seqLen && t < len(mask); t++ {
		if mask[t] == 0 {
			continue
		}
		count++
		base := t * hiddenSize
		for d := 0; d < hiddenSize; d++ {
			vec[d] += data[base+d]
		}
	}
	if count == 0 {
		return vec
	}

	var norm float64
	for d := range vec {
		vec[d] /= float32(count)
		norm += float64(vec[d]) * float64(vec[d])
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for d := range vec {
			vec[d] *= inv
		}
	}
	return vec
}

func (o *ONNXProvider) Name() string {
	return "onnx/" + o.modelID
}

// Close releases the ONNX session.
func (o *ONNXProvider) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session != nil {
		err := o.session.Destroy()
		o.session = nil
		return err
	}
	return nil
}
