// Package vectorize implements the Vectorizer contract that turns a batch
// of text chunks into embedding vectors in place, adapted from the
// teacher's embedding client (internal/rag/embedder) and grounded on the
// reference embedder/vectorizer interface.
package vectorize

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"brag/internal/ingestkernel"
)

// Vectorizer converts a batch's texts into vectors and assigns them to
// each TextInput's Vector field in place, mirroring Vectorizer.vectorize
// in the reference implementation.
type Vectorizer interface {
	Vectorize(ctx context.Context, batch *ingestkernel.TextBatch) error
	Name() string
	Dimension() int
	Ping(ctx context.Context) error
}

// HTTPConfig configures an HTTPVectorizer.
type HTTPConfig struct {
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// HTTPVectorizer calls a remote embedding endpoint with a whole batch per
// request (there is no splitting into single-item sub-calls), serialized
// behind a mutex so concurrent EmbedderWorker goroutines never race on
// minDelay bookkeeping.
type HTTPVectorizer struct {
	cfg  HTTPConfig
	dim  int
	call func(ctx context.Context, cfg HTTPConfig, texts []string) ([][]float32, error)

	mu       sync.Mutex
	lastCall time.Time
	minDelay time.Duration
}

// NewHTTPVectorizer constructs an HTTPVectorizer. call is the low-level
// transport (production wiring posts JSON to cfg.Endpoint; tests supply a
// stub) so this package never needs a concrete HTTP client dependency of
// its own.
func NewHTTPVectorizer(cfg HTTPConfig, dim int, call func(ctx context.Context, cfg HTTPConfig, texts []string) ([][]float32, error)) *HTTPVectorizer {
	return &HTTPVectorizer{cfg: cfg, dim: dim, call: call}
}

func (v *HTTPVectorizer) Name() string   { return v.cfg.Model }
func (v *HTTPVectorizer) Dimension() int { return v.dim }

func (v *HTTPVectorizer) Ping(ctx context.Context) error {
	_, err := v.rateLimited(ctx, []string{"ping"})
	return err
}

func (v *HTTPVectorizer) rateLimited(ctx context.Context, texts []string) ([][]float32, error) {
	v.mu.Lock()
	if !v.lastCall.IsZero() && v.minDelay > 0 {
		if elapsed := time.Since(v.lastCall); elapsed < v.minDelay {
			time.Sleep(v.minDelay - elapsed)
		}
	}
	v.lastCall = time.Now()
	v.mu.Unlock()
	return v.call(ctx, v.cfg, texts)
}

// Vectorize sends every input's text in one request and assigns the returned
// vectors back in order, matching SentenceTransformerVectorizer.vectorize's
// in-place contract.
func (v *HTTPVectorizer) Vectorize(ctx context.Context, batch *ingestkernel.TextBatch) error {
	if batch == nil || len(batch.Inputs) == 0 {
		return nil
	}
	texts := make([]string, len(batch.Inputs))
	for i, in := range batch.Inputs {
		texts[i] = in.Text
	}
	vectors, err := v.rateLimited(ctx, texts)
	if err != nil {
		return fmt.Errorf("vectorize: %w", err)
	}
	if len(vectors) != len(batch.Inputs) {
		return fmt.Errorf("vectorize: expected %d vectors, got %d", len(batch.Inputs), len(vectors))
	}
	for i := range batch.Inputs {
		batch.Inputs[i].Vector = vectors[i]
	}
	return nil
}

// DeterministicVectorizer hashes byte 3-grams into a fixed-size vector,
// adapted verbatim in spirit from the teacher's deterministicEmbedder so
// tests and offline development never need a live embedding endpoint.
type DeterministicVectorizer struct {
	dim       int
	normalize bool
	seed      uint64
}

// NewDeterministic constructs a DeterministicVectorizer. dim<=0 defaults to
// 64.
func NewDeterministic(dim int, normalize bool, seed uint64) *DeterministicVectorizer {
	if dim <= 0 {
		dim = 64
	}
	return &DeterministicVectorizer{dim: dim, normalize: normalize, seed: seed}
}

func (d *DeterministicVectorizer) Name() string       { return "deterministic" }
func (d *DeterministicVectorizer) Dimension() int     { return d.dim }
func (d *DeterministicVectorizer) Ping(context.Context) error { return nil }

func (d *DeterministicVectorizer) Vectorize(_ context.Context, batch *ingestkernel.TextBatch) error {
	if batch == nil {
		return nil
	}
	for i := range batch.Inputs {
		batch.Inputs[i].Vector = d.embedOne(batch.Inputs[i].Text)
	}
	return nil
}

func (d *DeterministicVectorizer) embedOne(s string) []float32 {
	v := make([]float32, d.dim)
	b := []byte(s)
	if len(b) == 0 {
		return v
	}
	if len(b) < 3 {
		addGram(d.seed, b, v)
	} else {
		for i := 0; i <= len(b)-3; i++ {
			addGram(d.seed, b[i:i+3], v)
		}
	}
	if d.normalize {
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		if sum > 0 {
			inv := float32(1.0 / math.Sqrt(sum))
			for i := range v {
				v[i] *= inv
			}
		}
	}
	return v
}

func addGram(seed uint64, gram []byte, v []float32) {
	h := fnv.New64a()
	if seed != 0 {
		var tmp [8]byte
		for i := 0; i < 8; i++ {
			tmp[i] = byte(seed >> (8 * i))
		}
		_, _ = h.Write(tmp[:])
	}
	_, _ = h.Write(gram)
	hv := h.Sum64()
	idx := int(hv % uint64(len(v)))
	w := float32(int32(hv>>32)) / float32(1<<31)
	v[idx] += w
}
