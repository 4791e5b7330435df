package vectorize

import (
	"context"
	"errors"
	"testing"

	"brag/internal/ingestkernel"

	"github.com/stretchr/testify/require"
)

func TestDeterministicVectorizer_AssignsVectorsInPlace(t *testing.T) {
	v := NewDeterministic(16, true, 0)
	batch := &ingestkernel.TextBatch{Inputs: []ingestkernel.TextInput{
		{Text: "hello world"},
		{Text: "goodbye world"},
	}}

	require.NoError(t, v.Vectorize(context.Background(), batch))
	for _, in := range batch.Inputs {
		require.Len(t, in.Vector, 16)
	}
	require.NotEqual(t, batch.Inputs[0].Vector, batch.Inputs[1].Vector)
}

func TestDeterministicVectorizer_Deterministic(t *testing.T) {
	v := NewDeterministic(8, false, 42)
	b1 := &ingestkernel.TextBatch{Inputs: []ingestkernel.TextInput{{Text: "same text"}}}
	b2 := &ingestkernel.TextBatch{Inputs: []ingestkernel.TextInput{{Text: "same text"}}}

	require.NoError(t, v.Vectorize(context.Background(), b1))
	require.NoError(t, v.Vectorize(context.Background(), b2))
	require.Equal(t, b1.Inputs[0].Vector, b2.Inputs[0].Vector)
}

func TestDeterministicVectorizer_Normalized(t *testing.T) {
	v := NewDeterministic(32, true, 1)
	batch := &ingestkernel.TextBatch{Inputs: []ingestkernel.TextInput{{Text: "a longer piece of sample text"}}}
	require.NoError(t, v.Vectorize(context.Background(), batch))

	var sumSquares float64
	for _, x := range batch.Inputs[0].Vector {
		sumSquares += float64(x) * float64(x)
	}
	require.InDelta(t, 1.0, sumSquares, 0.01)
}

func TestHTTPVectorizer_AssignsVectorsFromCall(t *testing.T) {
	v := NewHTTPVectorizer(HTTPConfig{Endpoint: "http://example.test"}, 3,
		func(ctx context.Context, cfg HTTPConfig, texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i := range texts {
				out[i] = []float32{1, 2, 3}
			}
			return out, nil
		})

	batch := &ingestkernel.TextBatch{Inputs: []ingestkernel.TextInput{{Text: "a"}, {Text: "b"}}}
	require.NoError(t, v.Vectorize(context.Background(), batch))
	require.Equal(t, []float32{1, 2, 3}, batch.Inputs[0].Vector)
	require.Equal(t, []float32{1, 2, 3}, batch.Inputs[1].Vector)
}

func TestHTTPVectorizer_PropagatesCallError(t *testing.T) {
	wantErr := errors.New("endpoint unreachable")
	v := NewHTTPVectorizer(HTTPConfig{}, 3, func(ctx context.Context, cfg HTTPConfig, texts []string) ([][]float32, error) {
		return nil, wantErr
	})

	batch := &ingestkernel.TextBatch{Inputs: []ingestkernel.TextInput{{Text: "a"}}}
	err := v.Vectorize(context.Background(), batch)
	require.ErrorIs(t, err, wantErr)
}

func TestHTTPVectorizer_MismatchedVectorCount(t *testing.T) {
	v := NewHTTPVectorizer(HTTPConfig{}, 3, func(ctx context.Context, cfg HTTPConfig, texts []string) ([][]float32, error) {
		return [][]float32{{1, 2, 3}}, nil
	})

	batch := &ingestkernel.TextBatch{Inputs: []ingestkernel.TextInput{{Text: "a"}, {Text: "b"}}}
	err := v.Vectorize(context.Background(), batch)
	require.Error(t, err)
}

func TestHTTPVectorizer_EmptyBatchIsNoop(t *testing.T) {
	called := false
	v := NewHTTPVectorizer(HTTPConfig{}, 3, func(ctx context.Context, cfg HTTPConfig, texts []string) ([][]float32, error) {
		called = true
		return nil, nil
	})
	require.NoError(t, v.Vectorize(context.Background(), &ingestkernel.TextBatch{}))
	require.False(t, called)
}
