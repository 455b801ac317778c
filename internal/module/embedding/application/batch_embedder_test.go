package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/appliance-rag/internal/module/embedding/application"
	"github.com/jinford/appliance-rag/internal/module/embedding/domain"
	testutil "github.com/jinford/appliance-rag/internal/module/embedding/testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('a' + i%26))
	}
	return out
}

// indexClient は入力位置を値に持つベクトルを返し、呼び出しのバッチサイズを記録する
type indexClient struct {
	mu      sync.Mutex
	sizes   []int
	offset  int
	failOn  map[int]bool
	dim     int
	calls   int
	blockOn map[int]bool
}

func (c *indexClient) EmbedBatch(ctx context.Context, in []string) ([][]float32, error) {
	c.mu.Lock()
	call := c.calls
	c.calls++
	c.sizes = append(c.sizes, len(in))
	offset := c.offset
	c.offset += len(in)
	c.mu.Unlock()

	if c.blockOn[call] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if c.failOn[call] {
		return nil, errors.New("upstream 500")
	}

	out := make([][]float32, len(in))
	for i := range in {
		v := make([]float32, c.dim)
		v[0] = float32(offset + i)
		out[i] = v
	}
	return out, nil
}

func (c *indexClient) ModelName() string { return "test-model" }
func (c *indexClient) Dimension() int    { return c.dim }

func TestBatchEmbedder_Embed_BatchesInOrder(t *testing.T) {
	client := &indexClient{dim: 4}
	embedder := application.NewBatchEmbedder(client, discardLogger(), application.WithBatchDelay(0))

	result, err := embedder.Embed(context.Background(), texts(250))
	require.NoError(t, err)

	assert.Equal(t, []int{100, 100, 50}, client.sizes)
	require.Len(t, result.Vectors, 250)
	for i, v := range result.Vectors {
		require.NotNil(t, v)
		assert.Equal(t, float32(i), v[0])
	}
	assert.Equal(t, domain.Stats{Total: 250, Valid: 250, Failed: 0, Dimension: 4, Model: "test-model"}, result.Stats)
}

func TestBatchEmbedder_Embed_FailedBatchIsMarked(t *testing.T) {
	client := &indexClient{dim: 4, failOn: map[int]bool{1: true}}
	embedder := application.NewBatchEmbedder(client, discardLogger(), application.WithBatchDelay(0), application.WithBatchSize(10))

	result, err := embedder.Embed(context.Background(), texts(25))
	require.NoError(t, err)

	assert.Equal(t, 15, result.Stats.Valid)
	assert.Equal(t, 10, result.Stats.Failed)
	for i, v := range result.Vectors {
		if i >= 10 && i < 20 {
			assert.Nil(t, v, "item %d", i)
		} else {
			assert.NotNil(t, v, "item %d", i)
		}
	}
	assert.Len(t, result.Failed(), 10)
}

func TestBatchEmbedder_Embed_BatchTimeoutIsPartialFailure(t *testing.T) {
	client := &indexClient{dim: 2, blockOn: map[int]bool{0: true}}
	embedder := application.NewBatchEmbedder(client, discardLogger(),
		application.WithBatchDelay(0),
		application.WithBatchSize(2),
		application.WithBatchTimeout(20*time.Millisecond),
	)

	result, err := embedder.Embed(context.Background(), texts(4))
	require.NoError(t, err)
	assert.Nil(t, result.Vectors[0])
	assert.Nil(t, result.Vectors[1])
	assert.NotNil(t, result.Vectors[2])
	assert.Equal(t, 2, result.Stats.Failed)
}

func TestBatchEmbedder_Embed_DimensionMismatch(t *testing.T) {
	client := &testutil.MockClient{
		Dim: 3,
		EmbedBatchFunc: func(_ context.Context, in []string) ([][]float32, error) {
			out := make([][]float32, len(in))
			for i := range out {
				out[i] = []float32{1, 2, 3}
			}
			if len(in) == 1 {
				out[0] = []float32{1, 2}
			}
			return out, nil
		},
	}
	embedder := application.NewBatchEmbedder(client, discardLogger(), application.WithBatchDelay(0), application.WithBatchSize(2))

	_, err := embedder.Embed(context.Background(), texts(5))
	var mismatch *domain.DimensionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 4, mismatch.Index)
	assert.Equal(t, 3, mismatch.Expected)
	assert.Equal(t, 2, mismatch.Actual)
}

func TestBatchEmbedder_Embed_CancelledContext(t *testing.T) {
	client := &indexClient{dim: 2}
	embedder := application.NewBatchEmbedder(client, discardLogger(), application.WithBatchDelay(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := embedder.Embed(ctx, texts(3))
	require.ErrorIs(t, err, context.Canceled)
}

func TestBatchEmbedder_Embed_Pacing(t *testing.T) {
	client := &indexClient{dim: 2}
	embedder := application.NewBatchEmbedder(client, discardLogger(),
		application.WithBatchSize(1),
		application.WithBatchDelay(30*time.Millisecond),
	)

	started := time.Now()
	_, err := embedder.Embed(context.Background(), texts(3))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(started), 50*time.Millisecond)
}

func TestBatchEmbedder_Embed_Empty(t *testing.T) {
	embedder := application.NewBatchEmbedder(&indexClient{dim: 2}, discardLogger())

	result, err := embedder.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Vectors)
	assert.Equal(t, 0, result.Stats.Total)
}

func TestBatchEmbedder_EmbedQuery(t *testing.T) {
	embedder := application.NewBatchEmbedder(&testutil.HashClient{Dim: 16}, discardLogger())

	v, err := embedder.EmbedQuery(context.Background(), "water filter")
	require.NoError(t, err)
	assert.Len(t, v, 16)

	_, err = embedder.EmbedQuery(context.Background(), "  ")
	require.ErrorIs(t, err, domain.ErrEmptyInput)

	failing := application.NewBatchEmbedder(&testutil.MockClient{
		Dim: 16,
		EmbedBatchFunc: func(context.Context, []string) ([][]float32, error) {
			return nil, domain.ErrRateLimited
		},
	}, discardLogger())
	_, err = failing.EmbedQuery(context.Background(), "water filter")
	require.ErrorIs(t, err, domain.ErrRateLimited)
	require.ErrorIs(t, err, domain.ErrEmbeddingBatchFailed)
}
