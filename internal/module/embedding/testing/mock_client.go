package testing

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/jinford/appliance-rag/internal/module/embedding/domain"
)

// MockClient はテスト用のモック Embedding クライアントです
type MockClient struct {
	EmbedBatchFunc func(ctx context.Context, texts []string) ([][]float32, error)
	Model          string
	Dim            int
}

// EmbedBatch はEmbedBatchのモック実装です
func (m *MockClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.EmbedBatchFunc != nil {
		return m.EmbedBatchFunc(ctx, texts)
	}
	return nil, nil
}

// ModelName はModelNameのモック実装です
func (m *MockClient) ModelName() string {
	return m.Model
}

// Dimension はDimensionのモック実装です
func (m *MockClient) Dimension() int {
	return m.Dim
}

// HashClient は単語のハッシュから決定的なベクトルを生成するフェイククライアントです
// 共通する単語が多いテキストほどコサイン類似度が高くなります
type HashClient struct {
	Dim int
}

// EmbedBatch はテキストごとに正規化された bag-of-words ベクトルを返します
func (c *HashClient) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = c.vector(text)
	}
	return vectors, nil
}

func (c *HashClient) vector(text string) []float32 {
	v := make([]float32, c.Dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(word, ".,!?:;")))
		v[h.Sum32()%uint32(c.Dim)]++
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// ModelName はフェイクのモデル名を返します
func (c *HashClient) ModelName() string {
	return "hash-bow"
}

// Dimension はベクトル次元数を返します
func (c *HashClient) Dimension() int {
	return c.Dim
}

var (
	_ domain.Client = (*MockClient)(nil)
	_ domain.Client = (*HashClient)(nil)
)
