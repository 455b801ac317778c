package testing

import (
	"context"

	"github.com/jinford/appliance-rag/internal/module/retrieval/domain"
	vectordomain "github.com/jinford/appliance-rag/internal/module/vectorindex/domain"
)

// MockQueryEmbedder はテスト用のモック QueryEmbedder です
type MockQueryEmbedder struct {
	EmbedQueryFunc func(ctx context.Context, text string) ([]float32, error)
}

// EmbedQuery はEmbedQueryのモック実装です
func (m *MockQueryEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedQueryFunc != nil {
		return m.EmbedQueryFunc(ctx, text)
	}
	return []float32{1, 0}, nil
}

// MockSearcher はテスト用のモック Searcher です
type MockSearcher struct {
	SearchFunc func(ctx context.Context, queryVector []float32, topK int, filters map[string]string) ([]*vectordomain.SearchResult, error)

	LastTopK    int
	LastFilters map[string]string
}

// Search はSearchのモック実装です
func (m *MockSearcher) Search(ctx context.Context, queryVector []float32, topK int, filters map[string]string) ([]*vectordomain.SearchResult, error) {
	m.LastTopK = topK
	m.LastFilters = filters
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, queryVector, topK, filters)
	}
	return nil, nil
}

// Results は固定の結果を返す SearchFunc を作成します
func Results(results ...*vectordomain.SearchResult) func(context.Context, []float32, int, map[string]string) ([]*vectordomain.SearchResult, error) {
	return func(context.Context, []float32, int, map[string]string) ([]*vectordomain.SearchResult, error) {
		return results, nil
	}
}

var (
	_ domain.QueryEmbedder = (*MockQueryEmbedder)(nil)
	_ domain.Searcher      = (*MockSearcher)(nil)
)
