package testing

import (
	"context"

	retrievaldomain "github.com/jinford/appliance-rag/internal/module/retrieval/domain"
	scoringdomain "github.com/jinford/appliance-rag/internal/module/scoring/domain"
	"github.com/jinford/appliance-rag/internal/module/search/domain"
	vectordomain "github.com/jinford/appliance-rag/internal/module/vectorindex/domain"
)

// MockRetriever はテスト用のモック Retriever です
type MockRetriever struct {
	RetrieveWithMetadataFunc func(ctx context.Context, query string, topK int, filter retrievaldomain.MetadataFilter, minScore float64) (*retrievaldomain.Result, error)

	LastTopK   int
	LastFilter retrievaldomain.MetadataFilter
}

// RetrieveWithMetadata はRetrieveWithMetadataのモック実装です
func (m *MockRetriever) RetrieveWithMetadata(ctx context.Context, query string, topK int, filter retrievaldomain.MetadataFilter, minScore float64) (*retrievaldomain.Result, error) {
	m.LastTopK = topK
	m.LastFilter = filter
	if m.RetrieveWithMetadataFunc != nil {
		return m.RetrieveWithMetadataFunc(ctx, query, topK, filter, minScore)
	}
	return &retrievaldomain.Result{Query: query, TopK: topK}, nil
}

// Returning は固定の検索結果を返す MockRetriever を作成します
func Returning(results ...*vectordomain.SearchResult) *MockRetriever {
	return &MockRetriever{
		RetrieveWithMetadataFunc: func(_ context.Context, query string, topK int, _ retrievaldomain.MetadataFilter, _ float64) (*retrievaldomain.Result, error) {
			return &retrievaldomain.Result{
				Query:       query,
				TopK:        topK,
				ResultCount: len(results),
				Results:     results,
				Context:     retrievaldomain.BuildContext(results),
			}, nil
		},
	}
}

// MockScorer はテスト用のモック Scorer です
type MockScorer struct {
	ScoreFunc func(ctx context.Context, results []*vectordomain.SearchResult, id scoringdomain.Identity) *scoringdomain.AccuracyScore

	LastResults  []*vectordomain.SearchResult
	LastIdentity scoringdomain.Identity
}

// Score はScoreのモック実装です
func (m *MockScorer) Score(ctx context.Context, results []*vectordomain.SearchResult, id scoringdomain.Identity) *scoringdomain.AccuracyScore {
	m.LastResults = results
	m.LastIdentity = id
	if m.ScoreFunc != nil {
		return m.ScoreFunc(ctx, results, id)
	}
	return scoringdomain.NoInformation()
}

var (
	_ domain.Retriever = (*MockRetriever)(nil)
	_ domain.Scorer    = (*MockScorer)(nil)
)
