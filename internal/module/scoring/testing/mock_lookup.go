package testing

import (
	"context"

	"github.com/jinford/appliance-rag/internal/module/scoring/domain"
	vectordomain "github.com/jinford/appliance-rag/internal/module/vectorindex/domain"
)

// MockModelLookup はテスト用のモック ModelLookup です
type MockModelLookup struct {
	LookupModelFunc func(ctx context.Context, model, brand string, topK int) ([]*vectordomain.SearchResult, error)
	Calls           int
}

// LookupModel はLookupModelのモック実装です
func (m *MockModelLookup) LookupModel(ctx context.Context, model, brand string, topK int) ([]*vectordomain.SearchResult, error) {
	m.Calls++
	if m.LookupModelFunc != nil {
		return m.LookupModelFunc(ctx, model, brand, topK)
	}
	return nil, nil
}

var _ domain.ModelLookup = (*MockModelLookup)(nil)
