package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jinford/appliance-rag/internal/module/ingestion/domain"
)

// Registry はメモリ上の取り込み済みドキュメントの記録です
type Registry struct {
	mu      sync.RWMutex
	records map[string]*domain.DocumentRecord
}

// NewRegistry は新しい Registry を作成します
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]*domain.DocumentRecord)}
}

// FindByHash はハッシュに一致する最新の記録を返します
func (r *Registry) FindByHash(_ context.Context, contentHash string) (*domain.DocumentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *domain.DocumentRecord
	for _, rec := range r.records {
		if rec.ContentHash != contentHash {
			continue
		}
		if latest == nil || rec.IngestedAt.After(latest.IngestedAt) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, domain.ErrDocumentNotFound
	}
	found := *latest
	return &found, nil
}

// Save は記録を保存します（同じIDの記録は上書き）
func (r *Registry) Save(_ context.Context, record *domain.DocumentRecord) error {
	rec := *record
	if rec.IngestedAt.IsZero() {
		rec.IngestedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = &rec
	return nil
}

var _ domain.DocumentRegistry = (*Registry)(nil)
