package memory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/jinford/appliance-rag/internal/module/vectorindex/domain"
	"github.com/jinford/appliance-rag/internal/shared/metadata"
)

// Index はブルートフォースのコサイン類似度で検索するインメモリのベクトルインデックスです
// ローカル実行とテストに使用します
type Index struct {
	mu        sync.RWMutex
	name      string
	dimension int
	exists    bool
	entries   map[string]*domain.IndexEntry
}

// NewIndex は新しいインメモリインデックスを作成します（コレクションは未作成状態）
func NewIndex(name string, dimension int) *Index {
	return &Index{
		name:      name,
		dimension: dimension,
		entries:   make(map[string]*domain.IndexEntry),
	}
}

// CreateCollection はコレクションを作成します
func (idx *Index) CreateCollection(ctx context.Context, forceRecreate bool) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.exists && !forceRecreate {
		return nil
	}
	idx.exists = true
	idx.entries = make(map[string]*domain.IndexEntry)
	return nil
}

// DeleteCollection はコレクションを削除します
func (idx *Index) DeleteCollection(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if !idx.exists {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, idx.name)
	}
	idx.exists = false
	idx.entries = make(map[string]*domain.IndexEntry)
	return nil
}

// CollectionInfo はコレクション情報を返します
func (idx *Index) CollectionInfo(ctx context.Context) (*domain.CollectionInfo, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, idx.name)
	}
	count := int64(len(idx.entries))
	return &domain.CollectionInfo{
		Name:           idx.name,
		VectorCount:    count,
		PointCount:     count,
		Status:         "green",
		Dimension:      idx.dimension,
		DistanceMetric: domain.DistanceCosine,
	}, nil
}

// Upsert はエントリを書き込みます（同一IDは置き換え）
func (idx *Index) Upsert(ctx context.Context, entries []*domain.IndexEntry, batchSize int) (int, error) {
	if err := domain.ValidateEntries(entries, idx.dimension); err != nil {
		return 0, err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if !idx.exists {
		return 0, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, idx.name)
	}

	stored := 0
	for _, batch := range domain.Batches(entries, batchSize) {
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		for _, e := range batch {
			idx.entries[e.ID] = &domain.IndexEntry{
				ID:       e.ID,
				Vector:   append([]float32(nil), e.Vector...),
				Text:     e.Text,
				Metadata: e.Metadata.Clone(),
			}
			stored++
		}
	}
	return stored, nil
}

// Search はコサイン類似度の降順で検索します
func (idx *Index) Search(ctx context.Context, queryVector []float32, topK int, filters map[string]string) ([]*domain.SearchResult, error) {
	if topK <= 0 {
		return nil, domain.ErrInvalidTopK
	}
	if len(queryVector) != idx.dimension {
		return nil, &domain.DimensionMismatchError{Expected: idx.dimension, Actual: len(queryVector)}
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, idx.name)
	}

	filters = metadata.CleanFilters(filters)
	results := make([]*domain.SearchResult, 0, len(idx.entries))
	for _, e := range idx.entries {
		if !e.Metadata.Matches(filters) {
			continue
		}
		results = append(results, &domain.SearchResult{
			ID:       e.ID,
			Score:    cosine(queryVector, e.Vector),
			Text:     e.Text,
			Metadata: e.Metadata.Clone(),
		})
	}

	domain.SortResults(results)
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DeleteByDocument はドキュメントに属するエントリを削除します
func (idx *Index) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if !idx.exists {
		return 0, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, idx.name)
	}

	deleted := 0
	for id, e := range idx.entries {
		if e.Metadata.String(metadata.KeyDocumentID) == documentID {
			delete(idx.entries, id)
			deleted++
		}
	}
	return deleted, nil
}

// ReplaceDocument はドキュメントのエントリを削除してから書き込みます（ロック内で一括実行）
func (idx *Index) ReplaceDocument(ctx context.Context, documentID string, entries []*domain.IndexEntry, batchSize int) (int, error) {
	if err := domain.ValidateEntries(entries, idx.dimension); err != nil {
		return 0, err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if !idx.exists {
		return 0, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, idx.name)
	}

	next := make(map[string]*domain.IndexEntry, len(idx.entries)+len(entries))
	for id, e := range idx.entries {
		if e.Metadata.String(metadata.KeyDocumentID) != documentID {
			next[id] = e
		}
	}
	for _, e := range entries {
		next[e.ID] = &domain.IndexEntry{
			ID:       e.ID,
			Vector:   append([]float32(nil), e.Vector...),
			Text:     e.Text,
			Metadata: e.Metadata.Clone(),
		}
	}
	idx.entries = next
	return len(entries), nil
}

func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var (
	_ domain.VectorIndex      = (*Index)(nil)
	_ domain.DocumentReplacer = (*Index)(nil)
)
