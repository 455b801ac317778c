package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/jinford/appliance-rag/internal/module/vectorindex/domain"
	"github.com/jinford/appliance-rag/internal/shared/metadata"
)

// Index は Qdrant コレクションをバックエンドとするベクトルインデックスです
type Index struct {
	client     *client
	collection string
	dimension  int
}

// Option は Index のオプション設定
type Option func(*Index)

// WithHTTPClient は HTTP クライアントを差し替える
func WithHTTPClient(hc *http.Client) Option {
	return func(idx *Index) {
		idx.client.http = hc
	}
}

// NewIndex は新しい Qdrant インデックスを作成します
func NewIndex(cfg Config, opts ...Option) *Index {
	idx := &Index{
		client:     newClient(cfg.URL, cfg.APIKey, cfg.Timeout, nil),
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type scoredPoint struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

type collectionResult struct {
	Status       string `json:"status"`
	VectorsCount *int64 `json:"vectors_count"`
	PointsCount  *int64 `json:"points_count"`
	Config       struct {
		Params struct {
			Vectors struct {
				Size     int    `json:"size"`
				Distance string `json:"distance"`
			} `json:"vectors"`
		} `json:"params"`
	} `json:"config"`
}

// CreateCollection はコレクションを作成します（既存の場合は forceRecreate 時のみ再作成）
func (idx *Index) CreateCollection(ctx context.Context, forceRecreate bool) error {
	exists := true
	if _, err := idx.CollectionInfo(ctx); err != nil {
		if !errors.Is(err, domain.ErrCollectionNotFound) {
			return err
		}
		exists = false
	}

	if exists && forceRecreate {
		if err := idx.DeleteCollection(ctx); err != nil {
			return err
		}
		exists = false
	}
	if exists {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     idx.dimension,
			"distance": domain.DistanceCosine,
		},
	}
	if err := idx.client.do(ctx, http.MethodPut, collectionPath(idx.collection, ""), body, nil); err != nil {
		return idx.classify(err, "failed to create collection")
	}
	return nil
}

// DeleteCollection はコレクションを削除します
func (idx *Index) DeleteCollection(ctx context.Context) error {
	if err := idx.client.do(ctx, http.MethodDelete, collectionPath(idx.collection, ""), nil, nil); err != nil {
		return idx.classify(err, "failed to delete collection")
	}
	return nil
}

// CollectionInfo はコレクション情報を返します
func (idx *Index) CollectionInfo(ctx context.Context) (*domain.CollectionInfo, error) {
	var res collectionResult
	if err := idx.client.do(ctx, http.MethodGet, collectionPath(idx.collection, ""), nil, &res); err != nil {
		return nil, idx.classify(err, "failed to get collection info")
	}

	info := &domain.CollectionInfo{
		Name:           idx.collection,
		Status:         res.Status,
		Dimension:      res.Config.Params.Vectors.Size,
		DistanceMetric: res.Config.Params.Vectors.Distance,
	}
	if res.PointsCount != nil {
		info.PointCount = *res.PointsCount
	}
	// 新しいバージョンの Qdrant は vectors_count を返さないため points_count で補う
	if res.VectorsCount != nil {
		info.VectorCount = *res.VectorsCount
	} else {
		info.VectorCount = info.PointCount
	}
	return info, nil
}

// Upsert はエントリを batchSize 件ずつ書き込みます
func (idx *Index) Upsert(ctx context.Context, entries []*domain.IndexEntry, batchSize int) (int, error) {
	if err := domain.ValidateEntries(entries, idx.dimension); err != nil {
		return 0, err
	}

	stored := 0
	for _, batch := range domain.Batches(entries, batchSize) {
		points := make([]point, 0, len(batch))
		for _, e := range batch {
			payload := e.Metadata.Clone()
			payload[metadata.KeyText] = e.Text
			points = append(points, point{ID: e.ID, Vector: e.Vector, Payload: payload})
		}

		body := map[string]any{"points": points}
		if err := idx.client.do(ctx, http.MethodPut, collectionPath(idx.collection, "/points?wait=true"), body, nil); err != nil {
			return stored, idx.classify(err, "failed to upsert points")
		}
		stored += len(batch)
	}
	return stored, nil
}

// Search は must 条件のフィルタ付きで近傍検索します
func (idx *Index) Search(ctx context.Context, queryVector []float32, topK int, filters map[string]string) ([]*domain.SearchResult, error) {
	if topK <= 0 {
		return nil, domain.ErrInvalidTopK
	}
	if len(queryVector) != idx.dimension {
		return nil, &domain.DimensionMismatchError{Expected: idx.dimension, Actual: len(queryVector)}
	}

	body := map[string]any{
		"vector":       queryVector,
		"limit":        topK,
		"with_payload": true,
	}
	if f := buildFilter(filters); f != nil {
		body["filter"] = f
	}

	var points []scoredPoint
	if err := idx.client.do(ctx, http.MethodPost, collectionPath(idx.collection, "/points/search"), body, &points); err != nil {
		return nil, idx.classify(err, "failed to search")
	}

	results := make([]*domain.SearchResult, 0, len(points))
	for _, p := range points {
		md := metadata.Metadata{}
		text := ""
		for k, v := range p.Payload {
			if k == metadata.KeyText {
				text, _ = v.(string)
				continue
			}
			md[k] = v
		}
		results = append(results, &domain.SearchResult{
			ID:       fmt.Sprint(p.ID),
			Score:    p.Score,
			Text:     text,
			Metadata: md,
		})
	}

	domain.SortResults(results)
	return results, nil
}

// DeleteByDocument はドキュメントに属するポイントを削除し、削除件数を返します
func (idx *Index) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	filter := buildFilter(map[string]string{metadata.KeyDocumentID: documentID})

	var counted struct {
		Count int `json:"count"`
	}
	countBody := map[string]any{"filter": filter, "exact": true}
	if err := idx.client.do(ctx, http.MethodPost, collectionPath(idx.collection, "/points/count"), countBody, &counted); err != nil {
		return 0, idx.classify(err, "failed to count document points")
	}
	if counted.Count == 0 {
		return 0, nil
	}

	deleteBody := map[string]any{"filter": filter}
	if err := idx.client.do(ctx, http.MethodPost, collectionPath(idx.collection, "/points/delete?wait=true"), deleteBody, nil); err != nil {
		return 0, idx.classify(err, "failed to delete document points")
	}
	return counted.Count, nil
}

// buildFilter は完全一致のAND条件を Qdrant の must フィルタに変換します
func buildFilter(filters map[string]string) map[string]any {
	filters = metadata.CleanFilters(filters)
	if len(filters) == 0 {
		return nil
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	must := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		must = append(must, map[string]any{
			"key":   k,
			"match": map[string]any{"value": filters[k]},
		})
	}
	return map[string]any{"must": must}
}

// classify は HTTP ステータスをドメインエラーに変換します
func (idx *Index) classify(err error, msg string) error {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s: %w: %s", msg, domain.ErrCollectionNotFound, idx.collection)
		}
		if apiErr.StatusCode >= 500 {
			return fmt.Errorf("%s: %w: %w", msg, domain.ErrIndexUnavailable, err)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

var _ domain.VectorIndex = (*Index)(nil)
