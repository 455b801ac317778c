package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/appliance-rag/internal/module/vectorindex/domain"
	"github.com/jinford/appliance-rag/internal/platform/database"
	"github.com/jinford/appliance-rag/internal/shared/metadata"
)

const (
	defaultEfSearch = 40
	efSearchFactor  = 4
	maxEfSearch     = 1000
)

// Index は PostgreSQL + pgvector によるベクトルインデックスです
// コレクションごとに1テーブルを持ち、HNSW(vector_cosine_ops) で近傍検索します
type Index struct {
	pool      *pgxpool.Pool
	name      string
	dimension int
}

// NewIndex は新しい pgvector インデックスを作成します
func NewIndex(pool *pgxpool.Pool, collection string, dimension int) *Index {
	return &Index{
		pool:      pool,
		name:      collection,
		dimension: dimension,
	}
}

// table はサニタイズ済みのテーブル名を返します
func (idx *Index) table() string {
	return pgx.Identifier{idx.name}.Sanitize()
}

// CreateCollection はコレクションテーブルを作成します
func (idx *Index) CreateCollection(ctx context.Context, forceRecreate bool) error {
	_, err := database.Transact(ctx, idx.pool, func(tx pgx.Tx) (struct{}, error) {
		if err := database.AcquireXactLock(ctx, tx, database.GenerateLockID("collection", idx.name)); err != nil {
			return struct{}{}, err
		}
		if _, err := tx.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
			return struct{}{}, fmt.Errorf("failed to create vector extension: %w", err)
		}
		if forceRecreate {
			if _, err := tx.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", idx.table())); err != nil {
				return struct{}{}, fmt.Errorf("failed to drop collection: %w", err)
			}
		}
		for _, stmt := range createStatements(idx.name, idx.dimension) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return struct{}{}, fmt.Errorf("failed to create collection: %w", err)
			}
		}
		return struct{}{}, nil
	})
	return err
}

// DeleteCollection はコレクションテーブルを削除します
func (idx *Index) DeleteCollection(ctx context.Context) error {
	if _, err := idx.pool.Exec(ctx, fmt.Sprintf("DROP TABLE %s", idx.table())); err != nil {
		return idx.classify(err, "failed to delete collection")
	}
	return nil
}

// CollectionInfo はコレクション情報を返します
func (idx *Index) CollectionInfo(ctx context.Context) (*domain.CollectionInfo, error) {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", idx.table())
	if err := idx.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return nil, idx.classify(err, "failed to get collection info")
	}

	// vector(n) 列の atttypmod は n を保持する
	var dimension int
	err := idx.pool.QueryRow(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = $1::regclass AND attname = 'embedding' AND NOT attisdropped
	`, idx.table()).Scan(&dimension)
	if err != nil {
		return nil, idx.classify(err, "failed to read collection dimension")
	}

	return &domain.CollectionInfo{
		Name:           idx.name,
		VectorCount:    count,
		PointCount:     count,
		Status:         "green",
		Dimension:      dimension,
		DistanceMetric: domain.DistanceCosine,
	}, nil
}

// Upsert はエントリを1トランザクション内で batchSize 件ずつ書き込みます
func (idx *Index) Upsert(ctx context.Context, entries []*domain.IndexEntry, batchSize int) (int, error) {
	if err := domain.ValidateEntries(entries, idx.dimension); err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	return database.Transact(ctx, idx.pool, func(tx pgx.Tx) (int, error) {
		return idx.upsertBatches(ctx, tx, entries, batchSize)
	})
}

// ReplaceDocument はドキュメントの既存エントリを削除してから書き込みます
// 同一ドキュメントの同時取り込みはアドバイザリロックで直列化されます
func (idx *Index) ReplaceDocument(ctx context.Context, documentID string, entries []*domain.IndexEntry, batchSize int) (int, error) {
	if err := domain.ValidateEntries(entries, idx.dimension); err != nil {
		return 0, err
	}

	return database.Transact(ctx, idx.pool, func(tx pgx.Tx) (int, error) {
		if err := database.AcquireXactLock(ctx, tx, database.GenerateLockID(idx.name, documentID)); err != nil {
			return 0, err
		}
		if _, err := idx.deleteByDocument(ctx, tx, documentID); err != nil {
			return 0, err
		}
		return idx.upsertBatches(ctx, tx, entries, batchSize)
	})
}

func (idx *Index) upsertBatches(ctx context.Context, q database.Querier, entries []*domain.IndexEntry, batchSize int) (int, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, embedding, text, metadata, updated_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, now())
		ON CONFLICT (id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			embedding = EXCLUDED.embedding,
			text = EXCLUDED.text,
			metadata = EXCLUDED.metadata,
			updated_at = now()
	`, idx.table())

	stored := 0
	for _, chunk := range domain.Batches(entries, batchSize) {
		batch := &pgx.Batch{}
		for _, e := range chunk {
			payload, err := json.Marshal(e.Metadata.Clone())
			if err != nil {
				return stored, fmt.Errorf("failed to marshal metadata for %s: %w", e.ID, err)
			}
			batch.Queue(query, e.ID, e.Metadata.String(metadata.KeyDocumentID), pgvector.NewVector(e.Vector), e.Text, payload)
		}

		if err := q.SendBatch(ctx, batch).Close(); err != nil {
			return stored, idx.classify(err, "failed to upsert entries")
		}
		stored += len(chunk)
	}
	return stored, nil
}

// Search はコサイン距離の昇順（類似度の降順）で検索します
func (idx *Index) Search(ctx context.Context, queryVector []float32, topK int, filters map[string]string) ([]*domain.SearchResult, error) {
	if topK <= 0 {
		return nil, domain.ErrInvalidTopK
	}
	if len(queryVector) != idx.dimension {
		return nil, &domain.DimensionMismatchError{Expected: idx.dimension, Actual: len(queryVector)}
	}

	filters = metadata.CleanFilters(filters)
	filterJSON, err := json.Marshal(filters)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal filters: %w", err)
	}

	results, err := database.Transact(ctx, idx.pool, func(tx pgx.Tx) ([]*domain.SearchResult, error) {
		// HNSW は索引走査の後にフィルタを適用するため、候補数と反復走査で top_k 件を確保する
		settings := []string{fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", efSearch(topK))}
		if len(filters) > 0 {
			settings = append(settings, "SET LOCAL hnsw.iterative_scan = strict_order")
		}
		for _, stmt := range settings {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return nil, idx.classify(err, "failed to configure search")
			}
		}
		return idx.search(ctx, tx, queryVector, filterJSON, topK)
	})
	if err != nil {
		return nil, err
	}

	// 浮動小数点誤差による同点の並びを安定させる
	domain.SortResults(results)
	return results, nil
}

// search は設定済みのトランザクション内で近傍検索を実行します
func (idx *Index) search(ctx context.Context, q database.Querier, queryVector []float32, filterJSON []byte, topK int) ([]*domain.SearchResult, error) {
	query := fmt.Sprintf(`
		SELECT id, text, metadata, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE metadata @> $2::jsonb
		ORDER BY embedding <=> $1, id
		LIMIT $3
	`, idx.table())

	rows, err := q.Query(ctx, query, pgvector.NewVector(queryVector), filterJSON, topK)
	if err != nil {
		return nil, idx.classify(err, "failed to search")
	}
	defer rows.Close()

	results := make([]*domain.SearchResult, 0, topK)
	for rows.Next() {
		var (
			r       domain.SearchResult
			payload []byte
		)
		if err := rows.Scan(&r.ID, &r.Text, &payload, &r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		r.Metadata = metadata.Metadata{}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &r.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", r.ID, err)
			}
		}
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, idx.classify(err, "failed to iterate search results")
	}
	return results, nil
}

// efSearch は top_k に応じた HNSW の候補リスト長を返します（pgvector の上限は1000）
func efSearch(topK int) int {
	return min(max(defaultEfSearch, topK*efSearchFactor), maxEfSearch)
}

// DeleteByDocument はドキュメントに属するエントリを削除します
func (idx *Index) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	return idx.deleteByDocument(ctx, idx.pool, documentID)
}

func (idx *Index) deleteByDocument(ctx context.Context, q database.Querier, documentID string) (int, error) {
	tag, err := q.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE document_id = $1", idx.table()), documentID)
	if err != nil {
		return 0, idx.classify(err, "failed to delete document entries")
	}
	return int(tag.RowsAffected()), nil
}

// classify は PostgreSQL のエラーをドメインエラーに変換します
func (idx *Index) classify(err error, msg string) error {
	if database.IsUndefinedTable(err) {
		return fmt.Errorf("%s: %w: %s", msg, domain.ErrCollectionNotFound, idx.name)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, domain.ErrIndexUnavailable, err)
}

var (
	_ domain.VectorIndex      = (*Index)(nil)
	_ domain.DocumentReplacer = (*Index)(nil)
)
