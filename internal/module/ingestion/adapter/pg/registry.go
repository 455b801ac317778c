package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jinford/appliance-rag/internal/module/ingestion/domain"
	"github.com/jinford/appliance-rag/internal/platform/database"
)

const schema = `CREATE TABLE IF NOT EXISTS ingested_documents (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	extractor    TEXT NOT NULL,
	chunk_count  INTEGER NOT NULL DEFAULT 0,
	ingested_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_ingested_documents_content_hash ON ingested_documents (content_hash);`

// Registry は PostgreSQL による取り込み済みドキュメントの記録です
type Registry struct {
	db database.Querier
}

// NewRegistry は新しい Registry を作成します
func NewRegistry(db database.Querier) *Registry {
	return &Registry{db: db}
}

// EnsureSchema はテーブルが存在しない場合に作成します
func (r *Registry) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create ingested_documents table: %w", err)
	}
	return nil
}

// FindByHash はハッシュに一致する最新の記録を返します
func (r *Registry) FindByHash(ctx context.Context, contentHash string) (*domain.DocumentRecord, error) {
	const query = `SELECT id, source, content_hash, extractor, chunk_count, ingested_at
		FROM ingested_documents
		WHERE content_hash = $1
		ORDER BY ingested_at DESC
		LIMIT 1`

	var rec domain.DocumentRecord
	err := r.db.QueryRow(ctx, query, contentHash).Scan(
		&rec.ID, &rec.Source, &rec.ContentHash, &rec.Extractor, &rec.ChunkCount, &rec.IngestedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || database.IsUndefinedTable(err) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to find document by hash: %w", err)
	}
	return &rec, nil
}

// Save は記録を保存します（同じIDの記録は上書き）
func (r *Registry) Save(ctx context.Context, record *domain.DocumentRecord) error {
	const query = `INSERT INTO ingested_documents (id, source, content_hash, extractor, chunk_count, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			source = EXCLUDED.source,
			content_hash = EXCLUDED.content_hash,
			extractor = EXCLUDED.extractor,
			chunk_count = EXCLUDED.chunk_count,
			ingested_at = EXCLUDED.ingested_at`

	ingestedAt := record.IngestedAt
	if ingestedAt.IsZero() {
		ingestedAt = time.Now().UTC()
	}

	if _, err := r.db.Exec(ctx, query,
		record.ID, record.Source, record.ContentHash, record.Extractor, record.ChunkCount, ingestedAt,
	); err != nil {
		return fmt.Errorf("failed to save document record: %w", err)
	}
	return nil
}

var _ domain.DocumentRegistry = (*Registry)(nil)
