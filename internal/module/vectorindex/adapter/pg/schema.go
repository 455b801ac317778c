package pg

import (
	"fmt"

	"github.com/jackc/pgx/v5"
)

// createStatements はコレクションテーブルとインデックスのDDLを返します
func createStatements(collection string, dimension int) []string {
	table := pgx.Identifier{collection}.Sanitize()
	hnsw := pgx.Identifier{collection + "_embedding_hnsw"}.Sanitize()
	docIdx := pgx.Identifier{collection + "_document_id_idx"}.Sanitize()
	metaIdx := pgx.Identifier{collection + "_metadata_gin"}.Sanitize()

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL DEFAULT '',
			embedding vector(%d) NOT NULL,
			text TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, table, dimension),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)", hnsw, table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (document_id)", docIdx, table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING gin (metadata jsonb_path_ops)", metaIdx, table),
	}
}
