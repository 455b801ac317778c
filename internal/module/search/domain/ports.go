package domain

import (
	"context"

	retrievaldomain "github.com/jinford/appliance-rag/internal/module/retrieval/domain"
	scoringdomain "github.com/jinford/appliance-rag/internal/module/scoring/domain"
	vectordomain "github.com/jinford/appliance-rag/internal/module/vectorindex/domain"
)

// Retriever はメタデータで絞り込んだ検索のポートです
type Retriever interface {
	RetrieveWithMetadata(ctx context.Context, query string, topK int, filter retrievaldomain.MetadataFilter, minScore float64) (*retrievaldomain.Result, error)
}

// Scorer は精度スコア算出のポートです
type Scorer interface {
	Score(ctx context.Context, results []*vectordomain.SearchResult, id scoringdomain.Identity) *scoringdomain.AccuracyScore
}
