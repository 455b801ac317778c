package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/appliance-rag/internal/module/ingestion/adapter/memory"
	ingestpg "github.com/jinford/appliance-rag/internal/module/ingestion/adapter/pg"
	ingestdomain "github.com/jinford/appliance-rag/internal/module/ingestion/domain"
	vectormemory "github.com/jinford/appliance-rag/internal/module/vectorindex/adapter/memory"
	vectorpg "github.com/jinford/appliance-rag/internal/module/vectorindex/adapter/pg"
	"github.com/jinford/appliance-rag/internal/module/vectorindex/adapter/qdrant"
	vectordomain "github.com/jinford/appliance-rag/internal/module/vectorindex/domain"
	"github.com/jinford/appliance-rag/internal/platform/config"
	"github.com/jinford/appliance-rag/internal/platform/database"
)

// Storage はベクトルインデックスとドキュメント登録簿の組です
type Storage struct {
	Index    vectordomain.VectorIndex
	Registry ingestdomain.DocumentRegistry
	Database *database.Database
}

// Close は内部リソースを解放する。
func (s *Storage) Close() {
	if s != nil && s.Database != nil {
		s.Database.Close()
	}
}

// OpenStorage は設定されたバックエンドのインデックスと登録簿を開く。
// pgvector の場合は登録簿も同じデータベースに置き、それ以外はプロセス内の登録簿を使う。
func OpenStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Storage, error) {
	dimension := cfg.OpenAI.EmbeddingDimension
	collection := cfg.VectorStore.Collection

	switch cfg.VectorStore.Backend {
	case config.VectorBackendPgvector:
		db, err := database.New(ctx, database.ConnectionParams{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: データベース初期化に失敗しました: %v", vectordomain.ErrIndexUnavailable, err)
		}
		registry := ingestpg.NewRegistry(db.Pool)
		if err := registry.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ドキュメント登録簿の準備に失敗しました: %w", err)
		}
		return &Storage{
			Index:    vectorpg.NewIndex(db.Pool, collection, dimension),
			Registry: registry,
			Database: db,
		}, nil

	case config.VectorBackendQdrant:
		log.Warn("Duplicate detection is limited to this process with the qdrant backend")
		return &Storage{
			Index: qdrant.NewIndex(qdrant.Config{
				URL:        cfg.VectorStore.QdrantURL,
				APIKey:     cfg.VectorStore.QdrantAPIKey,
				Collection: collection,
				Dimension:  dimension,
				Timeout:    cfg.VectorStore.RequestTimeout,
			}),
			Registry: memory.NewRegistry(),
		}, nil

	case config.VectorBackendMemory:
		index := vectormemory.NewIndex(collection, dimension)
		if err := index.CreateCollection(ctx, false); err != nil {
			return nil, err
		}
		return &Storage{Index: index, Registry: memory.NewRegistry()}, nil

	default:
		return nil, fmt.Errorf("未知のベクトルストアバックエンドです: %s", cfg.VectorStore.Backend)
	}
}
