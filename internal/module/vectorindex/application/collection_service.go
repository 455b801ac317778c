package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jinford/appliance-rag/internal/module/vectorindex/domain"
)

// CollectionService はコレクションの作成・情報取得・削除のユースケースを提供します
type CollectionService struct {
	manager   domain.CollectionManager
	dimension int
	log       *slog.Logger
}

// NewCollectionService は新しい CollectionService を作成します
// dimension は埋め込みモデルのベクトル次元です
func NewCollectionService(manager domain.CollectionManager, dimension int, log *slog.Logger) *CollectionService {
	return &CollectionService{manager: manager, dimension: dimension, log: log}
}

// Setup はコレクションを作成し、作成後の情報を返します
// 既存のコレクションの次元が埋め込みモデルと異なる場合はエラーになります
func (s *CollectionService) Setup(ctx context.Context, forceRecreate bool) (*domain.CollectionInfo, error) {
	s.log.Info("Setting up collection", "forceRecreate", forceRecreate, "dimension", s.dimension)

	if err := s.manager.CreateCollection(ctx, forceRecreate); err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	info, err := s.manager.CollectionInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection info: %w", err)
	}
	if info.Dimension != 0 && info.Dimension != s.dimension {
		mismatch := &domain.DimensionMismatchError{Expected: info.Dimension, Actual: s.dimension}
		return info, fmt.Errorf("collection %s was created for another embedding model (use force recreate): %w", info.Name, mismatch)
	}

	s.log.Info("Collection ready", "name", info.Name, "points", info.PointCount, "status", info.Status)
	return info, nil
}

// Info はコレクション情報を返します
func (s *CollectionService) Info(ctx context.Context) (*domain.CollectionInfo, error) {
	info, err := s.manager.CollectionInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection info: %w", err)
	}
	return info, nil
}

// Delete はコレクションを削除します。存在しない場合は false を返します
func (s *CollectionService) Delete(ctx context.Context) (bool, error) {
	err := s.manager.DeleteCollection(ctx)
	switch {
	case errors.Is(err, domain.ErrCollectionNotFound):
		s.log.Warn("Collection does not exist")
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to delete collection: %w", err)
	}
	s.log.Info("Collection deleted")
	return true, nil
}
