package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmbeddingBatchFailed はバッチ単位の Embedding 呼び出しが失敗した場合のエラー
	ErrEmbeddingBatchFailed = errors.New("embedding batch failed")

	// ErrRateLimited は Embedding サービスがレート制限を返した場合のエラー
	ErrRateLimited = errors.New("embedding service rate limited")

	// ErrEmptyInput は空の入力が渡された場合のエラー
	ErrEmptyInput = errors.New("no texts provided")
)

// DimensionMismatchError は Embedding の次元が設定と一致しない場合のエラー
type DimensionMismatchError struct {
	Expected int
	Actual   int
	Index    int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch at item %d: expected %d, got %d", e.Index, e.Expected, e.Actual)
}
