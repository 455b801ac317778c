package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCollectionNotFound はコレクションが存在しない場合のエラー
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrIndexUnavailable はバックエンドに到達できない場合のエラー
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrInvalidTopK は top_k が不正な場合のエラー
	ErrInvalidTopK = errors.New("top_k must be positive")

	// ErrEmptyEntryID はIDが空のエントリを書き込もうとした場合のエラー
	ErrEmptyEntryID = errors.New("index entry id is required")
)

// DimensionMismatchError はベクトル次元がコレクション設定と一致しない場合のエラー
type DimensionMismatchError struct {
	Expected int
	Actual   int
	Index    int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch at entry %d: expected %d, got %d", e.Index, e.Expected, e.Actual)
}
