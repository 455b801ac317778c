package domain

import (
	"context"
)

// Extraction は抽出器の出力です
type Extraction struct {
	Text      string
	PageCount int
}

// TextExtractor はファイルからテキストを抽出する戦略です
type TextExtractor interface {
	// Name は metadata の processor に記録される識別子を返します
	Name() string

	// Extract はファイルからUTF-8テキストとページ数を抽出します
	Extract(ctx context.Context, path string) (*Extraction, error)
}

// ContentDetector はファイルのコンテンツ種別を判定します
type ContentDetector interface {
	DetectContentType(path string, head []byte) string
}

// DocumentRegistry は取り込み済みドキュメントをコンテンツハッシュで記録します
type DocumentRegistry interface {
	// FindByHash はハッシュに一致する記録を返します（存在しない場合は ErrDocumentNotFound）
	FindByHash(ctx context.Context, contentHash string) (*DocumentRecord, error)

	// Save は記録を保存します（同じドキュメントIDの記録は上書き）
	Save(ctx context.Context, record *DocumentRecord) error
}
