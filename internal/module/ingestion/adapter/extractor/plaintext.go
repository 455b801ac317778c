package extractor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jinford/appliance-rag/internal/module/ingestion/domain"
)

// PlainTextExtractor はテキスト・Markdownファイルをそのまま読み込みます
type PlainTextExtractor struct{}

// NewPlainTextExtractor は新しい PlainTextExtractor を作成します
func NewPlainTextExtractor() *PlainTextExtractor {
	return &PlainTextExtractor{}
}

// Name は抽出器の識別子を返します
func (e *PlainTextExtractor) Name() string {
	return domain.ExtractorPlainText
}

// Extract はファイル内容を不正なUTF-8を除去して返します（ページ数は1）
func (e *PlainTextExtractor) Extract(ctx context.Context, path string) (*domain.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	text := strings.TrimSpace(strings.ToValidUTF8(string(content), ""))
	pageCount := 1
	if text == "" {
		pageCount = 0
	}
	return &domain.Extraction{Text: text, PageCount: pageCount}, nil
}

var _ domain.TextExtractor = (*PlainTextExtractor)(nil)
