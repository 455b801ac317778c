package testing

import (
	"context"

	"github.com/jinford/appliance-rag/internal/module/ingestion/domain"
)

// MockExtractor はテスト用のモック抽出器です
type MockExtractor struct {
	NameValue   string
	ExtractFunc func(ctx context.Context, path string) (*domain.Extraction, error)
	Calls       int
}

// Name はNameのモック実装です
func (m *MockExtractor) Name() string {
	return m.NameValue
}

// Extract はExtractのモック実装です
func (m *MockExtractor) Extract(ctx context.Context, path string) (*domain.Extraction, error) {
	m.Calls++
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, path)
	}
	return nil, nil
}

// MockProcessor はテスト用のモック DocumentProcessor です
type MockProcessor struct {
	ProcessFunc func(ctx context.Context, file domain.SourceFile) (*domain.Document, error)
}

// Process はProcessのモック実装です
func (m *MockProcessor) Process(ctx context.Context, file domain.SourceFile) (*domain.Document, error) {
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, file)
	}
	return nil, nil
}

// Returning は固定の結果を返す抽出器を作成します
func Returning(name, text string, pages int) *MockExtractor {
	return &MockExtractor{
		NameValue: name,
		ExtractFunc: func(context.Context, string) (*domain.Extraction, error) {
			return &domain.Extraction{Text: text, PageCount: pages}, nil
		},
	}
}

// Failing はエラーを返す抽出器を作成します
func Failing(name string, err error) *MockExtractor {
	return &MockExtractor{
		NameValue: name,
		ExtractFunc: func(context.Context, string) (*domain.Extraction, error) {
			return nil, err
		},
	}
}

var _ domain.TextExtractor = (*MockExtractor)(nil)
