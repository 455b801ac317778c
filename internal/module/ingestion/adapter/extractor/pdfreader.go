package extractor

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/jinford/appliance-rag/internal/module/ingestion/domain"
)

// PDFReaderExtractor は pure Go のPDFリーダーによる速度重視の抽出器です
type PDFReaderExtractor struct{}

// NewPDFReaderExtractor は新しい PDFReaderExtractor を作成します
func NewPDFReaderExtractor() *PDFReaderExtractor {
	return &PDFReaderExtractor{}
}

// Name は抽出器の識別子を返します
func (e *PDFReaderExtractor) Name() string {
	return domain.ExtractorFast
}

// Extract はPDFからプレーンテキストを抽出します
func (e *PDFReaderExtractor) Extract(ctx context.Context, path string) (ext *domain.Extraction, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 壊れたPDFではリーダーがパニックすることがある
	defer func() {
		if r := recover(); r != nil {
			ext = nil
			err = fmt.Errorf("pdf reader panicked on %s: %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf text: %w", err)
	}

	var b strings.Builder
	if _, err := io.Copy(&b, plain); err != nil {
		return nil, fmt.Errorf("failed to read pdf buffer: %w", err)
	}

	return &domain.Extraction{
		Text:      strings.TrimSpace(strings.ToValidUTF8(b.String(), "")),
		PageCount: reader.NumPage(),
	}, nil
}

var _ domain.TextExtractor = (*PDFReaderExtractor)(nil)
