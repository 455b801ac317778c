package extractor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/jinford/appliance-rag/internal/module/ingestion/domain"
)

// DefaultPdftotextPath は pdftotext の既定のコマンド名
const DefaultPdftotextPath = "pdftotext"

// ErrPdftotextNotFound は pdftotext が見つからない場合のエラー
var ErrPdftotextNotFound = errors.New("pdftotext not found: install poppler (brew install poppler / apt install poppler-utils)")

// PdftotextExtractor はレイアウトを保持してPDFを抽出する品質重視の抽出器です
// 表の列や見出しの配置を保ったテキストを出力します
type PdftotextExtractor struct {
	runner CommandRunner
	binary string
}

// PdftotextOption は PdftotextExtractor のオプション設定
type PdftotextOption func(*PdftotextExtractor)

// WithRunner はコマンドランナーを上書きする
func WithRunner(runner CommandRunner) PdftotextOption {
	return func(e *PdftotextExtractor) {
		e.runner = runner
	}
}

// WithBinary は pdftotext のパスを上書きする
func WithBinary(binary string) PdftotextOption {
	return func(e *PdftotextExtractor) {
		if binary != "" {
			e.binary = binary
		}
	}
}

// NewPdftotextExtractor は新しい PdftotextExtractor を作成します
func NewPdftotextExtractor(opts ...PdftotextOption) *PdftotextExtractor {
	e := &PdftotextExtractor{
		runner: ExecRunner{},
		binary: DefaultPdftotextPath,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckAvailable は pdftotext が実行可能かを確認します
func (e *PdftotextExtractor) CheckAvailable() error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return ErrPdftotextNotFound
	}
	return nil
}

// Name は抽出器の識別子を返します
func (e *PdftotextExtractor) Name() string {
	return domain.ExtractorQuality
}

// Extract はPDFからテキストを抽出します
// pdftotext はページごとに改ページ文字（\f）を出力するため、それをページ数として数えます
func (e *PdftotextExtractor) Extract(ctx context.Context, path string) (*domain.Extraction, error) {
	out, err := e.runner.Run(ctx, e.binary, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}

	pages := strings.Split(strings.ToValidUTF8(string(out), ""), "\f")
	// 末尾の改ページ後は空のページになる
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}

	text := strings.TrimSpace(strings.Join(pages, "\n\n"))
	pageCount := len(pages)
	if text == "" {
		pageCount = 0
	}

	return &domain.Extraction{
		Text:      text,
		PageCount: pageCount,
	}, nil
}

var _ domain.TextExtractor = (*PdftotextExtractor)(nil)
