package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jinford/appliance-rag/internal/module/ingestion/domain"
)

// DefaultSizeThresholdBytes は品質重視と速度重視の抽出器を切り替えるファイルサイズ（20MB）
const DefaultSizeThresholdBytes int64 = 20 * 1024 * 1024

const sniffLen = 512

// Processor はファイルサイズで抽出戦略を選択してドキュメントを抽出します
// しきい値未満は品質重視、しきい値以上は速度重視の抽出器を使い、失敗時はもう一方で再試行します
type Processor struct {
	detector  domain.ContentDetector
	quality   domain.TextExtractor
	fast      domain.TextExtractor
	plain     domain.TextExtractor
	threshold int64
	log       *slog.Logger
}

// ProcessorOption は Processor のオプション設定
type ProcessorOption func(*Processor)

// WithSizeThreshold はしきい値（バイト）を上書きする
func WithSizeThreshold(bytes int64) ProcessorOption {
	return func(p *Processor) {
		if bytes > 0 {
			p.threshold = bytes
		}
	}
}

// NewProcessor は新しい Processor を作成します
func NewProcessor(
	detector domain.ContentDetector,
	quality domain.TextExtractor,
	fast domain.TextExtractor,
	plain domain.TextExtractor,
	log *slog.Logger,
	opts ...ProcessorOption,
) *Processor {
	p := &Processor{
		detector:  detector,
		quality:   quality,
		fast:      fast,
		plain:     plain,
		threshold: DefaultSizeThresholdBytes,
		log:       log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process はファイルからテキストとメタデータを抽出します
func (p *Processor) Process(ctx context.Context, file domain.SourceFile) (*domain.Document, error) {
	source := file.Source
	if source == "" {
		source = file.Path
	}

	info, err := os.Stat(file.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", file.Path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrUnsupportedSource, file.Path)
	}

	hash, head, err := hashFile(file.Path)
	if err != nil {
		return nil, err
	}

	contentType := p.detector.DetectContentType(file.Path, head)
	strategies, err := p.strategies(contentType, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%s)", err, source, contentType)
	}

	p.log.Info("Processing document",
		"source", source,
		"sizeMB", fmt.Sprintf("%.2f", float64(info.Size())/(1024*1024)),
		"contentType", contentType,
		"extractor", strategies[0].Name(),
	)

	extraction, extractor, err := p.extract(ctx, source, file.Path, strategies)
	if err != nil {
		return nil, err
	}

	fileName := filepath.Base(source)
	doc := &domain.Document{
		ID:            domain.DocumentIDFromSource(source),
		Text:          extraction.Text,
		PageCount:     extraction.PageCount,
		Source:        source,
		FileName:      fileName,
		FileSize:      info.Size(),
		ContentHash:   hash,
		ContentType:   contentType,
		ExtractorUsed: extractor,
		Metadata:      ParseFilenameMetadata(fileName).Merge(file.Metadata),
	}

	p.log.Info("Document extracted",
		"source", source,
		"extractor", extractor,
		"characters", len(doc.Text),
		"pages", doc.PageCount,
		"hash", hash,
	)
	return doc, nil
}

// strategies はコンテンツ種別とサイズから試行する抽出器を順に返します
func (p *Processor) strategies(contentType string, size int64) ([]domain.TextExtractor, error) {
	switch {
	case contentType == domain.ContentTypePDF:
		if size < p.threshold {
			return []domain.TextExtractor{p.quality, p.fast}, nil
		}
		return []domain.TextExtractor{p.fast, p.quality}, nil
	case strings.HasPrefix(contentType, "text/"):
		return []domain.TextExtractor{p.plain}, nil
	default:
		return nil, domain.ErrUnsupportedSource
	}
}

// extract は抽出器を順に試し、空でないテキストを得た最初の結果を返します
func (p *Processor) extract(ctx context.Context, source, path string, strategies []domain.TextExtractor) (*domain.Extraction, string, error) {
	var causes []error
	for i, extractor := range strategies {
		extraction, err := extractor.Extract(ctx, path)
		if err == nil && strings.TrimSpace(extraction.Text) == "" {
			err = domain.ErrEmptyExtraction
		}
		if err == nil {
			return extraction, extractor.Name(), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}

		causes = append(causes, fmt.Errorf("%s: %w", extractor.Name(), err))
		if i+1 < len(strategies) {
			p.log.Warn("Extractor failed, falling back",
				"source", source,
				"extractor", extractor.Name(),
				"fallback", strategies[i+1].Name(),
				"error", err,
			)
		}
	}
	return nil, "", &domain.ExtractionError{Source: source, Causes: causes}
}

// hashFile はファイルの SHA-256 と先頭のバイト列を返します
func hashFile(path string) (string, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	head = head[:n]

	h := sha256.New()
	h.Write(head)
	if _, err := io.Copy(h, f); err != nil {
		return "", nil, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), head, nil
}
