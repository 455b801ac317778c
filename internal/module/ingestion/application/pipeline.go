package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	chunkdomain "github.com/jinford/appliance-rag/internal/module/chunking/domain"
	embeddomain "github.com/jinford/appliance-rag/internal/module/embedding/domain"
	"github.com/jinford/appliance-rag/internal/module/ingestion/domain"
	vectordomain "github.com/jinford/appliance-rag/internal/module/vectorindex/domain"
	"github.com/jinford/appliance-rag/internal/shared/metadata"
)

// DefaultConcurrency は同時に抽出するドキュメント数
const DefaultConcurrency = 4

// Embedder はチャンクテキストのベクトル化を行うポートです
type Embedder interface {
	Embed(ctx context.Context, texts []string) (*embeddomain.Result, error)
	Dimension() int
	ModelName() string
}

// DocumentProcessor はファイルからドキュメントを抽出するポートです
type DocumentProcessor interface {
	Process(ctx context.Context, file domain.SourceFile) (*domain.Document, error)
}

// IngestOptions は取り込みのオプションです
type IngestOptions struct {
	// Force は取り込み済みの内容でも再取り込みします
	Force bool

	// Metadata はファイル名から推定したメタデータを上書きします
	Metadata metadata.Metadata
}

// Pipeline は抽出・チャンク化・ベクトル化・インデックス書き込みを行うバッチ取り込みです
type Pipeline struct {
	processor       DocumentProcessor
	chunker         chunkdomain.Chunker
	embedder        Embedder
	index           vectordomain.VectorIndex
	registry        domain.DocumentRegistry
	dimension       int
	upsertBatchSize int
	concurrency     int
	log             *slog.Logger
}

// PipelineOption は Pipeline のオプション設定
type PipelineOption func(*Pipeline)

// WithUpsertBatchSize はインデックス書き込みのバッチサイズを上書きする
func WithUpsertBatchSize(size int) PipelineOption {
	return func(p *Pipeline) {
		if size > 0 {
			p.upsertBatchSize = size
		}
	}
}

// WithConcurrency は同時抽出数を上書きする
func WithConcurrency(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewPipeline は新しい Pipeline を作成します
// dimension はインデックスに設定されたベクトル次元です
func NewPipeline(
	processor DocumentProcessor,
	chunker chunkdomain.Chunker,
	embedder Embedder,
	index vectordomain.VectorIndex,
	registry domain.DocumentRegistry,
	dimension int,
	log *slog.Logger,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		processor:       processor,
		chunker:         chunker,
		embedder:        embedder,
		index:           index,
		registry:        registry,
		dimension:       dimension,
		upsertBatchSize: 100,
		concurrency:     DefaultConcurrency,
		log:             log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest はファイル群を取り込み、結果のレポートを返します
// 個々のファイルの失敗はレポートに記録して処理を継続します
// ベクトル次元の不一致とコンテキストのキャンセルはジョブ全体を中断します
func (p *Pipeline) Ingest(ctx context.Context, files []domain.SourceFile, opts IngestOptions) (*domain.Report, error) {
	report := &domain.Report{
		Total:     len(files),
		Documents: []domain.DocumentSummary{},
		Failures:  []domain.Failure{},
	}

	if p.embedder.Dimension() != p.dimension {
		mismatch := &embeddomain.DimensionMismatchError{Expected: p.dimension, Actual: p.embedder.Dimension()}
		return report, fmt.Errorf("embedding model %s does not match the index: %w", p.embedder.ModelName(), mismatch)
	}

	// 設定値ではなく既存コレクションの実際の次元と照合する
	info, err := p.index.CollectionInfo(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to inspect collection: %w", err)
	}
	if info.Dimension != 0 && info.Dimension != p.embedder.Dimension() {
		mismatch := &embeddomain.DimensionMismatchError{Expected: info.Dimension, Actual: p.embedder.Dimension()}
		return report, fmt.Errorf("embedding model %s does not match collection %s: %w", p.embedder.ModelName(), info.Name, mismatch)
	}

	p.log.Info("Starting ingestion", "files", len(files), "concurrency", p.concurrency, "model", p.embedder.ModelName())

	docs, errs := p.extractAll(ctx, files, opts)
	if err := ctx.Err(); err != nil {
		return report, err
	}

	for i, file := range files {
		source := sourceOf(file)
		if errs[i] != nil {
			p.log.Error("Failed to process document", "source", source, "error", errs[i])
			report.AddFailure(source, errs[i])
			continue
		}

		summary, err := p.ingestDocument(ctx, docs[i], opts)
		switch {
		case errors.Is(err, domain.ErrDuplicateDocument):
			p.log.Info("Skipping duplicate document", "source", source, "hash", docs[i].ContentHash)
			report.SkippedDuplicates++
		case isFatal(err):
			return report, err
		case err != nil:
			p.log.Error("Failed to ingest document", "source", source, "error", err)
			report.AddFailure(source, err)
		default:
			report.Succeeded++
			report.ChunksIndexed += summary.Indexed
			report.EmbeddingFailures += summary.EmbeddingFailed
			report.Documents = append(report.Documents, *summary)
		}
	}

	p.log.Info("Ingestion completed",
		"total", report.Total,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"skippedDuplicates", report.SkippedDuplicates,
		"chunksIndexed", report.ChunksIndexed,
	)
	return report, nil
}

// extractAll はファイルを並行に抽出します（結果は入力と同じ順序）
func (p *Pipeline) extractAll(ctx context.Context, files []domain.SourceFile, opts IngestOptions) ([]*domain.Document, []error) {
	docs := make([]*domain.Document, len(files))
	errs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, file := range files {
		g.Go(func() error {
			if opts.Metadata != nil {
				file.Metadata = file.Metadata.Merge(opts.Metadata)
			}
			doc, err := p.processor.Process(gctx, file)
			docs[i], errs[i] = doc, err
			return nil
		})
	}
	_ = g.Wait()
	return docs, errs
}

// ingestDocument は1つのドキュメントをチャンク化・ベクトル化してインデックスを置き換えます
func (p *Pipeline) ingestDocument(ctx context.Context, doc *domain.Document, opts IngestOptions) (*domain.DocumentSummary, error) {
	if !opts.Force {
		existing, err := p.registry.FindByHash(ctx, doc.ContentHash)
		switch {
		case err == nil:
			return nil, fmt.Errorf("%w: %s (as %s)", domain.ErrDuplicateDocument, doc.Source, existing.Source)
		case !errors.Is(err, domain.ErrDocumentNotFound):
			return nil, fmt.Errorf("failed to check duplicates: %w", err)
		}
	}

	chunks, err := p.chunker.Chunk(doc.Text, doc.ChunkMetadata())
	if err != nil {
		return nil, fmt.Errorf("failed to chunk document: %w", err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks produced", domain.ErrEmptyExtraction)
	}
	stats := chunkdomain.ComputeStats(chunks)
	p.log.Info("Document chunked",
		"source", doc.Source,
		"chunks", stats.TotalChunks,
		"avgChunkSize", fmt.Sprintf("%.0f", stats.AvgChunkSize),
		"minChunkSize", stats.MinChunkSize,
		"maxChunkSize", stats.MaxChunkSize,
	)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	result, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}

	entries := make([]*vectordomain.IndexEntry, 0, result.Stats.Valid)
	for i, c := range chunks {
		if result.Vectors[i] == nil {
			continue
		}
		entries = append(entries, &vectordomain.IndexEntry{
			ID:       c.ID,
			Vector:   result.Vectors[i],
			Text:     c.Text,
			Metadata: c.Metadata,
		})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: all %d chunks failed to embed", embeddomain.ErrEmbeddingBatchFailed, len(chunks))
	}
	if err := vectordomain.ValidateDimensions(entries, p.dimension); err != nil {
		return nil, err
	}

	indexed, err := p.replace(ctx, doc.ID, entries)
	if err != nil {
		return nil, fmt.Errorf("failed to index document: %w", err)
	}

	// 一部のチャンクが欠けたドキュメントは登録せず、次回の取り込みで再処理させる
	if result.Stats.Failed > 0 {
		p.log.Warn("Document indexed partially, leaving it unregistered for retry",
			"source", doc.Source, "indexed", indexed, "failed", result.Stats.Failed)
	} else if err := p.registry.Save(ctx, &domain.DocumentRecord{
		ID:          doc.ID,
		Source:      doc.Source,
		ContentHash: doc.ContentHash,
		Extractor:   doc.ExtractorUsed,
		ChunkCount:  indexed,
	}); err != nil {
		return nil, fmt.Errorf("failed to register document: %w", err)
	}

	return &domain.DocumentSummary{
		Source:          doc.Source,
		DocumentID:      doc.ID,
		Extractor:       doc.ExtractorUsed,
		Pages:           doc.PageCount,
		Chunks:          len(chunks),
		Indexed:         indexed,
		EmbeddingFailed: result.Stats.Failed,
	}, nil
}

// replace はドキュメントの既存エントリを新しいエントリで置き換えます
func (p *Pipeline) replace(ctx context.Context, documentID string, entries []*vectordomain.IndexEntry) (int, error) {
	if replacer, ok := p.index.(vectordomain.DocumentReplacer); ok {
		return replacer.ReplaceDocument(ctx, documentID, entries, p.upsertBatchSize)
	}

	if _, err := p.index.DeleteByDocument(ctx, documentID); err != nil {
		return 0, err
	}
	return p.index.Upsert(ctx, entries, p.upsertBatchSize)
}

func sourceOf(file domain.SourceFile) string {
	if file.Source != "" {
		return file.Source
	}
	return file.Path
}

// isFatal はジョブ全体を中断すべきエラーかを判定します
func isFatal(err error) bool {
	if err == nil {
		return false
	}
	var embedMismatch *embeddomain.DimensionMismatchError
	var indexMismatch *vectordomain.DimensionMismatchError
	return errors.As(err, &embedMismatch) ||
		errors.As(err, &indexMismatch) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, vectordomain.ErrCollectionNotFound) ||
		errors.Is(err, vectordomain.ErrIndexUnavailable)
}
