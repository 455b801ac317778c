package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jinford/appliance-rag/internal/module/embedding/domain"
)

const (
	// DefaultBatchSize は1回の外部呼び出しに含める最大件数
	DefaultBatchSize = 100
	// DefaultBatchDelay はバッチ間のペーシング間隔
	DefaultBatchDelay = 500 * time.Millisecond
	// DefaultBatchTimeout はバッチ単位のタイムアウト
	DefaultBatchTimeout = 60 * time.Second
)

// BatchEmbedder はテキスト列をバッチに分けて Embedding を生成します
// バッチの失敗はジョブ全体を中断せず、該当要素を nil としてマークします
type BatchEmbedder struct {
	client       domain.Client
	batchSize    int
	batchTimeout time.Duration
	limiter      *rate.Limiter
	log          *slog.Logger
}

// Option は BatchEmbedder のオプション設定
type Option func(*BatchEmbedder)

// WithBatchSize はバッチサイズを上書きする
func WithBatchSize(size int) Option {
	return func(e *BatchEmbedder) {
		if size > 0 {
			e.batchSize = size
		}
	}
}

// WithBatchDelay はバッチ間の間隔を上書きする（0以下でペーシングなし）
func WithBatchDelay(delay time.Duration) Option {
	return func(e *BatchEmbedder) {
		e.limiter = newLimiter(delay)
	}
}

// WithBatchTimeout はバッチ単位のタイムアウトを上書きする
func WithBatchTimeout(timeout time.Duration) Option {
	return func(e *BatchEmbedder) {
		if timeout > 0 {
			e.batchTimeout = timeout
		}
	}
}

// NewBatchEmbedder は新しい BatchEmbedder を作成します
func NewBatchEmbedder(client domain.Client, log *slog.Logger, opts ...Option) *BatchEmbedder {
	e := &BatchEmbedder{
		client:       client,
		batchSize:    DefaultBatchSize,
		batchTimeout: DefaultBatchTimeout,
		limiter:      newLimiter(DefaultBatchDelay),
		log:          log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// ModelName は使用しているモデル名を返します
func (e *BatchEmbedder) ModelName() string {
	return e.client.ModelName()
}

// Dimension はベクトル次元数を返します
func (e *BatchEmbedder) Dimension() int {
	return e.client.Dimension()
}

// Embed はテキスト列の Embedding を生成します
// 結果は入力と同じ順序・同じ長さで、失敗したバッチの要素は nil になります
// 次元の不一致はジョブ全体のエラーとして即座に返します
func (e *BatchEmbedder) Embed(ctx context.Context, texts []string) (*domain.Result, error) {
	dimension := e.client.Dimension()
	result := &domain.Result{
		Vectors: make([][]float32, len(texts)),
		Stats: domain.Stats{
			Total:     len(texts),
			Dimension: dimension,
			Model:     e.client.ModelName(),
		},
	}
	if len(texts) == 0 {
		return result, nil
	}

	e.log.Info("Starting embedding", "texts", len(texts), "batchSize", e.batchSize, "model", result.Stats.Model)

	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		batchNum := start/e.batchSize + 1

		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embedding cancelled: %w", err)
		}

		vectors, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("embedding cancelled: %w", ctx.Err())
			}
			e.log.Warn("Embedding batch failed",
				"batch", batchNum,
				"from", start,
				"size", end-start,
				"error", err,
			)
			continue
		}

		if err := domain.VerifyDimension(vectors, dimension); err != nil {
			var mismatch *domain.DimensionMismatchError
			if errors.As(err, &mismatch) {
				mismatch.Index += start
			}
			return nil, err
		}
		copy(result.Vectors[start:end], vectors)
	}

	for _, v := range result.Vectors {
		if v == nil {
			result.Stats.Failed++
		} else {
			result.Stats.Valid++
		}
	}

	e.log.Info("Embedding completed",
		"total", result.Stats.Total,
		"valid", result.Stats.Valid,
		"failed", result.Stats.Failed,
	)
	return result, nil
}

// EmbedQuery は単一クエリの Embedding を生成します
func (e *BatchEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyInput
	}

	vectors, err := e.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 || vectors[0] == nil {
		return nil, fmt.Errorf("%w: no embedding generated", domain.ErrEmbeddingBatchFailed)
	}
	if err := domain.VerifyDimension(vectors, e.client.Dimension()); err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *BatchEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	batchCtx, cancel := context.WithTimeout(ctx, e.batchTimeout)
	defer cancel()

	vectors, err := e.client.EmbedBatch(batchCtx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingBatchFailed, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d vectors, got %d", domain.ErrEmbeddingBatchFailed, len(texts), len(vectors))
	}
	return vectors, nil
}
