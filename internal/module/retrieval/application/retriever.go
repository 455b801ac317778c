package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jinford/appliance-rag/internal/module/retrieval/domain"
	vectordomain "github.com/jinford/appliance-rag/internal/module/vectorindex/domain"
)

// Retriever はクエリのベクトル化・近傍検索・コンテキスト構築を行います
type Retriever struct {
	embedder    domain.QueryEmbedder
	searcher    domain.Searcher
	defaultTopK int
	log         *slog.Logger
}

// Option は Retriever のオプション設定
type Option func(*Retriever)

// WithDefaultTopK は取得件数の既定値を上書きする
func WithDefaultTopK(k int) Option {
	return func(r *Retriever) {
		if k > 0 {
			r.defaultTopK = k
		}
	}
}

// NewRetriever は新しい Retriever を作成します
func NewRetriever(embedder domain.QueryEmbedder, searcher domain.Searcher, log *slog.Logger, opts ...Option) *Retriever {
	r := &Retriever{
		embedder:    embedder,
		searcher:    searcher,
		defaultTopK: domain.DefaultTopK,
		log:         log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve はクエリに関連するチャンクを検索し、コンテキストを組み立てます
// インデックスは常に上位 TopK 件を返し、MinScore 未満の結果は検索後に除外します
func (r *Retriever) Retrieve(ctx context.Context, req domain.Request) (*domain.Result, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	topK := req.TopK
	if topK <= 0 {
		topK = r.defaultTopK
	}

	r.log.Debug("Retrieving", "query", query, "topK", topK, "filters", req.Filters, "minScore", req.MinScore)

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.searcher.Search(ctx, vector, topK, req.Filters)
	if err != nil {
		r.log.Error("Vector search failed", "query", query, "error", err)
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	kept := domain.FilterByScore(results, req.MinScore)

	r.log.Info("Retrieval completed",
		"query", query,
		"results", len(results),
		"kept", len(kept),
	)

	return &domain.Result{
		Query:       query,
		TopK:        topK,
		ResultCount: len(kept),
		Results:     kept,
		Context:     domain.BuildContext(kept),
	}, nil
}

// RetrieveWithMetadata はブランド・家電種別・型番で絞り込んで検索します
func (r *Retriever) RetrieveWithMetadata(ctx context.Context, query string, topK int, filter domain.MetadataFilter, minScore float64) (*domain.Result, error) {
	return r.Retrieve(ctx, domain.Request{
		Query:    query,
		TopK:     topK,
		Filters:  filter.Filters(),
		MinScore: minScore,
	})
}

// LookupModel は型番そのものをクエリにして、家電種別で絞り込まずに検索します
func (r *Retriever) LookupModel(ctx context.Context, model, brand string, topK int) ([]*vectordomain.SearchResult, error) {
	result, err := r.RetrieveWithMetadata(ctx, model, topK, domain.MetadataFilter{Brand: brand}, 0)
	if err != nil {
		return nil, err
	}
	return result.Results, nil
}
