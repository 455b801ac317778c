package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	retrievaldomain "github.com/jinford/appliance-rag/internal/module/retrieval/domain"
	searchdomain "github.com/jinford/appliance-rag/internal/module/search/domain"
)

// SearchService は家電マニュアル検索のユースケースを提供します
type SearchService struct {
	retriever searchdomain.Retriever
	scorer    searchdomain.Scorer
	policy    searchdomain.Policy
	log       *slog.Logger
}

// NewSearchService は新しいSearchServiceを作成します
func NewSearchService(retriever searchdomain.Retriever, scorer searchdomain.Scorer, policy searchdomain.Policy, log *slog.Logger) *SearchService {
	return &SearchService{
		retriever: retriever,
		scorer:    scorer,
		policy:    policy,
		log:       log,
	}
}

// Policy は絞り込み方針を返します
func (s *SearchService) Policy() searchdomain.Policy {
	return s.policy
}

// Search はマニュアルを検索し、しきい値で絞り込んだ結果と精度スコアを返します
func (s *SearchService) Search(ctx context.Context, req searchdomain.Request) (*searchdomain.Response, error) {
	// バリデーション
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, searchdomain.ErrEmptyQuery
	}
	if req.MinSimilarity < 0 || req.MinSimilarity > 1 {
		return nil, fmt.Errorf("%w: %v", searchdomain.ErrInvalidThreshold, req.MinSimilarity)
	}

	// TopK の正規化
	topK := req.TopK
	if topK <= 0 {
		topK = s.policy.DefaultTopK
	}
	fetchK := topK * max(s.policy.OverFetchFactor, 1)

	s.log.Info("Starting manual search",
		"query", query,
		"topK", topK,
		"fetchK", fetchK,
		"brand", req.UserBrand,
		"applianceType", req.ApplianceType,
		"minSimilarity", req.MinSimilarity,
	)

	retrieved, err := s.retriever.RetrieveWithMetadata(ctx, query, fetchK, req.Filter(), 0)
	if err != nil {
		s.log.Error("Manual search failed", "query", query, "error", err)
		return nil, fmt.Errorf("failed to search manuals: %w", err)
	}

	selection := s.policy.Select(retrieved.Results, topK, req.MinSimilarity)
	score := s.scorer.Score(ctx, selection.Results, req.Identity())

	s.log.Info("Manual search completed",
		"query", query,
		"retrieved", len(retrieved.Results),
		"results", len(selection.Results),
		"stage", selection.Stage,
		"threshold", selection.Threshold,
		"accuracy", score.Accuracy,
		"level", score.Level,
	)

	return &searchdomain.Response{
		Query:                  query,
		Results:                selection.Results,
		NumResults:             len(selection.Results),
		FoundInformation:       len(selection.Results) > 0,
		FilteredCount:          selection.FilteredCount,
		MinSimilarityThreshold: req.MinSimilarity,
		AccuracyScore:          score,
		Context:                retrievaldomain.BuildContext(selection.Results),
	}, nil
}
