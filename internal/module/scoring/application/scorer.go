package application

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jinford/appliance-rag/internal/module/scoring/domain"
	vectordomain "github.com/jinford/appliance-rag/internal/module/vectorindex/domain"
)

// Scorer は検索結果とユーザーの家電情報から精度スコアを算出します
type Scorer struct {
	lookup domain.ModelLookup
	params domain.MismatchParams
	table  domain.BrandPrefixTable
	log    *slog.Logger
}

// Option は Scorer のオプション設定
type Option func(*Scorer)

// WithMismatchParams は型番照合のしきい値を上書きする
func WithMismatchParams(params domain.MismatchParams) Option {
	return func(s *Scorer) {
		s.params = params
	}
}

// WithBrandPrefixTable はブランド推定表を上書きする
func WithBrandPrefixTable(table domain.BrandPrefixTable) Option {
	return func(s *Scorer) {
		if len(table) > 0 {
			s.table = table
		}
	}
}

// NewScorer は新しい Scorer を作成します
// lookup が nil の場合、家電種別の不一致検出は行いません
func NewScorer(lookup domain.ModelLookup, log *slog.Logger, opts ...Option) *Scorer {
	s := &Scorer{
		lookup: lookup,
		params: domain.DefaultMismatchParams(),
		table:  domain.DefaultBrandPrefixTable(),
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score は精度スコアを算出します
// 同じ入力（と同じ補助検索の結果）に対して常に同じスコアを返します
func (s *Scorer) Score(ctx context.Context, results []*vectordomain.SearchResult, id domain.Identity) *domain.AccuracyScore {
	if len(results) == 0 {
		return domain.NoInformation()
	}

	if expected := strings.ToLower(strings.TrimSpace(id.ApplianceType)); expected != "" && strings.TrimSpace(id.Model) != "" {
		outcome := s.DetectModel(ctx, id)
		if outcome.Matched() && outcome.ApplianceType != "" && outcome.ApplianceType != expected {
			s.log.Warn("Appliance type mismatch detected",
				"model", id.Model,
				"detectedType", outcome.ApplianceType,
				"expectedType", expected,
				"matchedModel", outcome.MatchedModel,
				"reason", outcome.Reason,
			)
			return domain.MismatchScore(id.Model, outcome.ApplianceType, expected)
		}
	}

	similarity := domain.Similarity(results)
	modelMatch := domain.ModelMatch(results, id.Model)
	brandMatch := domain.BrandMatch(results, id.Brand, id.Model, s.table)
	accuracy := domain.Composite(similarity, modelMatch, brandMatch)

	return &domain.AccuracyScore{
		Accuracy: accuracy,
		Level:    domain.LevelFor(accuracy),
		Breakdown: domain.Breakdown{
			Similarity: domain.Round1(similarity),
			ModelMatch: modelMatch,
			BrandMatch: brandMatch,
		},
	}
}

// DetectModel は型番そのもので補助検索を行い、その型番のマニュアルを探します
// 補助検索が失敗した場合は Inconclusive を返します
func (s *Scorer) DetectModel(ctx context.Context, id domain.Identity) domain.MatchOutcome {
	if s.lookup == nil {
		return domain.Inconclusive(domain.ReasonNotRequested, nil)
	}

	results, err := s.lookup.LookupModel(ctx, id.Model, id.Brand, s.params.LookupTopK)
	if err != nil {
		s.log.Warn("Model lookup failed, skipping appliance type check", "model", id.Model, "error", err)
		return domain.Inconclusive(domain.ReasonLookupFailed, err)
	}

	outcome := domain.FindModelMatch(results, id.Model, s.params)
	s.log.Debug("Model lookup completed",
		"model", id.Model,
		"candidates", len(results),
		"matched", outcome.Matched(),
		"reason", outcome.Reason,
	)
	return outcome
}
