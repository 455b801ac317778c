package domain

import (
	"context"
	"fmt"
	"strings"

	vectordomain "github.com/jinford/appliance-rag/internal/module/vectorindex/domain"
	"github.com/jinford/appliance-rag/internal/shared/metadata"
)

// ModelLookup は型番そのものをクエリにした補助検索のポートです
type ModelLookup interface {
	LookupModel(ctx context.Context, model, brand string, topK int) ([]*vectordomain.SearchResult, error)
}

// MismatchParams は型番照合のしきい値です
type MismatchParams struct {
	// ExactScore を超える結果は、短い方の型番全体が前方一致すれば一致とみなす
	ExactScore float64
	// PartialScore を超える結果は、先頭の一致文字数が PrefixRatio 以上なら一致とみなす
	PartialScore float64
	// MinModelLength 未満の型番は前方一致の対象外
	MinModelLength int
	PrefixRatio    float64
	// LookupTopK は補助検索の取得件数
	LookupTopK int
}

// DefaultMismatchParams は既定のしきい値を返します
func DefaultMismatchParams() MismatchParams {
	return MismatchParams{
		ExactScore:     0.5,
		PartialScore:   0.4,
		MinModelLength: 6,
		PrefixRatio:    0.8,
		LookupTopK:     10,
	}
}

// Outcome は型番照合の結論です
type Outcome int

const (
	// OutcomeInconclusive は確信を持って一致する型番が見つからなかったことを表します
	OutcomeInconclusive Outcome = iota
	// OutcomeMatched は型番が索引内のマニュアルと一致したことを表します
	OutcomeMatched
)

// 一致の根拠
const (
	ReasonExact         = "exact"
	ReasonPrefix        = "prefix"
	ReasonPartialPrefix = "partial_prefix"
	ReasonNoCandidate   = "no_candidate"
	ReasonLookupFailed  = "lookup_failed"
	ReasonNotRequested  = "not_requested"
)

// MatchOutcome は補助検索による型番照合の結果です
// 照合に失敗した場合も Inconclusive として表し、エラーとしては扱いません
type MatchOutcome struct {
	Outcome       Outcome
	Reason        string
	ApplianceType string
	MatchedModel  string
	Score         float64
	Err           error
}

// Matched は型番が一致したかを返します
func (o MatchOutcome) Matched() bool {
	return o.Outcome == OutcomeMatched
}

// Inconclusive は結論の出なかった照合結果を作成します
func Inconclusive(reason string, err error) MatchOutcome {
	return MatchOutcome{Outcome: OutcomeInconclusive, Reason: reason, Err: err}
}

// CleanModel は型番を大文字化し、ワイルドカード `*` とすべての空白を取り除きます
// "WD53 DBA900H" と "WD53DBA900H" は同じ型番として扱います
func CleanModel(model string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(strings.ToUpper(model), "*", "")), "")
}

// FindModelMatch は補助検索の結果からユーザーの型番に一致するマニュアルを探します
// 1巡目で完全一致と前方一致を、2巡目で部分的な前方一致を評価します
func FindModelMatch(results []*vectordomain.SearchResult, userModel string, params MismatchParams) MatchOutcome {
	user := []rune(CleanModel(userModel))
	if len(user) == 0 || len(results) == 0 {
		return Inconclusive(ReasonNoCandidate, nil)
	}

	for _, r := range results {
		candidate := []rune(CleanModel(r.Metadata.String(metadata.KeyModelNumber)))
		if string(candidate) == string(user) {
			return matched(r, ReasonExact)
		}
		if r.Score > params.ExactScore && prefixEligible(user, candidate, params) {
			n := min(len(user), len(candidate))
			if string(user[:n]) == string(candidate[:n]) {
				return matched(r, ReasonPrefix)
			}
		}
	}

	for _, r := range results {
		candidate := []rune(CleanModel(r.Metadata.String(metadata.KeyModelNumber)))
		if r.Score > params.PartialScore && prefixEligible(user, candidate, params) {
			n := min(len(user), len(candidate))
			if float64(leadingMatch(user, candidate)) >= float64(n)*params.PrefixRatio {
				return matched(r, ReasonPartialPrefix)
			}
		}
	}

	return Inconclusive(ReasonNoCandidate, nil)
}

// MismatchScore は家電種別の不一致で打ち切るスコアを作成します
func MismatchScore(userModel, detectedType, expectedType string) *AccuracyScore {
	return &AccuracyScore{
		Accuracy: 0,
		Level:    LevelWrongApplianceType,
		Error:    ErrorApplianceTypeMismatch,
		ErrorMessage: fmt.Sprintf("The model %s is a %s, not a %s. Please provide the correct %s model number.",
			userModel, detectedType, expectedType, expectedType),
		DetectedModelType: detectedType,
		ExpectedType:      expectedType,
		UserModel:         userModel,
	}
}

func matched(r *vectordomain.SearchResult, reason string) MatchOutcome {
	return MatchOutcome{
		Outcome:       OutcomeMatched,
		Reason:        reason,
		ApplianceType: strings.ToLower(strings.TrimSpace(r.Metadata.String(metadata.KeyApplianceType))),
		MatchedModel:  r.Metadata.String(metadata.KeyModelNumber),
		Score:         r.Score,
	}
}

// prefixEligible は前方一致の判定対象になる長さかを返します
func prefixEligible(user, candidate []rune, params MismatchParams) bool {
	return len(candidate) >= params.MinModelLength && min(len(user), len(candidate)) >= params.MinModelLength
}

func leadingMatch(a, b []rune) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
