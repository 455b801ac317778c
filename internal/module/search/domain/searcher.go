package domain

import (
	"errors"
	"math"

	retrievaldomain "github.com/jinford/appliance-rag/internal/module/retrieval/domain"
	scoringdomain "github.com/jinford/appliance-rag/internal/module/scoring/domain"
	vectordomain "github.com/jinford/appliance-rag/internal/module/vectorindex/domain"
)

var (
	// ErrEmptyQuery はクエリが空の場合のエラー
	ErrEmptyQuery = retrievaldomain.ErrEmptyQuery

	// ErrInvalidThreshold は類似度しきい値が 0〜1 の範囲外の場合のエラー
	ErrInvalidThreshold = errors.New("min_similarity must be between 0 and 1")
)

// 結果を選んだ段階
const (
	StagePrimary    = "primary"
	StageRelaxed    = "relaxed"
	StageUnfiltered = "unfiltered"
)

// Policy は検索結果の絞り込み方針です
type Policy struct {
	DefaultTopK   int
	MinSimilarity float64
	// FallbackDelta だけしきい値を下げて再度絞り込む（FallbackFloor 未満には下げない）
	FallbackDelta float64
	FallbackFloor float64
	// OverFetchFactor 倍の件数を取得してから絞り込む
	OverFetchFactor int
}

// DefaultPolicy は既定の絞り込み方針を返します
func DefaultPolicy() Policy {
	return Policy{
		DefaultTopK:     5,
		MinSimilarity:   0.7,
		FallbackDelta:   0.15,
		FallbackFloor:   0.5,
		OverFetchFactor: 3,
	}
}

// FallbackThreshold は緩めたしきい値を返します
func (p Policy) FallbackThreshold(minSimilarity float64) float64 {
	relaxed := math.Max(p.FallbackFloor, minSimilarity-p.FallbackDelta)
	return math.Round(relaxed*1e6) / 1e6
}

// Request は家電マニュアル検索のリクエストです
type Request struct {
	Query         string
	TopK          int
	UserModel     string
	UserBrand     string
	ApplianceType string
	MinSimilarity float64
}

// Identity はスコアリングに渡すユーザーの家電情報を返します
func (r Request) Identity() scoringdomain.Identity {
	return scoringdomain.Identity{
		Model:         r.UserModel,
		Brand:         r.UserBrand,
		ApplianceType: r.ApplianceType,
	}
}

// Filter はインデックス検索の絞り込み条件を返します（型番では絞り込まない）
func (r Request) Filter() retrievaldomain.MetadataFilter {
	return retrievaldomain.MetadataFilter{
		Brand:         r.UserBrand,
		ApplianceType: r.ApplianceType,
	}
}

// Response は検索結果・コンテキスト・精度スコアです
type Response struct {
	Query                  string                       `json:"query"`
	Results                []*vectordomain.SearchResult `json:"results"`
	NumResults             int                          `json:"num_results"`
	FoundInformation       bool                         `json:"found_information"`
	FilteredCount          int                          `json:"filtered_count"`
	MinSimilarityThreshold float64                      `json:"min_similarity_threshold"`
	AccuracyScore          *scoringdomain.AccuracyScore `json:"accuracy_score"`
	Context                string                       `json:"context"`
}

// Selection はしきい値による絞り込みの結果です
type Selection struct {
	Results []*vectordomain.SearchResult
	// FilteredCount は最後に適用したしきい値を満たした件数
	FilteredCount int
	Threshold     float64
	Stage         string
}

// Select は多めに取得した結果から上位 topK 件を選びます
// しきい値を満たす結果がなければ緩めたしきい値で選び直し、それでもなければ絞り込まずに上位を返します
func (p Policy) Select(all []*vectordomain.SearchResult, topK int, minSimilarity float64) Selection {
	if filtered := retrievaldomain.FilterByScore(all, minSimilarity); len(filtered) > 0 {
		return Selection{Results: head(filtered, topK), FilteredCount: len(filtered), Threshold: minSimilarity, Stage: StagePrimary}
	}

	relaxed := p.FallbackThreshold(minSimilarity)
	if filtered := retrievaldomain.FilterByScore(all, relaxed); len(filtered) > 0 {
		return Selection{Results: head(filtered, topK), FilteredCount: len(filtered), Threshold: relaxed, Stage: StageRelaxed}
	}

	return Selection{Results: head(all, topK), FilteredCount: 0, Threshold: relaxed, Stage: StageUnfiltered}
}

func head(results []*vectordomain.SearchResult, n int) []*vectordomain.SearchResult {
	if len(results) > n {
		results = results[:n]
	}
	out := make([]*vectordomain.SearchResult, len(results))
	copy(out, results)
	return out
}
