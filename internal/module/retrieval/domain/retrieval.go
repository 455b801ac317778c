package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	vectordomain "github.com/jinford/appliance-rag/internal/module/vectorindex/domain"
	"github.com/jinford/appliance-rag/internal/shared/metadata"
)

// DefaultTopK は取得件数が指定されなかった場合の件数
const DefaultTopK = 5

// NoInformationContext は閾値を超える結果が1件もなかった場合のコンテキスト
const NoInformationContext = "No relevant information found."

// ErrEmptyQuery はクエリが空の場合のエラー
var ErrEmptyQuery = errors.New("query is required")

// QueryEmbedder はクエリ文字列をベクトル化するポートです
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher はベクトル近傍検索のポートです
type Searcher interface {
	Search(ctx context.Context, queryVector []float32, topK int, filters map[string]string) ([]*vectordomain.SearchResult, error)
}

// Request は1回の検索リクエストです
type Request struct {
	Query   string
	TopK    int
	Filters map[string]string

	// MinScore 未満の結果は検索後に除外されます
	MinScore float64
}

// Result は検索結果とコンテキストです
type Result struct {
	Query       string                       `json:"query"`
	TopK        int                          `json:"top_k"`
	ResultCount int                          `json:"result_count"`
	Results     []*vectordomain.SearchResult `json:"results"`
	Context     string                       `json:"context"`
}

// MetadataFilter はブランド・家電種別・型番による絞り込み条件です
// 空のフィールドは条件になりません
type MetadataFilter struct {
	Brand         string
	ApplianceType string
	ModelNumber   string
}

// Filters はベクトルインデックスのフィルタキーに変換します
func (f MetadataFilter) Filters() map[string]string {
	return metadata.CleanFilters(map[string]string{
		metadata.KeyBrand:         f.Brand,
		metadata.KeyApplianceType: f.ApplianceType,
		metadata.KeyModelNumber:   f.ModelNumber,
	})
}

// BuildContext はスコア順の結果から出典付きのコンテキスト文字列を組み立てます
func BuildContext(results []*vectordomain.SearchResult) string {
	if len(results) == 0 {
		return NoInformationContext
	}

	parts := make([]string, len(results))
	for i, r := range results {
		source := r.Metadata.String(metadata.KeySource)
		if source == "" {
			source = "Unknown"
		}
		parts[i] = fmt.Sprintf("[%d] (Source: %s, Relevance: %.2f)\n%s\n", i+1, source, r.Score, r.Text)
	}
	return strings.Join(parts, "\n")
}

// FilterByScore は minScore 以上の結果だけを順序を保って返します
func FilterByScore(results []*vectordomain.SearchResult, minScore float64) []*vectordomain.SearchResult {
	kept := make([]*vectordomain.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Score >= minScore {
			kept = append(kept, r)
		}
	}
	return kept
}
