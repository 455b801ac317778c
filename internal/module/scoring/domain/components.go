package domain

import (
	"strings"
	"unicode"

	vectordomain "github.com/jinford/appliance-rag/internal/module/vectorindex/domain"
	"github.com/jinford/appliance-rag/internal/shared/metadata"
)

// seriesLength は型番のシリーズ部分とみなす先頭文字数
const seriesLength = 8

// 一致スコア
const (
	MatchFull    = 100
	MatchSeries  = 80
	MatchPartial = 50
	MatchNone    = 0
)

// Similarity は上位 min(3, N) 件の類似度の平均を 0〜100 で返します（丸めなし）
func Similarity(results []*vectordomain.SearchResult) float64 {
	head := results
	if len(head) > similarityHead {
		head = head[:similarityHead]
	}
	if len(head) == 0 {
		return 0
	}

	var sum float64
	for _, r := range head {
		sum += r.Score
	}
	return sum / float64(len(head)) * 100
}

// ModelMatch はユーザーの型番と候補の型番の一致度を返します
// 結果順に走査し、完全一致(100)かシリーズ一致(80)が見つかった時点で確定します
func ModelMatch(results []*vectordomain.SearchResult, userModel string) int {
	user := CleanModel(userModel)
	if user == "" {
		return MatchNone
	}
	series := seriesOf(user)
	parts := strings.Fields(strings.ReplaceAll(strings.ToUpper(userModel), "*", ""))

	score := MatchNone
	for _, r := range results {
		candidate := CleanModel(r.Metadata.String(metadata.KeyModelNumber))
		if candidate == "" {
			continue
		}
		switch {
		case strings.Contains(candidate, user) || strings.Contains(user, candidate):
			return MatchFull
		case series != "" && strings.Contains(candidate, series):
			return MatchSeries
		case containsAnyPart(candidate, parts):
			score = MatchPartial
		}
	}
	return score
}

// BrandMatch はユーザーのブランドと候補のブランドの一致度を返します
// ブランドが省略された場合は型番の接頭辞からブランドを推定します
func BrandMatch(results []*vectordomain.SearchResult, userBrand, userModel string, table BrandPrefixTable) int {
	brand := strings.ToUpper(strings.TrimSpace(userBrand))
	if brand != "" {
		words := strings.Fields(brand)
		for _, r := range results {
			candidate := strings.ToUpper(r.Metadata.String(metadata.KeyBrand))
			if candidate == "" {
				continue
			}
			if strings.Contains(candidate, brand) || strings.Contains(brand, candidate) || containsAnyWord(candidate, words) {
				return MatchFull
			}
		}
		return MatchNone
	}

	if strings.TrimSpace(userModel) == "" {
		return MatchNone
	}
	model := strings.ToUpper(userModel)
	for _, r := range results {
		candidate := strings.ToUpper(r.Metadata.String(metadata.KeyBrand))
		if candidate == "" {
			continue
		}
		if table.Implies(candidate, model) {
			return MatchSeries
		}
	}
	return MatchNone
}

// seriesOf は型番の先頭8文字から英数字だけを取り出します
func seriesOf(model string) string {
	head := []rune(model)
	if len(head) > seriesLength {
		head = head[:seriesLength]
	}
	var b strings.Builder
	for _, r := range head {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func containsAnyPart(candidate string, parts []string) bool {
	for _, p := range parts {
		if len(p) > 3 && strings.Contains(candidate, p) {
			return true
		}
	}
	return false
}

func containsAnyWord(candidate string, words []string) bool {
	for _, w := range words {
		if strings.Contains(candidate, w) {
			return true
		}
	}
	return false
}
