package domain

import "strings"

// BrandPrefix はブランドと、そのブランドの型番に現れる接頭辞の組です
type BrandPrefix struct {
	Brand    string   `yaml:"brand"`
	Prefixes []string `yaml:"prefixes"`
}

// BrandPrefixTable は型番からブランドを推定する表です（上から順に評価）
// 網羅的ではなく、設定ファイルで拡張できます
type BrandPrefixTable []BrandPrefix

// DefaultBrandPrefixTable は既定の推定表を返します
func DefaultBrandPrefixTable() BrandPrefixTable {
	return BrandPrefixTable{
		{Brand: "SAMSUNG", Prefixes: []string{"RS", "RF", "MC"}},
		{Brand: "LG", Prefixes: []string{"LRM", "LFX"}},
		{Brand: "GE", Prefixes: []string{"GNE", "GTE"}},
	}
}

// Implies は候補のブランドが表のブランドを含み、かつ型番がそのブランドの接頭辞を含むかを返します
// 引数はいずれも大文字化済みであることを前提とします
func (t BrandPrefixTable) Implies(candidateBrand, model string) bool {
	for _, entry := range t {
		if !strings.Contains(candidateBrand, strings.ToUpper(entry.Brand)) {
			continue
		}
		for _, prefix := range entry.Prefixes {
			if strings.Contains(model, strings.ToUpper(prefix)) {
				return true
			}
		}
	}
	return false
}

// Merge は extra の項目で同じブランドの項目を置き換え、新しいブランドは末尾に追加します
func (t BrandPrefixTable) Merge(extra BrandPrefixTable) BrandPrefixTable {
	merged := make(BrandPrefixTable, len(t))
	copy(merged, t)
	for _, e := range extra {
		replaced := false
		for i := range merged {
			if strings.EqualFold(merged[i].Brand, e.Brand) {
				merged[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, e)
		}
	}
	return merged
}
