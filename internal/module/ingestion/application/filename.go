package application

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jinford/appliance-rag/internal/shared/metadata"
)

// ParseFilenameMetadata は brand_model_type.pdf 形式のファイル名から識別情報を推定します
// ブランドは先頭を大文字、型番は大文字、製品種別は小文字に正規化し、
// 4つ目以降の要素は製品種別に空白区切りで連結します（例: Samsung_WD45_laundry_combo.pdf）
func ParseFilenameMetadata(name string) metadata.Metadata {
	md := metadata.Metadata{}

	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var parts []string
	for _, p := range strings.Split(base, "_") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return md
	}

	md[metadata.KeyBrand] = capitalize(parts[0])
	if len(parts) > 1 {
		md[metadata.KeyModelNumber] = strings.ToUpper(parts[1])
	}
	if len(parts) > 2 {
		md[metadata.KeyApplianceType] = strings.ToLower(strings.Join(parts[2:], " "))
	}
	return md
}

// capitalize は先頭の1文字を大文字にします（残りはそのまま）
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
