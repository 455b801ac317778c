package metadata

import (
	"fmt"
	"maps"
	"strings"
)

// チャンクおよびインデックスエントリのペイロードで使用するキー
const (
	KeySource        = "source"
	KeyFileName      = "file_name"
	KeyFileSize      = "file_size"
	KeyFileHash      = "file_hash"
	KeyPageCount     = "page_count"
	KeyProcessor     = "processor"
	KeyBrand         = "brand"
	KeyModelNumber   = "model_number"
	KeyApplianceType = "appliance_type"
	KeyDocumentID    = "document_id"
	KeyChunkIndex    = "chunk_index"
	KeyText          = "text"
)

// Metadata はドキュメント・チャンクに付随するメタデータです
type Metadata map[string]any

// String はキーに対応する値を文字列として返します（存在しない場合は空文字）
func (m Metadata) String(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Clone はメタデータの浅いコピーを返します
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	return maps.Clone(m)
}

// Merge は other の値で上書きした新しいメタデータを返します
func (m Metadata) Merge(other Metadata) Metadata {
	merged := m.Clone()
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// Matches はすべてのフィルタ条件と完全一致する場合に true を返します（AND条件）
func (m Metadata) Matches(filters map[string]string) bool {
	for key, want := range filters {
		if m.String(key) != want {
			return false
		}
	}
	return true
}

// CleanFilters は空の値を取り除いたフィルタを返します
func CleanFilters(filters map[string]string) map[string]string {
	cleaned := make(map[string]string, len(filters))
	for k, v := range filters {
		if strings.TrimSpace(v) == "" {
			continue
		}
		cleaned[k] = v
	}
	return cleaned
}
