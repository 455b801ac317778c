package domain

import (
	"sort"

	"github.com/jinford/appliance-rag/internal/shared/metadata"
)

// DistanceCosine はコサイン類似度を表す距離指標名
const DistanceCosine = "Cosine"

// IndexEntry は永続化される {id, vector, payload} の組です
type IndexEntry struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata metadata.Metadata
}

// SearchResult はクエリごとに生成される検索結果です（永続化されない）
type SearchResult struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Text     string            `json:"text"`
	Metadata metadata.Metadata `json:"metadata"`
}

// CollectionInfo はコレクションの状態を表します
type CollectionInfo struct {
	Name           string `json:"name"`
	VectorCount    int64  `json:"vector_count"`
	PointCount     int64  `json:"point_count"`
	Status         string `json:"status"`
	Dimension      int    `json:"dimension"`
	DistanceMetric string `json:"distance_metric"`
}

// SortResults は類似度の降順、同点の場合はIDの昇順で並べ替えます
func SortResults(results []*SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
}

// ValidateDimensions はすべてのエントリのベクトル次元が dimension と一致するかを検証します
// 不一致が見つかった場合は書き込み前に DimensionMismatchError を返します
func ValidateDimensions(entries []*IndexEntry, dimension int) error {
	for i, e := range entries {
		if len(e.Vector) != dimension {
			return &DimensionMismatchError{Expected: dimension, Actual: len(e.Vector), Index: i}
		}
	}
	return nil
}

// ValidateEntries は書き込み前にすべてのエントリのIDとベクトル次元を検証します
func ValidateEntries(entries []*IndexEntry, dimension int) error {
	for _, e := range entries {
		if e.ID == "" {
			return ErrEmptyEntryID
		}
	}
	return ValidateDimensions(entries, dimension)
}

// Batches は entries を size 件ずつに分割します
func Batches(entries []*IndexEntry, size int) [][]*IndexEntry {
	if size <= 0 {
		size = len(entries)
	}
	var batches [][]*IndexEntry
	for start := 0; start < len(entries); start += size {
		end := min(start+size, len(entries))
		batches = append(batches, entries[start:end])
	}
	return batches
}
