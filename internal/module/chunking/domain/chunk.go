package domain

import (
	"unicode/utf8"

	"github.com/jinford/appliance-rag/internal/shared/metadata"
)

// Chunk はトークン数で区切られたドキュメントテキストの連続区間です
type Chunk struct {
	// ID はドキュメントと位置から決まる安定した識別子（UUIDv5）
	ID string

	// Index はドキュメント内での順序（0始まり）
	Index int

	Text   string
	Tokens int

	// StartOffset/EndOffset は元テキスト上のバイト位置 [start, end)
	StartOffset int
	EndOffset   int

	// Metadata はドキュメントから継承したメタデータ
	Metadata metadata.Metadata
}

// Stats はチャンク化結果の統計情報です（サイズは文字数）
type Stats struct {
	TotalChunks     int     `json:"total_chunks"`
	AvgChunkSize    float64 `json:"avg_chunk_size"`
	MinChunkSize    int     `json:"min_chunk_size"`
	MaxChunkSize    int     `json:"max_chunk_size"`
	TotalCharacters int     `json:"total_characters"`
}

// ComputeStats はチャンク列の統計情報を計算します
func ComputeStats(chunks []*Chunk) Stats {
	if len(chunks) == 0 {
		return Stats{}
	}

	stats := Stats{TotalChunks: len(chunks)}
	for i, c := range chunks {
		size := utf8.RuneCountInString(c.Text)
		stats.TotalCharacters += size
		if i == 0 || size < stats.MinChunkSize {
			stats.MinChunkSize = size
		}
		if size > stats.MaxChunkSize {
			stats.MaxChunkSize = size
		}
	}
	stats.AvgChunkSize = float64(stats.TotalCharacters) / float64(len(chunks))
	return stats
}
