package domain

import "github.com/jinford/appliance-rag/internal/shared/metadata"

// Chunker はテキストをチャンク列に分割する戦略インターフェース
type Chunker interface {
	// Chunk はテキストを順序付きのチャンク列に分割します
	// md はすべてのチャンクにそのままコピーされます
	Chunk(text string, md metadata.Metadata) ([]*Chunk, error)
}

// Tokenizer はテキストのトークン数を数えるインターフェース
type Tokenizer interface {
	CountTokens(text string) int
}
