package tokenizer

import (
	"strings"

	"github.com/jinford/appliance-rag/internal/module/chunking/domain"
)

// WordCounter は空白区切りの単語数をトークン数とみなすカウンターです
// BPEファイルを取得できないオフライン環境とテストで使用します
type WordCounter struct{}

// CountTokens は空白区切りの単語数を返します
func (WordCounter) CountTokens(text string) int {
	return len(strings.Fields(text))
}

var _ domain.Tokenizer = WordCounter{}
