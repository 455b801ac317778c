package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/jinford/appliance-rag/internal/module/chunking/domain"
)

// DefaultEncoding は text-embedding-3 系モデルと互換のエンコーディング
const DefaultEncoding = "cl100k_base"

// TiktokenCounter は tiktoken によるトークンカウンターです
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter は新しい TiktokenCounter を作成します
// 初回はBPEランクファイルを取得するためネットワークアクセスが発生します
func NewTiktokenCounter(encodingName string) (*TiktokenCounter, error) {
	if encodingName == "" {
		encodingName = DefaultEncoding
	}
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}

	return &TiktokenCounter{
		encoding: encoding,
	}, nil
}

// CountTokens はテキストのトークン数をカウントする
func (tc *TiktokenCounter) CountTokens(text string) int {
	if tc.encoding == nil {
		// エンコーディングが初期化されていない場合は0を返す
		return 0
	}
	return len(tc.encoding.Encode(text, nil, nil))
}

var _ domain.Tokenizer = (*TiktokenCounter)(nil)
