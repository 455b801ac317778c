package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/jinford/appliance-rag/internal/module/chunking/domain"
	"github.com/jinford/appliance-rag/internal/shared/metadata"
)

const (
	// DefaultChunkSize はチャンクの目標トークン数
	DefaultChunkSize = 512
	// DefaultChunkOverlap は連続するチャンク間のオーバーラップトークン数
	DefaultChunkOverlap = 50
)

// chunkNamespace はチャンクIDを生成する UUIDv5 の名前空間
var chunkNamespace = uuid.MustParse("6f1c9a52-3a1e-4c9b-9d57-3f2b8e0d4a11")

// SentenceChunker は文境界を優先してテキストをトークン数で分割します
type SentenceChunker struct {
	tokenizer domain.Tokenizer
	chunkSize int
	overlap   int
}

// Option は SentenceChunker のオプション設定
type Option func(*SentenceChunker)

// WithChunkSize はチャンクの目標トークン数を上書きする
func WithChunkSize(size int) Option {
	return func(c *SentenceChunker) {
		c.chunkSize = size
	}
}

// WithOverlap はオーバーラップのトークン数を上書きする
func WithOverlap(overlap int) Option {
	return func(c *SentenceChunker) {
		c.overlap = overlap
	}
}

// NewSentenceChunker は新しい SentenceChunker を作成します
func NewSentenceChunker(tokenizer domain.Tokenizer, opts ...Option) (*SentenceChunker, error) {
	if tokenizer == nil {
		return nil, errors.New("tokenizer is required")
	}

	c := &SentenceChunker{
		tokenizer: tokenizer,
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive: %d", c.chunkSize)
	}
	if c.overlap < 0 || c.overlap >= c.chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d): %d", c.chunkSize, c.overlap)
	}
	return c, nil
}

// span は元テキスト上の区間 [start, end) とそのトークン数です
type span struct {
	start  int
	end    int
	tokens int
}

// Chunk はテキストをチャンク化します
// 空白のみのテキストからはチャンクを生成しません
func (c *SentenceChunker) Chunk(text string, md metadata.Metadata) ([]*domain.Chunk, error) {
	units := c.units(text)
	if len(units) == 0 {
		return nil, nil
	}

	var groups [][]span
	var current []span
	currentTokens := 0
	fresh := 0 // current のうちオーバーラップ以外の単位数

	for _, u := range units {
		if fresh > 0 && currentTokens+u.tokens > c.chunkSize {
			groups = append(groups, current)
			current = c.overlapTail(current, u.tokens)
			currentTokens = sumTokens(current)
			fresh = 0
		}
		current = append(current, u)
		currentTokens += u.tokens
		fresh++
	}
	if fresh > 0 {
		groups = append(groups, current)
	}

	seed := chunkSeed(text, md)
	chunks := make([]*domain.Chunk, 0, len(groups))
	for _, g := range groups {
		start, end := trimSpan(text, g[0].start, g[len(g)-1].end)
		if start >= end {
			continue
		}
		index := len(chunks)
		chunkText := text[start:end]

		chunkMeta := md.Clone()
		chunkMeta[metadata.KeyChunkIndex] = index

		chunks = append(chunks, &domain.Chunk{
			ID:          uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s:%d", seed, index))).String(),
			Index:       index,
			Text:        chunkText,
			Tokens:      c.tokenizer.CountTokens(chunkText),
			StartOffset: start,
			EndOffset:   end,
			Metadata:    chunkMeta,
		})
	}
	return chunks, nil
}

// overlapTail は次のチャンクの先頭に持ち越す末尾の単位を返します
// 合計がオーバーラップ以内で、かつ次の単位と合わせてチャンクサイズに収まる範囲に限ります
func (c *SentenceChunker) overlapTail(units []span, nextTokens int) []span {
	total := 0
	from := len(units)
	for i := len(units) - 1; i >= 0; i-- {
		if total+units[i].tokens > c.overlap || total+units[i].tokens+nextTokens > c.chunkSize {
			break
		}
		total += units[i].tokens
		from = i
	}
	return append([]span(nil), units[from:]...)
}

// units はテキストを文単位の区間に分割し、チャンクサイズを超える文はさらに分割します
func (c *SentenceChunker) units(text string) []span {
	var units []span
	for _, s := range splitSentences(text) {
		if strings.TrimSpace(text[s.start:s.end]) == "" {
			continue
		}
		s.tokens = c.tokenizer.CountTokens(text[s.start:s.end])
		if s.tokens <= c.chunkSize {
			units = append(units, s)
			continue
		}
		units = append(units, c.splitOversized(text, s)...)
	}
	return units
}

// splitOversized はチャンクサイズを超える文を単語境界で分割します
func (c *SentenceChunker) splitOversized(text string, s span) []span {
	var pieces []span
	pieceStart := s.start
	lastFit := -1

	for _, w := range wordSpans(text, s.start, s.end) {
		candidate := text[pieceStart:w.end]
		if c.tokenizer.CountTokens(candidate) <= c.chunkSize {
			lastFit = w.end
			continue
		}
		if lastFit > pieceStart {
			pieces = append(pieces, c.newSpan(text, pieceStart, lastFit))
			pieceStart = lastFit
			if c.tokenizer.CountTokens(text[pieceStart:w.end]) <= c.chunkSize {
				lastFit = w.end
				continue
			}
		}
		// 単語単体でも収まらない場合は文字単位で分割する
		pieces = append(pieces, c.splitRunes(text, pieceStart, w.end)...)
		pieceStart = w.end
		lastFit = w.end
	}
	if pieceStart < s.end && strings.TrimSpace(text[pieceStart:s.end]) != "" {
		pieces = append(pieces, c.newSpan(text, pieceStart, s.end))
	}
	return pieces
}

// splitRunes は区間を文字単位でチャンクサイズ以下に分割します
func (c *SentenceChunker) splitRunes(text string, start, end int) []span {
	var pieces []span
	pieceStart := start
	pos := start
	for pos < end {
		_, size := utf8.DecodeRuneInString(text[pos:end])
		next := pos + size
		if next > pieceStart+size && c.tokenizer.CountTokens(text[pieceStart:next]) > c.chunkSize {
			pieces = append(pieces, c.newSpan(text, pieceStart, pos))
			pieceStart = pos
		}
		pos = next
	}
	if pieceStart < end {
		pieces = append(pieces, c.newSpan(text, pieceStart, end))
	}
	return pieces
}

func (c *SentenceChunker) newSpan(text string, start, end int) span {
	return span{start: start, end: end, tokens: c.tokenizer.CountTokens(text[start:end])}
}

// splitSentences は文末記号（. ! ? 。 ！ ？）の後の空白、または空行で区切った区間を返します
// 区間は後続の空白を含み、連結すると元のテキストに一致します
func splitSentences(text string) []span {
	var spans []span
	start := 0
	pos := 0
	for pos < len(text) {
		r, size := utf8.DecodeRuneInString(text[pos:])
		next := pos + size

		boundary := false
		switch {
		case isSentenceTerminal(r):
			if next >= len(text) {
				boundary = true
			} else {
				nr, _ := utf8.DecodeRuneInString(text[next:])
				boundary = unicode.IsSpace(nr) || isFullWidthTerminal(r)
			}
		case r == '\n' && next < len(text) && text[next] == '\n':
			boundary = true
		}

		if boundary {
			end := skipSpace(text, next)
			spans = append(spans, span{start: start, end: end})
			start = end
			pos = end
			continue
		}
		pos = next
	}
	if start < len(text) {
		spans = append(spans, span{start: start, end: len(text)})
	}
	return spans
}

// wordSpans は区間内の単語（空白を含む後続部分まで）の区間を返します
func wordSpans(text string, start, end int) []span {
	var words []span
	pos := start
	for pos < end {
		wordStart := pos
		for pos < end {
			r, size := utf8.DecodeRuneInString(text[pos:end])
			if unicode.IsSpace(r) && pos > wordStart {
				break
			}
			pos += size
		}
		pos = skipSpaceWithin(text, pos, end)
		words = append(words, span{start: wordStart, end: pos})
	}
	return words
}

func isSentenceTerminal(r rune) bool {
	switch r {
	case '.', '!', '?':
		return true
	}
	return isFullWidthTerminal(r)
}

func isFullWidthTerminal(r rune) bool {
	switch r {
	case '。', '！', '？':
		return true
	}
	return false
}

func skipSpace(text string, pos int) int {
	return skipSpaceWithin(text, pos, len(text))
}

func skipSpaceWithin(text string, pos, end int) int {
	for pos < end {
		r, size := utf8.DecodeRuneInString(text[pos:end])
		if !unicode.IsSpace(r) {
			break
		}
		pos += size
	}
	return pos
}

// trimSpan は区間の前後の空白を取り除いた位置を返します
func trimSpan(text string, start, end int) (int, int) {
	for start < end {
		r, size := utf8.DecodeRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		start += size
	}
	for end > start {
		r, size := utf8.DecodeLastRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	return start, end
}

func sumTokens(units []span) int {
	total := 0
	for _, u := range units {
		total += u.tokens
	}
	return total
}

// chunkSeed はチャンクIDの生成元を返します（ドキュメントID > ファイルハッシュ > テキストのハッシュ）
func chunkSeed(text string, md metadata.Metadata) string {
	if id := md.String(metadata.KeyDocumentID); id != "" {
		return id
	}
	if h := md.String(metadata.KeyFileHash); h != "" {
		return h
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

var _ domain.Chunker = (*SentenceChunker)(nil)
