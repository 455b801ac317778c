package chunker_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/appliance-rag/internal/module/chunking/adapter/chunker"
	"github.com/jinford/appliance-rag/internal/module/chunking/adapter/tokenizer"
	"github.com/jinford/appliance-rag/internal/module/chunking/domain"
	"github.com/jinford/appliance-rag/internal/shared/metadata"
)

func newChunker(t *testing.T, size, overlap int) *chunker.SentenceChunker {
	t.Helper()
	c, err := chunker.NewSentenceChunker(tokenizer.WordCounter{}, chunker.WithChunkSize(size), chunker.WithOverlap(overlap))
	require.NoError(t, err)
	return c
}

// sentences は n 個の12単語の文を生成する
func sentences(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Step %d check the water filter and reset the indicator light now. ", i)
		if i%7 == 6 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

// rejoin はオフセットを使ってオーバーラップを取り除きながらチャンクを連結する
func rejoin(chunks []*domain.Chunk) string {
	var b strings.Builder
	cursor := 0
	for i, c := range chunks {
		switch {
		case i == 0:
			b.WriteString(c.Text)
		case c.StartOffset < cursor:
			b.WriteString(c.Text[cursor-c.StartOffset:])
		default:
			b.WriteString(" ")
			b.WriteString(c.Text)
		}
		cursor = c.EndOffset
	}
	return b.String()
}

func TestNewSentenceChunker_Validation(t *testing.T) {
	_, err := chunker.NewSentenceChunker(nil)
	require.Error(t, err)

	_, err = chunker.NewSentenceChunker(tokenizer.WordCounter{}, chunker.WithChunkSize(0))
	require.Error(t, err)

	_, err = chunker.NewSentenceChunker(tokenizer.WordCounter{}, chunker.WithChunkSize(10), chunker.WithOverlap(10))
	require.Error(t, err)

	_, err = chunker.NewSentenceChunker(tokenizer.WordCounter{}, chunker.WithOverlap(-1))
	require.Error(t, err)

	c, err := chunker.NewSentenceChunker(tokenizer.WordCounter{})
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestChunk_EmptyText(t *testing.T) {
	c := newChunker(t, 50, 10)

	for _, text := range []string{"", "   ", "\n\n\t  \n"} {
		chunks, err := c.Chunk(text, metadata.Metadata{metadata.KeySource: "a.pdf"})
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestChunk_ShortTextSingleChunk(t *testing.T) {
	c := newChunker(t, 50, 10)
	md := metadata.Metadata{metadata.KeySource: "Samsung_RF28R7351SG_refrigerator.pdf", metadata.KeyBrand: "Samsung"}

	chunks, err := c.Chunk("  Replace the filter every six months.  ", md)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	chunk := chunks[0]
	assert.Equal(t, "Replace the filter every six months.", chunk.Text)
	assert.Equal(t, 0, chunk.Index)
	assert.Equal(t, 6, chunk.Tokens)
	assert.Equal(t, "Samsung", chunk.Metadata.String(metadata.KeyBrand))
	assert.Equal(t, "Samsung_RF28R7351SG_refrigerator.pdf", chunk.Metadata.String(metadata.KeySource))
	assert.Equal(t, 0, chunk.Metadata[metadata.KeyChunkIndex])

	// 元のメタデータは変更されない
	_, ok := md[metadata.KeyChunkIndex]
	assert.False(t, ok)
}

func TestChunk_LongTextRespectsSizeAndOverlap(t *testing.T) {
	c := newChunker(t, 50, 15)
	text := sentences(60)

	chunks, err := c.Chunk(text, metadata.Metadata{metadata.KeyFileHash: "abc"})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.NotEmpty(t, strings.TrimSpace(chunk.Text))
		assert.LessOrEqual(t, chunk.Tokens, 50)
		assert.Equal(t, text[chunk.StartOffset:chunk.EndOffset], chunk.Text)
		assert.Equal(t, "abc", chunk.Metadata.String(metadata.KeyFileHash))
	}

	for i := 1; i < len(chunks); i++ {
		prev, next := chunks[i-1], chunks[i]
		assert.Less(t, next.StartOffset, prev.EndOffset, "chunk %d should overlap with previous", i)
		assert.Greater(t, next.EndOffset, prev.EndOffset)
	}

	assert.Equal(t, strings.Fields(text), strings.Fields(rejoin(chunks)))
}

func TestChunk_SentenceBoundaries(t *testing.T) {
	c := newChunker(t, 12, 0)
	text := "Unplug the refrigerator. Remove the shelf carefully. Clean with warm water and mild soap."

	chunks, err := c.Chunk(text, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "Unplug the refrigerator. Remove the shelf carefully.", chunks[0].Text)
	assert.Equal(t, "Clean with warm water and mild soap.", chunks[1].Text)
}

func TestChunk_OversizedSentenceIsSplit(t *testing.T) {
	c := newChunker(t, 20, 0)
	words := make([]string, 75)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	text := strings.Join(words, " ")

	chunks, err := c.Chunk(text, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, chunk.Tokens, 20)
	}
	assert.Equal(t, strings.Fields(text), strings.Fields(rejoin(chunks)))
}

func TestChunk_FullWidthTerminals(t *testing.T) {
	c := newChunker(t, 1, 0)

	chunks, err := c.Chunk("フィルターを交換します。電源を切ってください。", nil)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "フィルターを交換します。", chunks[0].Text)
	assert.Equal(t, "電源を切ってください。", chunks[1].Text)
}

func TestChunk_DeterministicIDs(t *testing.T) {
	c := newChunker(t, 50, 10)
	text := sentences(20)

	first, err := c.Chunk(text, metadata.Metadata{metadata.KeyFileHash: "hash-1"})
	require.NoError(t, err)
	second, err := c.Chunk(text, metadata.Metadata{metadata.KeyFileHash: "hash-1"})
	require.NoError(t, err)
	other, err := c.Chunk(text, metadata.Metadata{metadata.KeyFileHash: "hash-2"})
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	seen := make(map[string]struct{})
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.NotEqual(t, first[i].ID, other[i].ID)
		seen[first[i].ID] = struct{}{}
	}
	assert.Len(t, seen, len(first))
}

func TestChunk_DecimalNumbersDoNotSplit(t *testing.T) {
	c := newChunker(t, 4, 0)

	chunks, err := c.Chunk("Set to 3.5 degrees.", nil)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Set to 3.5 degrees.", chunks[0].Text)
}
