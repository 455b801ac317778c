package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/jinford/appliance-rag/internal/shared/metadata"
)

// 抽出器の識別子（メタデータ processor に記録される）
const (
	ExtractorQuality   = "pdftotext"
	ExtractorFast      = "ledongthuc-pdf"
	ExtractorPlainText = "plaintext"
)

// コンテンツ種別
const (
	ContentTypePDF      = "application/pdf"
	ContentTypeText     = "text/plain"
	ContentTypeMarkdown = "text/markdown"
)

// documentNamespace はドキュメントIDを生成する UUIDv5 の名前空間
var documentNamespace = uuid.MustParse("0b8f3c4e-7d2a-4f61-a9e5-5c1d2b7e9f30")

// DocumentIDFromSource は取得元の位置から安定したドキュメントIDを生成します
// 同じ位置から再取り込みした場合は同じIDになり、既存のエントリを置き換えます
func DocumentIDFromSource(source string) string {
	return uuid.NewSHA1(documentNamespace, []byte(source)).String()
}

// SourceFile は取り込み対象のファイルです
type SourceFile struct {
	// Path はローカルファイルシステム上のパス（リモートの場合はキャッシュ先）
	Path string

	// Source は元の位置（ローカルパス、gs:// URI、Git URL など）
	Source string

	// Metadata はファイル名から推定したメタデータより優先されます
	Metadata metadata.Metadata
}

// Document は抽出済みのドキュメントです
type Document struct {
	ID            string
	Text          string
	PageCount     int
	Source        string
	FileName      string
	FileSize      int64
	ContentHash   string
	ContentType   string
	ExtractorUsed string

	// Metadata はブランド・型番・製品種別などの識別情報
	Metadata metadata.Metadata
}

// ChunkMetadata はチャンクに継承させるメタデータを返します
func (d *Document) ChunkMetadata() metadata.Metadata {
	md := d.Metadata.Clone()
	md[metadata.KeyDocumentID] = d.ID
	md[metadata.KeySource] = d.Source
	md[metadata.KeyFileName] = d.FileName
	md[metadata.KeyFileSize] = d.FileSize
	md[metadata.KeyFileHash] = d.ContentHash
	md[metadata.KeyPageCount] = d.PageCount
	md[metadata.KeyProcessor] = d.ExtractorUsed
	return md
}

// DocumentRecord は取り込み済みドキュメントの記録です（重複検出に使用）
type DocumentRecord struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	ContentHash string    `json:"content_hash"`
	Extractor   string    `json:"extractor"`
	ChunkCount  int       `json:"chunk_count"`
	IngestedAt  time.Time `json:"ingested_at"`
}
