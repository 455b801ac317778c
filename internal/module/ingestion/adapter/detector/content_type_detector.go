package detector

import (
	"bytes"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"

	"github.com/jinford/appliance-rag/internal/module/ingestion/domain"
)

var pdfMagic = []byte("%PDF-")

// contentTypeDetector はファイルの種別（MIMEタイプ）を判定します
type contentTypeDetector struct{}

// NewContentTypeDetector は新しいContentTypeDetectorを作成します
func NewContentTypeDetector() domain.ContentDetector {
	return &contentTypeDetector{}
}

// DetectContentType はファイルパスと先頭の内容からMIMEタイプを判定します
func (d *contentTypeDetector) DetectContentType(path string, head []byte) string {
	if bytes.HasPrefix(head, pdfMagic) {
		return domain.ContentTypePDF
	}

	filename := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		// 拡張子がPDFでも中身が違う場合はバイナリとして扱う
		if len(head) > 0 {
			return "application/octet-stream"
		}
		return domain.ContentTypePDF
	case ".md", ".markdown":
		return domain.ContentTypeMarkdown
	case ".txt":
		return domain.ContentTypeText
	}

	if len(head) > 0 && enry.IsBinary(head) {
		return "application/octet-stream"
	}

	// go-enryで言語を判定（ファイル名と内容の両方を使用）
	switch enry.GetLanguage(filename, head) {
	case "Markdown":
		return domain.ContentTypeMarkdown
	case "Text":
		return domain.ContentTypeText
	}

	if len(head) > 0 {
		detected := http.DetectContentType(head)
		// パラメータ部分（; charset=utf-8など）を除去
		if idx := strings.Index(detected, ";"); idx != -1 {
			detected = detected[:idx]
		}
		return strings.TrimSpace(detected)
	}

	// 内容が空の場合はプレーンテキスト
	return domain.ContentTypeText
}

// IsText はテキストとして読み込めるコンテンツ種別かを返します
func IsText(contentType string) bool {
	return strings.HasPrefix(contentType, "text/")
}
