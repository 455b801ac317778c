package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyExtraction は空でない入力から空のテキストしか得られなかった場合のエラー
	ErrEmptyExtraction = errors.New("extraction produced empty text")

	// ErrUnsupportedSource は取り込みできないファイル種別・URIの場合のエラー
	ErrUnsupportedSource = errors.New("unsupported source")

	// ErrDuplicateDocument は同一内容のドキュメントが取り込み済みの場合のエラー
	ErrDuplicateDocument = errors.New("document already ingested")

	// ErrDocumentNotFound はドキュメントの記録が存在しない場合のエラー
	ErrDocumentNotFound = errors.New("document not found")
)

// ExtractionError はいずれの抽出戦略でもファイルを解析できなかった場合のエラー
type ExtractionError struct {
	Source string
	Causes []error
}

func (e *ExtractionError) Error() string {
	msgs := make([]string, 0, len(e.Causes))
	for _, c := range e.Causes {
		msgs = append(msgs, c.Error())
	}
	return fmt.Sprintf("failed to extract text from %s: %s", e.Source, strings.Join(msgs, "; "))
}

func (e *ExtractionError) Unwrap() []error {
	return e.Causes
}
