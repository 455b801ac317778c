package domain

// Failure は取り込みに失敗したファイルです
type Failure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// DocumentSummary は取り込みに成功したドキュメントの概要です
type DocumentSummary struct {
	Source          string `json:"source"`
	DocumentID      string `json:"document_id"`
	Extractor       string `json:"extractor"`
	Pages           int    `json:"pages"`
	Chunks          int    `json:"chunks"`
	Indexed         int    `json:"indexed"`
	EmbeddingFailed int    `json:"embedding_failed"`
}

// Report はバッチ取り込みの結果です
type Report struct {
	Total             int               `json:"total"`
	Succeeded         int               `json:"succeeded"`
	Failed            int               `json:"failed"`
	SkippedDuplicates int               `json:"skipped_duplicates"`
	ChunksIndexed     int               `json:"chunks_indexed"`
	EmbeddingFailures int               `json:"embedding_failures"`
	Documents         []DocumentSummary `json:"documents"`
	Failures          []Failure         `json:"failures"`
}

// AddFailure は失敗を記録します
func (r *Report) AddFailure(source string, err error) {
	r.Failed++
	r.Failures = append(r.Failures, Failure{Source: source, Error: err.Error()})
}
