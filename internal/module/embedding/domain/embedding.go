package domain

import "context"

// Client は外部の Embedding サービスを呼び出すポートです
type Client interface {
	// EmbedBatch は入力と同じ順序で1件ずつベクトルを返します
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// ModelName は使用しているモデル名を返します
	ModelName() string

	// Dimension はモデルが出力するベクトル次元数を返します
	Dimension() int
}

// Stats は Embedding ジョブの集計です
type Stats struct {
	Total     int    `json:"total"`
	Valid     int    `json:"valid"`
	Failed    int    `json:"failed"`
	Dimension int    `json:"dimension"`
	Model     string `json:"model"`
}

// Result は Embedding ジョブの結果です
// Vectors は入力と同じ長さで、失敗した要素は nil になります
type Result struct {
	Vectors [][]float32
	Stats   Stats
}

// Failed は失敗した要素のインデックスを返します
func (r *Result) Failed() []int {
	var failed []int
	for i, v := range r.Vectors {
		if v == nil {
			failed = append(failed, i)
		}
	}
	return failed
}

// VerifyDimension は失敗マーカー以外のベクトルがすべて expected 次元であることを検証します
func VerifyDimension(vectors [][]float32, expected int) error {
	for i, v := range vectors {
		if v == nil {
			continue
		}
		if len(v) != expected {
			return &DimensionMismatchError{Expected: expected, Actual: len(v), Index: i}
		}
	}
	return nil
}
