package domain

import "math"

// 精度レベル
const (
	LevelVeryHigh           = "Very High"
	LevelHigh               = "High"
	LevelMedium             = "Medium"
	LevelLow                = "Low"
	LevelVeryLow            = "Very Low"
	LevelNoInformation      = "No Information"
	LevelWrongApplianceType = "Wrong Appliance Type"
)

// ErrorApplianceTypeMismatch は型番が別種の家電のものだった場合のエラータグ
const ErrorApplianceTypeMismatch = "appliance_type_mismatch"

// 合成スコアの重み
const (
	SimilarityWeight = 0.55
	ModelMatchWeight = 0.25
	BrandMatchWeight = 0.20
)

// similarityHead は類似度の平均に使う上位件数
const similarityHead = 3

// Identity はユーザーが申告した家電の識別情報です（いずれも省略可）
type Identity struct {
	Model         string
	Brand         string
	ApplianceType string
}

// Breakdown は精度スコアの内訳です（各 0〜100）
type Breakdown struct {
	Similarity float64 `json:"similarity"`
	ModelMatch int     `json:"model_match"`
	BrandMatch int     `json:"brand_match"`
}

// AccuracyScore は取得内容がユーザーの家電の問題を解決できる見込みを表します
type AccuracyScore struct {
	Accuracy  float64   `json:"accuracy"`
	Level     string    `json:"level"`
	Breakdown Breakdown `json:"breakdown"`

	Error             string `json:"error,omitempty"`
	ErrorMessage      string `json:"error_message,omitempty"`
	DetectedModelType string `json:"detected_model_type,omitempty"`
	ExpectedType      string `json:"expected_type,omitempty"`
	UserModel         string `json:"user_model,omitempty"`
}

// IsMismatch は家電種別の不一致で打ち切られたスコアかを返します
func (s *AccuracyScore) IsMismatch() bool {
	return s.Error == ErrorApplianceTypeMismatch
}

// LevelFor は精度（0〜100）を段階に変換します。境界値は上の段階に含まれます
func LevelFor(accuracy float64) string {
	switch {
	case accuracy >= 90:
		return LevelVeryHigh
	case accuracy >= 75:
		return LevelHigh
	case accuracy >= 60:
		return LevelMedium
	case accuracy >= 40:
		return LevelLow
	default:
		return LevelVeryLow
	}
}

// Composite は重み付き合成スコアを小数第1位に丸めて返します
// similarity は丸める前の値を渡します
func Composite(similarity float64, modelMatch, brandMatch int) float64 {
	accuracy := similarity*SimilarityWeight +
		float64(modelMatch)*ModelMatchWeight +
		float64(brandMatch)*BrandMatchWeight
	return Round1(accuracy)
}

// Round1 は小数第1位に丸めます
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// NoInformation は結果が0件の場合のスコアです
func NoInformation() *AccuracyScore {
	return &AccuracyScore{Accuracy: 0, Level: LevelNoInformation}
}
