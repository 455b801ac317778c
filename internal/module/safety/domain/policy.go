package domain

import "strings"

// 重大度
const (
	SeverityHigh   = "HIGH"
	SeverityMedium = "MEDIUM"
	SeverityLow    = "LOW"
)

// 推奨事項
const (
	RecommendationProceed      = "Proceed with caution"
	RecommendationProfessional = "Professional service required"
)

// BlockedAction は作業計画に含まれてはならない行為です
type BlockedAction struct {
	Keywords []string `yaml:"keywords"`
	Message  string   `yaml:"message"`
	Severity string   `yaml:"severity"`
}

// Condition は警告を出す条件です
type Condition struct {
	Keywords []string `yaml:"keywords"`
}

// RequiredWarning は条件に一致した作業計画に付ける警告です
type RequiredWarning struct {
	Condition Condition `yaml:"condition"`
	Warning   string    `yaml:"warning"`
	Severity  string    `yaml:"severity"`
}

// Policy は安全ポリシーです
type Policy struct {
	BlockedActions   []BlockedAction   `yaml:"blocked_actions"`
	RequiredWarnings []RequiredWarning `yaml:"required_warnings"`
}

// EmptyPolicy は規則を持たないポリシーを返します
func EmptyPolicy() *Policy {
	return &Policy{BlockedActions: []BlockedAction{}, RequiredWarnings: []RequiredWarning{}}
}

// Normalize は重大度の省略を既定値で補い、大文字にそろえます
func (p *Policy) Normalize() {
	for i := range p.BlockedActions {
		p.BlockedActions[i].Severity = severityOr(p.BlockedActions[i].Severity, SeverityHigh)
	}
	for i := range p.RequiredWarnings {
		p.RequiredWarnings[i].Severity = severityOr(p.RequiredWarnings[i].Severity, SeverityMedium)
	}
}

// ElectricalRule は常に適用される電気作業の警告です
var ElectricalRule = RequiredWarning{
	Condition: Condition{Keywords: []string{"unplug", "power", "electrical"}},
	Warning:   "ALWAYS unplug the appliance before performing any maintenance.",
	Severity:  SeverityHigh,
}

// MatchesAny は小文字化済みのテキストがいずれかのキーワードを含むかを返します
func MatchesAny(lowerText string, keywords []string) bool {
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(lowerText, k) {
			return true
		}
	}
	return false
}

func severityOr(severity, fallback string) string {
	severity = strings.ToUpper(strings.TrimSpace(severity))
	if severity == "" {
		return fallback
	}
	return severity
}
