package domain

// Warning は作業計画に対する警告です
type Warning struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// Blocked は作業計画に含まれていた禁止行為です
type Blocked struct {
	Reason   string `json:"reason"`
	Severity string `json:"severity"`
}

// Report は安全チェックの結果です
type Report struct {
	SafetyOK       bool      `json:"safety_ok"`
	Warnings       []Warning `json:"warnings"`
	BlockedActions []Blocked `json:"blocked_actions"`
	Recommendation string    `json:"recommendation"`
}
