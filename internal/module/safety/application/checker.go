package application

import (
	"log/slog"
	"strings"

	"github.com/jinford/appliance-rag/internal/module/safety/domain"
)

// Checker は作業計画を安全ポリシーと照合します
type Checker struct {
	policy *domain.Policy
	log    *slog.Logger
}

// NewChecker は新しい Checker を作成します
// policy が nil の場合は規則なしとして扱います
func NewChecker(policy *domain.Policy, log *slog.Logger) *Checker {
	if policy == nil {
		policy = domain.EmptyPolicy()
	}
	return &Checker{policy: policy, log: log}
}

// Check は作業計画に禁止行為が含まれていないかを確認し、必要な警告を返します
func (c *Checker) Check(planText string) *domain.Report {
	plan := strings.ToLower(planText)
	report := &domain.Report{
		Warnings:       []domain.Warning{},
		BlockedActions: []domain.Blocked{},
	}

	for _, rule := range c.policy.BlockedActions {
		if domain.MatchesAny(plan, rule.Keywords) {
			report.BlockedActions = append(report.BlockedActions, domain.Blocked{Reason: rule.Message, Severity: rule.Severity})
		}
	}

	rules := append(append([]domain.RequiredWarning{}, c.policy.RequiredWarnings...), domain.ElectricalRule)
	for _, rule := range rules {
		if domain.MatchesAny(plan, rule.Condition.Keywords) {
			report.Warnings = append(report.Warnings, domain.Warning{Message: rule.Warning, Severity: rule.Severity})
		}
	}

	report.SafetyOK = len(report.BlockedActions) == 0
	if report.SafetyOK {
		report.Recommendation = domain.RecommendationProceed
	} else {
		report.Recommendation = domain.RecommendationProfessional
	}

	c.log.Info("Safety check completed",
		"safetyOK", report.SafetyOK,
		"warnings", len(report.Warnings),
		"blockedActions", len(report.BlockedActions),
	)
	return report
}
