package application_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/appliance-rag/internal/module/safety/application"
	"github.com/jinford/appliance-rag/internal/module/safety/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPolicy() *domain.Policy {
	p := &domain.Policy{
		BlockedActions: []domain.BlockedAction{
			{Keywords: []string{"Refrigerant", "sealed system"}, Message: "Refrigerant handling requires a certified technician."},
		},
		RequiredWarnings: []domain.RequiredWarning{
			{Condition: domain.Condition{Keywords: []string{"water line"}}, Warning: "Shut off the water supply first.", Severity: "low"},
		},
	}
	p.Normalize()
	return p
}

func TestChecker_Check(t *testing.T) {
	checker := application.NewChecker(testPolicy(), discardLogger())

	tests := []struct {
		name           string
		plan           string
		wantOK         bool
		wantWarnings   []domain.Warning
		wantBlocked    []domain.Blocked
		recommendation string
	}{
		{
			name:           "safe plan",
			plan:           "Clean the door gasket with warm soapy water.",
			wantOK:         true,
			wantWarnings:   []domain.Warning{},
			wantBlocked:    []domain.Blocked{},
			recommendation: domain.RecommendationProceed,
		},
		{
			name:   "required warning and electrical warning",
			plan:   "Unplug the fridge, then disconnect the WATER LINE behind it.",
			wantOK: true,
			wantWarnings: []domain.Warning{
				{Message: "Shut off the water supply first.", Severity: domain.SeverityLow},
				{Message: domain.ElectricalRule.Warning, Severity: domain.SeverityHigh},
			},
			wantBlocked:    []domain.Blocked{},
			recommendation: domain.RecommendationProceed,
		},
		{
			name:         "blocked action",
			plan:         "Recharge the refrigerant in the sealed system.",
			wantOK:       false,
			wantWarnings: []domain.Warning{},
			wantBlocked: []domain.Blocked{
				{Reason: "Refrigerant handling requires a certified technician.", Severity: domain.SeverityHigh},
			},
			recommendation: domain.RecommendationProfessional,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := checker.Check(tt.plan)
			assert.Equal(t, tt.wantOK, report.SafetyOK)
			assert.Equal(t, tt.wantWarnings, report.Warnings)
			assert.Equal(t, tt.wantBlocked, report.BlockedActions)
			assert.Equal(t, tt.recommendation, report.Recommendation)
		})
	}
}

func TestChecker_NilPolicyStillWarnsAboutPower(t *testing.T) {
	checker := application.NewChecker(nil, discardLogger())

	report := checker.Check("Check the power cord for damage")
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, domain.SeverityHigh, report.Warnings[0].Severity)
	assert.True(t, report.SafetyOK)
}
