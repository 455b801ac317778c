package policyfile

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/appliance-rag/internal/module/safety/domain"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy_safety.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
blocked_actions:
  - keywords: ["gas line"]
    message: "Gas line work must be performed by a licensed professional."
required_warnings:
  - condition:
      keywords: ["tilt"]
    warning: "Use two people to move heavy appliances."
  - condition:
      keywords: ["fins"]
    warning: "Wear gloves."
    severity: low
`), 0o644))

	policy, err := Load(path, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	require.NoError(t, err)

	require.Len(t, policy.BlockedActions, 1)
	assert.Equal(t, []string{"gas line"}, policy.BlockedActions[0].Keywords)
	assert.Equal(t, domain.SeverityHigh, policy.BlockedActions[0].Severity)

	require.Len(t, policy.RequiredWarnings, 2)
	assert.Equal(t, []string{"tilt"}, policy.RequiredWarnings[0].Condition.Keywords)
	assert.Equal(t, domain.SeverityMedium, policy.RequiredWarnings[0].Severity)
	assert.Equal(t, domain.SeverityLow, policy.RequiredWarnings[1].Severity)
}

func TestLoad_MissingFileYieldsEmptyPolicy(t *testing.T) {
	var logs bytes.Buffer
	policy, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)

	assert.Empty(t, policy.BlockedActions)
	assert.Empty(t, policy.RequiredWarnings)
	assert.Contains(t, logs.String(), "Safety policy file not found")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("blocked_actions: {keywords: [\n"), 0o644))

	_, err := Load(path, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	require.ErrorContains(t, err, "failed to parse safety policy")
}

func TestLoad_RepositoryPolicy(t *testing.T) {
	policy, err := Load(filepath.Join("..", "..", "..", "..", "..", "config", "policy_safety.yaml"), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	require.NoError(t, err)
	assert.NotEmpty(t, policy.BlockedActions)
	assert.NotEmpty(t, policy.RequiredWarnings)
}
