package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	ingestdomain "github.com/jinford/appliance-rag/internal/module/ingestion/domain"
	safetydomain "github.com/jinford/appliance-rag/internal/module/safety/domain"
	vectordomain "github.com/jinford/appliance-rag/internal/module/vectorindex/domain"
	"github.com/jinford/appliance-rag/internal/shared/metadata"
)

// captureStdout はテスト中のコマンド出力をバッファに差し替える
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	orig := stdout
	stdout = buf
	t.Cleanup(func() { stdout = orig })
	return buf
}

func TestMetadataFromFlags(t *testing.T) {
	tests := []struct {
		name  string
		brand string
		model string
		typ   string
		want  metadata.Metadata
	}{
		{
			name: "未指定",
			want: nil,
		},
		{
			name:  "すべて指定",
			brand: "Samsung",
			model: "rf28r7351sr",
			typ:   "Refrigerator",
			want: metadata.Metadata{
				metadata.KeyBrand:         "Samsung",
				metadata.KeyModelNumber:   "RF28R7351SR",
				metadata.KeyApplianceType: "refrigerator",
			},
		},
		{
			name:  "空白のみは無視",
			brand: "  ",
			model: "LDF5545ST",
			want: metadata.Metadata{
				metadata.KeyModelNumber: "LDF5545ST",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, metadataFromFlags(tt.brand, tt.model, tt.typ))
		})
	}
}

func TestIngestTargets_Empty(t *testing.T) {
	assert.True(t, ingestTargets{}.empty())
	assert.False(t, ingestTargets{Paths: []string{"manuals"}}.empty())
	assert.False(t, ingestTargets{GCS: []string{"gs://manuals/samsung/"}}.empty())
	assert.False(t, ingestTargets{GitURL: "https://example.com/manuals.git"}.empty())
}

func TestRenderIngestReport_JSON(t *testing.T) {
	buf := captureStdout(t)

	report := &ingestdomain.Report{Total: 2, Succeeded: 1, Failed: 1, ChunksIndexed: 4}
	report.AddFailure("broken.pdf", assert.AnError)
	require.NoError(t, renderIngestReport(report, FormatJSON))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.EqualValues(t, 2, got["total"])
	assert.EqualValues(t, 4, got["chunks_indexed"])
	require.Len(t, got["failures"], 1)
}

func TestRenderCollectionInfo_Table(t *testing.T) {
	buf := captureStdout(t)

	err := renderCollectionInfo(&vectordomain.CollectionInfo{
		Name:           "fridge_manuals",
		PointCount:     12,
		VectorCount:    12,
		Status:         "green",
		Dimension:      1536,
		DistanceMetric: vectordomain.DistanceCosine,
	}, FormatTable)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "fridge_manuals")
	assert.Contains(t, out, "1536")
	assert.Contains(t, out, "Cosine")
}

func safetyCommand() *cli.Command {
	return &cli.Command{
		Name: "check",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env"},
			&cli.StringFlag{Name: "file"},
			&cli.StringFlag{Name: "policy"},
		},
		Action: SafetyCheckAction,
	}
}

func TestSafetyCheckAction(t *testing.T) {
	dir := t.TempDir()
	policyPath := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(policyPath, []byte(`
blocked_actions:
  - keywords: ["refrigerant"]
    message: "Refrigerant handling requires a certified technician"
`), 0o644))

	buf := captureStdout(t)
	err := safetyCommand().Run(context.Background(), []string{
		"check",
		"--env", filepath.Join(dir, "missing.env"),
		"--policy", policyPath,
		"Recharge the refrigerant and unplug the unit",
	})
	require.NoError(t, err)

	var report safetydomain.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.False(t, report.SafetyOK)
	require.Len(t, report.BlockedActions, 1)
	assert.Equal(t, safetydomain.SeverityHigh, report.BlockedActions[0].Severity)
	require.Len(t, report.Warnings, 1)
}

func TestSafetyCheckAction_RequiresPlan(t *testing.T) {
	err := safetyCommand().Run(context.Background(), []string{"check"})
	assert.Error(t, err)
}
