package container

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/appliance-rag/internal/module/chunking/adapter/tokenizer"
	embeddingtesting "github.com/jinford/appliance-rag/internal/module/embedding/testing"
	ingestapp "github.com/jinford/appliance-rag/internal/module/ingestion/application"
	safetydomain "github.com/jinford/appliance-rag/internal/module/safety/domain"
	scoringdomain "github.com/jinford/appliance-rag/internal/module/scoring/domain"
	searchdomain "github.com/jinford/appliance-rag/internal/module/search/domain"
	"github.com/jinford/appliance-rag/internal/platform/config"
	"github.com/jinford/appliance-rag/internal/platform/logger"
	"github.com/jinford/appliance-rag/internal/shared/metadata"
)

const testDimension = 64

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		OpenAI: config.OpenAIConfig{
			EmbeddingModel:     "hash",
			EmbeddingDimension: testDimension,
		},
		VectorStore: config.VectorStoreConfig{
			Backend:         config.VectorBackendMemory,
			Collection:      "fridge_manuals",
			UpsertBatchSize: 10,
		},
		Ingestion: config.IngestionConfig{
			SizeThresholdBytes: 20 * 1024 * 1024,
			CacheDir:           t.TempDir(),
			PdftotextPath:      "pdftotext",
			Concurrency:        2,
			GitDefaultBranch:   "main",
		},
		Chunking:  config.ChunkingConfig{ChunkSize: 60, ChunkOverlap: 10},
		Embedding: config.EmbeddingConfig{BatchSize: 8, BatchTimeout: 5 * time.Second},
		Scoring: config.ScoringConfig{
			MismatchExactScore:   0.5,
			MismatchPartialScore: 0.4,
			MismatchMinLength:    6,
			MismatchPrefixRatio:  0.8,
			MismatchLookupTopK:   10,
		},
		Search: config.SearchConfig{
			DefaultTopK:      5,
			MinSimilarity:    0.7,
			FallbackDelta:    0.15,
			FallbackFloor:    0.5,
			OverFetchFactor:  3,
			DefaultRetrieveK: 5,
		},
	}
}

func newTestContainer(t *testing.T, cfg *config.Config) *ServiceContainer {
	t.Helper()
	c, err := NewContainer(context.Background(), cfg,
		WithContainerLogger(logger.Discard()),
		WithContainerEmbeddingClient(&embeddingtesting.HashClient{Dim: testDimension}),
		WithContainerTokenizer(tokenizer.WordCounter{}),
		WithContainerSafetyPolicy(safetydomain.EmptyPolicy()),
	)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func writeManual(t *testing.T, dir, name, text string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644))
}

func TestNewContainer_UnknownBackend(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.VectorStore.Backend = "sqlite"

	_, err := NewContainer(context.Background(), cfg, WithContainerLogger(logger.Discard()))
	assert.Error(t, err)
}

func TestServiceContainer_IngestAndSearch(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t, memoryConfig(t))

	dir := t.TempDir()
	writeManual(t, dir, "samsung_RF28R7351SR_refrigerator.txt",
		"The ice maker stops producing ice when the water filter is clogged. Replace the water filter every six months.")
	writeManual(t, dir, "lg_LDF5545ST_dishwasher.txt",
		"If the dishwasher does not drain, clean the filter at the bottom of the tub and check the drain hose.")

	files, err := c.LocalSource.Resolve(ctx, dir)
	require.NoError(t, err)
	require.Len(t, files, 2)

	report, err := c.Pipeline.Ingest(ctx, files, ingestapp.IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	assert.Zero(t, report.Failed)

	info, err := c.CollectionService.Info(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, report.ChunksIndexed, info.PointCount)

	t.Run("一致する型番", func(t *testing.T) {
		resp, err := c.SearchService.Search(ctx, searchdomain.Request{
			Query:         "ice maker water filter",
			UserModel:     "RF28R7351SR",
			UserBrand:     "Samsung",
			ApplianceType: "refrigerator",
			MinSimilarity: 0,
		})
		require.NoError(t, err)
		require.True(t, resp.FoundInformation)
		for _, r := range resp.Results {
			assert.Equal(t, "Samsung", r.Metadata.String(metadata.KeyBrand))
		}
		assert.False(t, resp.AccuracyScore.IsMismatch())
		assert.Equal(t, 100, resp.AccuracyScore.Breakdown.ModelMatch)
	})

	t.Run("家電種別の不一致", func(t *testing.T) {
		resp, err := c.SearchService.Search(ctx, searchdomain.Request{
			Query:         "filter",
			UserModel:     "RF28R7351SR",
			ApplianceType: "dishwasher",
			MinSimilarity: 0,
		})
		require.NoError(t, err)
		require.True(t, resp.FoundInformation)
		assert.True(t, resp.AccuracyScore.IsMismatch())
		assert.Equal(t, scoringdomain.LevelWrongApplianceType, resp.AccuracyScore.Level)
		assert.Equal(t, "refrigerator", resp.AccuracyScore.DetectedModelType)
	})

	t.Run("該当なし", func(t *testing.T) {
		resp, err := c.SearchService.Search(ctx, searchdomain.Request{
			Query:         "filter",
			UserBrand:     "Whirlpool",
			MinSimilarity: 0.7,
		})
		require.NoError(t, err)
		assert.False(t, resp.FoundInformation)
		assert.Equal(t, scoringdomain.LevelNoInformation, resp.AccuracyScore.Level)
	})
}

func TestServiceContainer_SafetyChecker(t *testing.T) {
	c := newTestContainer(t, memoryConfig(t))

	report := c.SafetyChecker.Check("Unplug the fridge and replace the water filter")
	require.NotNil(t, report)
	assert.True(t, report.SafetyOK)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, safetydomain.ElectricalRule.Warning, report.Warnings[0].Message)
}
