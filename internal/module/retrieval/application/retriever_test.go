package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	embedapp "github.com/jinford/appliance-rag/internal/module/embedding/application"
	embedtest "github.com/jinford/appliance-rag/internal/module/embedding/testing"
	"github.com/jinford/appliance-rag/internal/module/retrieval/application"
	"github.com/jinford/appliance-rag/internal/module/retrieval/domain"
	testutil "github.com/jinford/appliance-rag/internal/module/retrieval/testing"
	vectormemory "github.com/jinford/appliance-rag/internal/module/vectorindex/adapter/memory"
	vectordomain "github.com/jinford/appliance-rag/internal/module/vectorindex/domain"
	"github.com/jinford/appliance-rag/internal/shared/metadata"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededRetriever(t *testing.T) *application.Retriever {
	t.Helper()
	ctx := context.Background()
	client := &embedtest.HashClient{Dim: 32}

	index := vectormemory.NewIndex("test_manuals", 32)
	require.NoError(t, index.CreateCollection(ctx, false))

	docs := []struct {
		id, text, brand, model, kind, source string
	}{
		{"1", "To reset the ice maker hold the reset button for three seconds", "Samsung", "RF28R7351SG", "refrigerator", "samsung_RF28R7351SG_refrigerator.pdf"},
		{"2", "Clean the condenser coils every six months", "Samsung", "RF28R7351SG", "refrigerator", "samsung_RF28R7351SG_refrigerator.pdf"},
		{"3", "To reset the ice maker press the test switch", "LG", "LRMVS3006S", "refrigerator", "lg_LRMVS3006S_refrigerator.pdf"},
		{"4", "Select the sensor cook menu for popcorn", "Samsung", "MC12J8035CT", "microwave", "samsung_MC12J8035CT_microwave.pdf"},
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.text
	}
	vectors, err := client.EmbedBatch(ctx, texts)
	require.NoError(t, err)

	entries := make([]*vectordomain.IndexEntry, len(docs))
	for i, d := range docs {
		entries[i] = &vectordomain.IndexEntry{
			ID:     d.id,
			Vector: vectors[i],
			Text:   d.text,
			Metadata: metadata.Metadata{
				metadata.KeyBrand:         d.brand,
				metadata.KeyModelNumber:   d.model,
				metadata.KeyApplianceType: d.kind,
				metadata.KeySource:        d.source,
			},
		}
	}
	_, err = index.Upsert(ctx, entries, 10)
	require.NoError(t, err)

	embedder := embedapp.NewBatchEmbedder(client, discardLogger(), embedapp.WithBatchDelay(0))
	return application.NewRetriever(embedder, index, discardLogger())
}

func TestRetriever_Retrieve(t *testing.T) {
	r := seededRetriever(t)

	result, err := r.Retrieve(context.Background(), domain.Request{Query: "reset the ice maker", TopK: 2})
	require.NoError(t, err)

	assert.Equal(t, "reset the ice maker", result.Query)
	assert.Equal(t, 2, result.TopK)
	require.Equal(t, 2, result.ResultCount)
	assert.ElementsMatch(t, []string{"1", "3"}, []string{result.Results[0].ID, result.Results[1].ID})
	assert.GreaterOrEqual(t, result.Results[0].Score, result.Results[1].Score)
	assert.Contains(t, result.Context, "[1] (Source: ")
	assert.Contains(t, result.Context, "[2] (Source: ")
}

func TestRetriever_RetrieveWithMetadata(t *testing.T) {
	r := seededRetriever(t)

	result, err := r.RetrieveWithMetadata(context.Background(), "reset the ice maker", 5,
		domain.MetadataFilter{Brand: "LG", ApplianceType: "refrigerator"}, 0)
	require.NoError(t, err)
	require.Equal(t, 1, result.ResultCount)
	assert.Equal(t, "3", result.Results[0].ID)
	assert.Contains(t, result.Context, "(Source: lg_LRMVS3006S_refrigerator.pdf, Relevance: ")
}

func TestRetriever_MinScoreAppliedAfterSearch(t *testing.T) {
	searcher := &testutil.MockSearcher{SearchFunc: testutil.Results(
		&vectordomain.SearchResult{ID: "a", Score: 0.82, Text: "a"},
		&vectordomain.SearchResult{ID: "b", Score: 0.41, Text: "b"},
	)}
	r := application.NewRetriever(&testutil.MockQueryEmbedder{}, searcher, discardLogger())

	result, err := r.Retrieve(context.Background(), domain.Request{Query: "water leak", TopK: 4, MinScore: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 4, searcher.LastTopK)
	require.Equal(t, 1, result.ResultCount)
	assert.Equal(t, "a", result.Results[0].ID)
}

func TestRetriever_NothingSurvives(t *testing.T) {
	searcher := &testutil.MockSearcher{SearchFunc: testutil.Results(
		&vectordomain.SearchResult{ID: "a", Score: 0.3},
	)}
	r := application.NewRetriever(&testutil.MockQueryEmbedder{}, searcher, discardLogger())

	result, err := r.Retrieve(context.Background(), domain.Request{Query: "noise", MinScore: 0.9})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ResultCount)
	assert.Empty(t, result.Results)
	assert.Equal(t, domain.NoInformationContext, result.Context)
	assert.Equal(t, domain.DefaultTopK, result.TopK)
}

func TestRetriever_Errors(t *testing.T) {
	t.Run("empty query", func(t *testing.T) {
		r := application.NewRetriever(&testutil.MockQueryEmbedder{}, &testutil.MockSearcher{}, discardLogger())
		_, err := r.Retrieve(context.Background(), domain.Request{Query: "  "})
		require.ErrorIs(t, err, domain.ErrEmptyQuery)
	})

	t.Run("embedding failure", func(t *testing.T) {
		embedder := &testutil.MockQueryEmbedder{EmbedQueryFunc: func(context.Context, string) ([]float32, error) {
			return nil, errors.New("rate limited")
		}}
		r := application.NewRetriever(embedder, &testutil.MockSearcher{}, discardLogger())
		_, err := r.Retrieve(context.Background(), domain.Request{Query: "noise"})
		require.ErrorContains(t, err, "rate limited")
	})

	t.Run("missing collection is not an empty result", func(t *testing.T) {
		index := vectormemory.NewIndex("missing", 2)
		r := application.NewRetriever(&testutil.MockQueryEmbedder{}, index, discardLogger())
		result, err := r.Retrieve(context.Background(), domain.Request{Query: "noise"})
		require.ErrorIs(t, err, vectordomain.ErrCollectionNotFound)
		assert.Nil(t, result)
	})
}

func TestRetriever_LookupModel(t *testing.T) {
	searcher := &testutil.MockSearcher{SearchFunc: testutil.Results(
		&vectordomain.SearchResult{ID: "a", Score: 0.2},
	)}
	r := application.NewRetriever(&testutil.MockQueryEmbedder{}, searcher, discardLogger())

	results, err := r.LookupModel(context.Background(), "WD53DBA900H", "Samsung", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, 10, searcher.LastTopK)
	assert.Equal(t, map[string]string{metadata.KeyBrand: "Samsung"}, searcher.LastFilters)
}
