package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortResults_ScoreDescThenID(t *testing.T) {
	results := []*SearchResult{
		{ID: "c", Score: 0.8},
		{ID: "b", Score: 0.9},
		{ID: "a", Score: 0.8},
		{ID: "d", Score: 0.95},
	}

	SortResults(results)

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"d", "b", "a", "c"}, ids)
}

func TestValidateDimensions(t *testing.T) {
	entries := []*IndexEntry{
		{ID: "1", Vector: []float32{1, 2, 3}},
		{ID: "2", Vector: []float32{1, 2}},
	}

	err := ValidateDimensions(entries, 3)
	require.Error(t, err)

	var dimErr *DimensionMismatchError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Actual)
	assert.Equal(t, 1, dimErr.Index)

	assert.NoError(t, ValidateDimensions(entries[:1], 3))
}

func TestValidateEntries(t *testing.T) {
	entries := []*IndexEntry{
		{ID: "1", Vector: []float32{1, 2, 3}},
		{ID: "", Vector: []float32{1, 2, 3}},
	}

	assert.ErrorIs(t, ValidateEntries(entries, 3), ErrEmptyEntryID)
	assert.NoError(t, ValidateEntries(entries[:1], 3))

	var dimErr *DimensionMismatchError
	assert.True(t, errors.As(ValidateEntries(entries[:1], 4), &dimErr))
}

func TestBatches(t *testing.T) {
	entries := make([]*IndexEntry, 5)
	for i := range entries {
		entries[i] = &IndexEntry{}
	}

	batches := Batches(entries, 2)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[2], 1)

	assert.Len(t, Batches(entries, 0), 1)
	assert.Empty(t, Batches(nil, 10))
}
