package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jinford/appliance-rag/internal/module/vectorindex/domain"
	"github.com/jinford/appliance-rag/internal/shared/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	APIKey string
	Body   map[string]any
}

type fakeQdrant struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r recordedRequest)
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		APIKey: r.Header.Get("api-key"),
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()
	f.handler(w, rec)
}

func writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"result": result, "status": "ok"})
}

func newTestIndex(t *testing.T, handler func(w http.ResponseWriter, r recordedRequest)) (*Index, *fakeQdrant) {
	t.Helper()
	fake := &fakeQdrant{handler: handler}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	idx := NewIndex(Config{
		URL:        srv.URL + "/",
		APIKey:     "secret",
		Collection: "fridge_manuals",
		Dimension:  3,
	}, WithHTTPClient(srv.Client()))
	return idx, fake
}

func TestIndex_CreateCollection_WhenMissing(t *testing.T) {
	idx, fake := newTestIndex(t, func(w http.ResponseWriter, r recordedRequest) {
		if r.Method == http.MethodGet {
			http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
			return
		}
		writeResult(w, true)
	})

	require.NoError(t, idx.CreateCollection(context.Background(), false))

	require.Len(t, fake.requests, 2)
	create := fake.requests[1]
	assert.Equal(t, http.MethodPut, create.Method)
	assert.Equal(t, "/collections/fridge_manuals", create.Path)
	assert.Equal(t, "secret", create.APIKey)
	vectors := create.Body["vectors"].(map[string]any)
	assert.Equal(t, float64(3), vectors["size"])
	assert.Equal(t, "Cosine", vectors["distance"])
}

func TestIndex_CreateCollection_ForceRecreate(t *testing.T) {
	idx, fake := newTestIndex(t, func(w http.ResponseWriter, r recordedRequest) {
		if r.Method == http.MethodGet {
			writeResult(w, map[string]any{"status": "green", "points_count": 4})
			return
		}
		writeResult(w, true)
	})

	require.NoError(t, idx.CreateCollection(context.Background(), true))

	require.Len(t, fake.requests, 3)
	assert.Equal(t, http.MethodDelete, fake.requests[1].Method)
	assert.Equal(t, http.MethodPut, fake.requests[2].Method)
}

func TestIndex_CollectionInfo(t *testing.T) {
	idx, _ := newTestIndex(t, func(w http.ResponseWriter, r recordedRequest) {
		writeResult(w, map[string]any{
			"status":       "green",
			"points_count": 42,
			"config": map[string]any{
				"params": map[string]any{
					"vectors": map[string]any{"size": 3, "distance": "Cosine"},
				},
			},
		})
	})

	info, err := idx.CollectionInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fridge_manuals", info.Name)
	assert.Equal(t, int64(42), info.PointCount)
	assert.Equal(t, int64(42), info.VectorCount)
	assert.Equal(t, "green", info.Status)
	assert.Equal(t, 3, info.Dimension)
	assert.Equal(t, "Cosine", info.DistanceMetric)
}

func TestIndex_ErrorsAreClassified(t *testing.T) {
	status := http.StatusNotFound
	idx, _ := newTestIndex(t, func(w http.ResponseWriter, r recordedRequest) {
		http.Error(w, "boom", status)
	})

	_, err := idx.CollectionInfo(context.Background())
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)

	status = http.StatusServiceUnavailable
	_, err = idx.Search(context.Background(), []float32{1, 0, 0}, 5, nil)
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
	assert.NotErrorIs(t, err, domain.ErrCollectionNotFound)
}

func TestIndex_UpsertInBatches(t *testing.T) {
	idx, fake := newTestIndex(t, func(w http.ResponseWriter, r recordedRequest) {
		writeResult(w, map[string]any{"status": "completed"})
	})

	entries := []*domain.IndexEntry{
		{ID: "11111111-1111-1111-1111-111111111111", Vector: []float32{1, 0, 0}, Text: "a", Metadata: metadata.Metadata{metadata.KeyBrand: "LG"}},
		{ID: "22222222-2222-2222-2222-222222222222", Vector: []float32{0, 1, 0}, Text: "b"},
		{ID: "33333333-3333-3333-3333-333333333333", Vector: []float32{0, 0, 1}, Text: "c"},
	}

	n, err := idx.Upsert(context.Background(), entries, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.Len(t, fake.requests, 2)
	assert.Equal(t, "/collections/fridge_manuals/points", fake.requests[0].Path)
	assert.Equal(t, "wait=true", fake.requests[0].Query)

	points := fake.requests[0].Body["points"].([]any)
	require.Len(t, points, 2)
	payload := points[0].(map[string]any)["payload"].(map[string]any)
	assert.Equal(t, "a", payload["text"])
	assert.Equal(t, "LG", payload["brand"])
}

func TestIndex_UpsertDimensionMismatchSendsNothing(t *testing.T) {
	idx, fake := newTestIndex(t, func(w http.ResponseWriter, r recordedRequest) {
		writeResult(w, true)
	})

	_, err := idx.Upsert(context.Background(), []*domain.IndexEntry{{ID: "x", Vector: []float32{1}}}, 10)
	var dimErr *domain.DimensionMismatchError
	require.ErrorAs(t, err, &dimErr)
	assert.Empty(t, fake.requests)
}

func TestIndex_SearchWithFilters(t *testing.T) {
	idx, fake := newTestIndex(t, func(w http.ResponseWriter, r recordedRequest) {
		writeResult(w, []map[string]any{
			{"id": "b", "score": 0.9, "payload": map[string]any{"text": "reset ice maker", "brand": "Samsung"}},
			{"id": "a", "score": 0.9, "payload": map[string]any{"text": "ice maker", "brand": "Samsung"}},
			{"id": "c", "score": 0.95, "payload": map[string]any{"text": "filter", "brand": "Samsung"}},
		})
	})

	results, err := idx.Search(context.Background(), []float32{1, 0, 0}, 3, map[string]string{
		metadata.KeyBrand:         "Samsung",
		metadata.KeyApplianceType: "refrigerator",
		metadata.KeyModelNumber:   "",
	})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "c", results[0].ID)
	assert.Equal(t, "a", results[1].ID)
	assert.Equal(t, "b", results[2].ID)
	assert.Equal(t, "ice maker", results[1].Text)
	assert.NotContains(t, results[1].Metadata, "text")

	req := fake.requests[0]
	assert.Equal(t, "/collections/fridge_manuals/points/search", req.Path)
	assert.Equal(t, true, req.Body["with_payload"])
	must := req.Body["filter"].(map[string]any)["must"].([]any)
	require.Len(t, must, 2)
	assert.Equal(t, "appliance_type", must[0].(map[string]any)["key"])
	assert.Equal(t, "brand", must[1].(map[string]any)["key"])
}

func TestIndex_SearchWithoutFiltersOmitsFilter(t *testing.T) {
	idx, fake := newTestIndex(t, func(w http.ResponseWriter, r recordedRequest) {
		writeResult(w, []map[string]any{})
	})

	results, err := idx.Search(context.Background(), []float32{1, 0, 0}, 3, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NotContains(t, fake.requests[0].Body, "filter")
}

func TestIndex_DeleteByDocument(t *testing.T) {
	idx, fake := newTestIndex(t, func(w http.ResponseWriter, r recordedRequest) {
		if r.Path == "/collections/fridge_manuals/points/count" {
			writeResult(w, map[string]any{"count": 7})
			return
		}
		writeResult(w, map[string]any{"status": "completed"})
	})

	deleted, err := idx.DeleteByDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 7, deleted)
	require.Len(t, fake.requests, 2)
	assert.Equal(t, "/collections/fridge_manuals/points/delete", fake.requests[1].Path)
}
