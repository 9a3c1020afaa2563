package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/kdforest/pkg/forest"
	"github.com/ssargent/kdforest/pkg/query"
	"github.com/ssargent/kdforest/pkg/spatial"
)

// fakeForest is a ForestHandle test double: an in-memory slice of rows, no
// tree structure at all, just enough to exercise the HTTP layer.
type fakeForest struct {
	rows        []spatial.Row[float64, spatial.BytesValue]
	batchErr    error
	syncErr     error
	optimizeErr error
}

func (f *fakeForest) Batch(rows []spatial.Row[float64, spatial.BytesValue]) error {
	if f.batchErr != nil {
		return f.batchErr
	}
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeForest) Sync(ctx context.Context) error { return f.syncErr }

func (f *fakeForest) Query(bbox spatial.Bounds[float64], trace query.Trace[float64]) ([]query.Hit[float64, spatial.BytesValue], error) {
	var hits []query.Hit[float64, spatial.BytesValue]
	for i, r := range f.rows {
		if r.IsDelete() {
			continue
		}
		if r.Point.Overlaps(bbox) {
			hits = append(hits, query.Hit[float64, spatial.BytesValue]{
				Point:    r.Point,
				Value:    r.Value,
				Location: query.Location{TreeID: 1, Ordinal: i},
			})
		}
	}
	return hits, nil
}

func (f *fakeForest) Optimize(ctx context.Context, depth int) error { return f.optimizeErr }

func (f *fakeForest) Explain() forest.ExplainResult {
	return forest.ExplainResult{}
}

func (f *fakeForest) Close() error { return nil }

func newTestServer(f ForestHandle) *Server {
	return NewServer(f, nil, ServerConfig{Dim: 2, APIKey: "test-key"}, NewMetrics())
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(&fakeForest{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleBatchInsertThenQuery(t *testing.T) {
	f := &fakeForest{}
	s := newTestServer(f)

	val := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	body := []JSONRow{
		{Op: "insert", Point: []JSONCoord{{Lo: 1}, {Lo: 2}}, Value: val},
	}
	buf, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/batch", bytes.NewReader(buf))
	w := httptest.NewRecorder()
	s.handleBatch(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, f.rows, 1)

	qbody, err := json.Marshal(JSONBounds{Lo: []float64{0, 0}, Hi: []float64{5, 5}})
	require.NoError(t, err)
	qreq := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewReader(qbody))
	qw := httptest.NewRecorder()
	s.handleQuery(qw, qreq)
	require.Equal(t, http.StatusOK, qw.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(qw.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestHandleBatchRejectsDimensionMismatch(t *testing.T) {
	s := newTestServer(&fakeForest{})
	body := []JSONRow{{Op: "insert", Point: []JSONCoord{{Lo: 1}}, Value: "AAA="}}
	buf, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/batch", bytes.NewReader(buf))
	w := httptest.NewRecorder()
	s.handleBatch(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleBatchRejectsUnknownOp(t *testing.T) {
	s := newTestServer(&fakeForest{})
	body := []JSONRow{{Op: "upsert", Point: []JSONCoord{{Lo: 1}, {Lo: 2}}}}
	buf, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/batch", bytes.NewReader(buf))
	w := httptest.NewRecorder()
	s.handleBatch(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSyncAndOptimize(t *testing.T) {
	f := &fakeForest{}
	s := newTestServer(f)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil)
	w := httptest.NewRecorder()
	s.handleSync(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	oreq := httptest.NewRequest(http.MethodPost, "/api/v1/optimize?depth=2", nil)
	ow := httptest.NewRecorder()
	s.handleOptimize(ow, oreq)
	assert.Equal(t, http.StatusOK, ow.Code)
}

func TestHandleExplain(t *testing.T) {
	s := newTestServer(&fakeForest{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/explain", nil)
	w := httptest.NewRecorder()
	s.handleExplain(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
