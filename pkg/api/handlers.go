package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ssargent/kdforest/pkg/forest"
	"github.com/ssargent/kdforest/pkg/query"
	"github.com/ssargent/kdforest/pkg/spatial"
)

// ForestHandle is the surface Server needs from an open forest.DB, narrowed
// to a concrete float64/BytesValue instantiation so the HTTP layer (which
// can't itself be generic over wire-level JSON) has one fixed shape to
// target — the api package's analog of the teacher's IKVStore seam.
type ForestHandle interface {
	Batch(rows []spatial.Row[float64, spatial.BytesValue]) error
	Sync(ctx context.Context) error
	Query(bbox spatial.Bounds[float64], trace query.Trace[float64]) ([]query.Hit[float64, spatial.BytesValue], error)
	Optimize(ctx context.Context, depth int) error
	Explain() forest.ExplainResult
	Close() error
}

// Server holds the API server state.
type Server struct {
	forest        ForestHandle
	systemService *SystemService
	config        ServerConfig
	metrics       *Metrics
}

// NewServer creates a new API server.
func NewServer(f ForestHandle, systemService *SystemService, config ServerConfig, metrics *Metrics) *Server {
	return &Server{
		forest:        f,
		systemService: systemService,
		config:        config,
		metrics:       metrics,
	}
}

// handleHealth reports process liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleBatch applies a batch of insert/delete rows (spec §4.J) and returns
// immediately; callers needing durability must follow with handleSync.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body []JSONRow
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.metrics.RecordDBOperation("batch", false, time.Since(start))
		sendError(w, "invalid batch body: "+err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := decodeRows(body, s.config.Dim, s.config.ValueByteWidth)
	if err != nil {
		s.metrics.RecordDBOperation("batch", false, time.Since(start))
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.forest.Batch(rows); err != nil {
		s.metrics.RecordDBOperation("batch", false, time.Since(start))
		sendError(w, "batch failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	s.metrics.RecordDBOperation("batch", true, time.Since(start))
	s.metrics.RecordBatchRows(len(rows))
	sendSuccess(w, map[string]int{"rows": len(rows)})
}

// handleQuery runs a bbox range query (spec §4.K) and returns every live hit.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body JSONBounds
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.metrics.RecordDBOperation("query", false, time.Since(start))
		sendError(w, "invalid query body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(body.Lo) != s.config.Dim || len(body.Hi) != s.config.Dim {
		s.metrics.RecordDBOperation("query", false, time.Since(start))
		sendError(w, "bbox dimension mismatch", http.StatusBadRequest)
		return
	}

	bbox := spatial.Bounds[float64]{Lo: body.Lo, Hi: body.Hi}
	hits, err := s.forest.Query(bbox, nil)
	if err != nil {
		s.metrics.RecordDBOperation("query", false, time.Since(start))
		sendError(w, "query failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	s.metrics.RecordDBOperation("query", true, time.Since(start))
	sendSuccess(w, encodeHits(hits))
}

// handleSync flushes the tree cache and rewrites Meta (spec §4.J step 7).
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := s.forest.Sync(r.Context()); err != nil {
		s.metrics.RecordDBOperation("sync", false, time.Since(start))
		sendError(w, "sync failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.metrics.RecordDBOperation("sync", true, time.Since(start))
	sendSuccess(w, map[string]string{"status": "synced"})
}

// handleOptimize forces a forced rebuild of the bottom `depth` slots
// (spec §4.I). depth defaults to 0, which a zero-value planner treats as
// "collapse everything currently occupied".
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	depth := 0
	if q := r.URL.Query().Get("depth"); q != "" {
		d, err := strconv.Atoi(q)
		if err != nil {
			sendError(w, "invalid depth", http.StatusBadRequest)
			return
		}
		depth = d
	}

	if err := s.forest.Optimize(r.Context(), depth); err != nil {
		s.metrics.RecordDBOperation("optimize", false, time.Since(start))
		sendError(w, "optimize failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.metrics.RecordDBOperation("optimize", true, time.Since(start))
	sendSuccess(w, map[string]string{"status": "optimized"})
}

// handleExplain reports forest occupancy diagnostics (spec §6 debug surface).
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, s.forest.Explain())
}

func decodeRows(body []JSONRow, dim int, valueWidth int) ([]spatial.Row[float64, spatial.BytesValue], error) {
	rows := make([]spatial.Row[float64, spatial.BytesValue], 0, len(body))
	for _, jr := range body {
		point, err := decodePoint(jr.Point, dim)
		if err != nil {
			return nil, err
		}
		switch jr.Op {
		case "insert":
			raw, err := base64.StdEncoding.DecodeString(jr.Value)
			if err != nil {
				return nil, err
			}
			if valueWidth > 0 && len(raw) != valueWidth {
				return nil, fmt.Errorf("value is %d bytes, forest is configured for %d-byte values", len(raw), valueWidth)
			}
			rows = append(rows, spatial.NewInsert[float64, spatial.BytesValue](point, spatial.BytesValue(raw)))
		case "delete":
			rows = append(rows, spatial.NewDelete[float64, spatial.BytesValue](point, jr.ID))
		default:
			return nil, fmt.Errorf("unknown row op %q", jr.Op)
		}
	}
	return rows, nil
}

func decodePoint(coords []JSONCoord, dim int) (spatial.Point[float64], error) {
	if len(coords) != dim {
		return nil, fmt.Errorf("point has %d coords, forest is %d-dimensional", len(coords), dim)
	}
	p := make(spatial.Point[float64], dim)
	for i, c := range coords {
		if c.Hi == nil {
			p[i] = spatial.NewScalar(c.Lo)
			continue
		}
		iv, err := spatial.NewInterval[float64](i, c.Lo, *c.Hi)
		if err != nil {
			return nil, err
		}
		p[i] = iv
	}
	return p, nil
}

func encodeHits(hits []query.Hit[float64, spatial.BytesValue]) []JSONHit {
	out := make([]JSONHit, len(hits))
	for i, h := range hits {
		out[i] = JSONHit{
			Point:  encodePoint(h.Point),
			Value:  base64.StdEncoding.EncodeToString([]byte(h.Value)),
			TreeID: h.Location.TreeID,
			Offset: h.Location.Ordinal,
		}
	}
	return out
}

func encodePoint(p spatial.Point[float64]) []JSONCoord {
	out := make([]JSONCoord, len(p))
	for i, c := range p {
		out[i] = JSONCoord{Lo: c.Lo()}
		if c.IsInterval() {
			hi := c.Hi()
			out[i].Hi = &hi
		}
	}
	return out
}
