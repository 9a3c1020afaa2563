package api

// APIResponse is the envelope every handler writes, success or failure.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// JSONCoord is the wire form of a spatial.Coord: a scalar when Hi is omitted,
// an interval ("straddle" row, spec §3.A) when it's present.
type JSONCoord struct {
	Lo float64  `json:"lo"`
	Hi *float64 `json:"hi,omitempty"`
}

// JSONRow is the wire form of one spatial.Row, used by the batch endpoint.
type JSONRow struct {
	Op    string      `json:"op"`              // "insert" or "delete"
	Point []JSONCoord `json:"point"`
	Value string      `json:"value,omitempty"` // base64, insert only
	ID    string      `json:"id,omitempty"`    // required by delete, ignored on insert
}

// JSONBounds is the wire form of a spatial.Bounds, used by the query endpoint.
type JSONBounds struct {
	Lo []float64 `json:"lo"`
	Hi []float64 `json:"hi"`
}

// JSONHit is the wire form of one query.Hit.
type JSONHit struct {
	Point  []JSONCoord `json:"point"`
	Value  string      `json:"value"`
	TreeID uint64      `json:"tree_id"`
	Offset int         `json:"offset"`
}

// ServerConfig holds the configuration StartServer needs: the listening
// port, the client-facing API key, the dimensionality and tuning knobs the
// forest was opened with, and where its system (key/config) store lives.
type ServerConfig struct {
	Port    int
	APIKey  string
	DataDir string

	Dim               int
	BranchFactor      int
	MaxDataSize       int
	MaxTreeBytes      int64
	RebuildDepth      int
	TreeCacheSize     int
	ValueByteWidth    int
	ErrorIfMissing    bool

	SystemKey           string
	SystemDataDir       string
	SystemEncryptionKey string
	EnableEncryption    bool
}
