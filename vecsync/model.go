package vecsync

import (
	"time"

	"github.com/viant/vecdelta/embedding"
)

// Op identifies the kind of change carried by a log entry.
type Op string

const (
	OpFull   Op = "full"
	OpDelta  Op = "delta"
	OpDelete Op = "delete"
)

// LogEntry mirrors a single row in vec_delta_log on the upstream database.
// Payload holds the raw (unframed) vector bytes for OpFull and the encoded
// embedding.VectorDelta for OpDelta; it is empty for OpDelete.
type LogEntry struct {
	DatasetID  string
	SCN        int64
	Op         Op
	DocumentID string
	Version    uint64
	DType      embedding.DType
	Payload    []byte
	CreatedAt  time.Time
}

// SyncState describes the latest SCN applied locally for a dataset.
// It corresponds to rows in vec_sync_state on downstream replicas.
type SyncState struct {
	DatasetID string
	LastSCN   int64
	UpdatedAt time.Time
}

// Config captures the settings needed to replicate one dataset from an
// upstream log into a local replica.
type Config struct {
	// DatasetID identifies the dataset slice being synchronized.
	DatasetID string

	// BatchSize controls how many log entries to fetch/apply per sync iteration.
	BatchSize int

	// Interval is the minimum time between sync passes in Run.
	Interval time.Duration
}

const (
	defaultBatchSize = 100
	defaultInterval  = time.Second
)

func (c *Config) init() {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
}
