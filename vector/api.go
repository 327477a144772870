package vector

import (
	"context"
	"errors"
	"time"

	"github.com/viant/vecdelta/embedding"
)

var (
	// ErrNotFound is returned when a document or version does not exist.
	ErrNotFound = errors.New("vector: not found")
	// ErrVersionConflict is returned when an update does not follow the
	// version currently stored for its document.
	ErrVersionConflict = errors.New("vector: version conflict")
)

// Update describes one stored version of a document embedding.
type Update struct {
	DatasetID string
	ID        string
	Version   uint64

	// Strategy is StrategyFull (Payload holds the vector bytes) or
	// StrategyDelta (Payload holds an encoded embedding.VectorDelta whose
	// BaseID is the previous version).
	Strategy embedding.UpdateStrategy
	DType    embedding.DType
	Dim      uint32
	Payload  []byte

	// Changes is the number of elements that differ from the previous
	// version; Drift is the L2 distance to it.
	Changes int
	Drift   float64

	// Changed is false when Put received a vector identical to the stored
	// one; nothing is written in that case.
	Changed   bool
	CreatedAt time.Time
}

// Store is a versioned embedding store. Each Put that changes a document's
// vector produces a new version kept as a full vector or a delta.
type Store interface {
	// Put stores vec as the next version of the document.
	Put(ctx context.Context, datasetID, id string, vec embedding.Vector) (*Update, error)

	// Get returns the latest vector and its version.
	Get(ctx context.Context, datasetID, id string) (embedding.Vector, uint64, error)

	// GetVersion rebuilds the vector as of version by replaying updates.
	GetVersion(ctx context.Context, datasetID, id string, version uint64) (embedding.Vector, error)

	// History lists stored updates in ascending version order.
	History(ctx context.Context, datasetID, id string) ([]Update, error)

	// Remove deletes the document and its history.
	Remove(ctx context.Context, datasetID, id string) error
}
