package vector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/viant/vecdelta/embedding"
	"github.com/viant/vecdelta/index"
)

// SQLiteStore implements Store on a SQLite database. The latest vector of
// each document is materialised in docs so reads never replay history;
// doc_updates keeps the chain used by GetVersion and by replication.
type SQLiteStore struct {
	db       *sql.DB
	strategy embedding.UpdateStrategy
	logger   zerolog.Logger
	hook     Hook
	now      func() time.Time
}

// Hook observes writes inside the transaction that performs them. An error
// aborts the write.
type Hook interface {
	OnUpdate(ctx context.Context, tx *sql.Tx, u *Update) error
	OnRemove(ctx context.Context, tx *sql.Tx, datasetID, id string) error
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithStrategy sets how Put stores new versions. Default is StrategyAuto.
func WithStrategy(strategy embedding.UpdateStrategy) Option {
	return func(s *SQLiteStore) { s.strategy = strategy }
}

// WithLogger sets the logger. Default discards output.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *SQLiteStore) { s.logger = logger }
}

// WithHook registers a hook called for every new version and removal.
func WithHook(hook Hook) Option {
	return func(s *SQLiteStore) { s.hook = hook }
}

// NewSQLiteStore creates a new SQLite-backed Store. It ensures the schema
// exists in the provided database.
func NewSQLiteStore(db *sql.DB, opts ...Option) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("vector: db is nil")
	}
	if err := EnsureSchema(db); err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db, logger: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DB returns the underlying database handle.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Put stores vec as the next version of the document. The first version is
// always full. Later versions are diffed against the stored vector and kept
// as a delta or full vector per the configured strategy; a change of
// dimension or element type is stored as full. An identical vector is not
// written and returns an Update with Changed == false.
func (s *SQLiteStore) Put(ctx context.Context, datasetID, id string, vec embedding.Vector) (*Update, error) {
	if datasetID == "" || id == "" {
		return nil, fmt.Errorf("vector: Put requires dataset and id")
	}
	if err := vec.Validate(); err != nil {
		return nil, err
	}
	if vec.Dim == 0 {
		return nil, fmt.Errorf("vector: Put %s/%s with empty vector", datasetID, id)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var u *Update
	cur, version, err := loadLatest(ctx, tx, datasetID, id)
	switch {
	case errors.Is(err, ErrNotFound):
		u = &Update{
			DatasetID: datasetID, ID: id, Version: 1,
			Strategy: embedding.StrategyFull, DType: vec.DType, Dim: vec.Dim,
			Payload: vec.Data, Changes: int(vec.Dim), Changed: true,
		}
	case err != nil:
		return nil, err
	case cur.Equal(vec):
		return &Update{DatasetID: datasetID, ID: id, Version: version, DType: vec.DType, Dim: vec.Dim}, nil
	default:
		if u, err = s.nextUpdate(datasetID, id, cur, version, vec); err != nil {
			return nil, err
		}
	}
	u.CreatedAt = s.now().UTC()
	if err := writeUpdate(ctx, tx, u, vec); err != nil {
		return nil, err
	}
	if s.hook != nil {
		if err := s.hook.OnUpdate(ctx, tx, u); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.logger.Debug().
		Str("dataset", datasetID).
		Str("id", id).
		Uint64("version", u.Version).
		Str("strategy", u.Strategy.String()).
		Int("changes", u.Changes).
		Int("bytes", len(u.Payload)).
		Msg("vector put")
	return u, nil
}

func (s *SQLiteStore) nextUpdate(datasetID, id string, cur embedding.Vector, version uint64, vec embedding.Vector) (*Update, error) {
	u := &Update{
		DatasetID: datasetID, ID: id, Version: version + 1,
		DType: vec.DType, Dim: vec.Dim, Changed: true,
	}
	delta, err := embedding.FromVectors(cur, vec, version)
	if errors.Is(err, embedding.ErrDimensionMismatch) || errors.Is(err, embedding.ErrTypeMismatch) {
		s.logger.Info().Str("dataset", datasetID).Str("id", id).
			Uint32("dim", vec.Dim).Str("dtype", vec.DType.String()).
			Msg("vector shape changed, storing full version")
		u.Strategy = embedding.StrategyFull
		u.Payload = vec.Data
		u.Changes = int(vec.Dim)
		return u, nil
	}
	if err != nil {
		return nil, err
	}
	u.Changes = len(delta.Changes)
	if drift, err := L2Distance(cur.Float32s(), vec.Float32s()); err == nil {
		u.Drift = drift
	}
	u.Strategy = embedding.ChooseStrategy(delta, vec.Dim, s.strategy)
	if u.Strategy == embedding.StrategyDelta {
		if u.Payload, err = delta.Encode(); err != nil {
			return nil, err
		}
		return u, nil
	}
	u.Payload = vec.Data
	return u, nil
}

// ApplyUpdate records an update produced by another store and keeps its
// version number. A delta must name the locally stored version as its base;
// a full update only has to be newer. It returns the resulting vector.
func (s *SQLiteStore) ApplyUpdate(ctx context.Context, u Update) (embedding.Vector, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return embedding.Vector{}, err
	}
	defer func() { _ = tx.Rollback() }()
	vec, err := s.ApplyUpdateTx(ctx, tx, u)
	if err != nil {
		return embedding.Vector{}, err
	}
	return vec, tx.Commit()
}

// ApplyUpdateTx is ApplyUpdate inside a caller-owned transaction, so other
// writes can commit atomically with the update.
func (s *SQLiteStore) ApplyUpdateTx(ctx context.Context, tx *sql.Tx, u Update) (embedding.Vector, error) {
	cur, version, err := loadLatest(ctx, tx, u.DatasetID, u.ID)
	missing := errors.Is(err, ErrNotFound)
	if err != nil && !missing {
		return embedding.Vector{}, err
	}
	if !missing && u.Version <= version {
		return embedding.Vector{}, fmt.Errorf("%w: %s/%s update %d not after stored %d", ErrVersionConflict, u.DatasetID, u.ID, u.Version, version)
	}

	var vec embedding.Vector
	switch u.Strategy {
	case embedding.StrategyFull:
		if vec, err = DecodeVector(u.Payload, u.DType); err != nil {
			return embedding.Vector{}, err
		}
	case embedding.StrategyDelta:
		if missing {
			return embedding.Vector{}, fmt.Errorf("%w: %s/%s delta %d without base", ErrVersionConflict, u.DatasetID, u.ID, u.Version)
		}
		delta, err := embedding.DecodeType(u.Payload, cur.DType)
		if err != nil {
			return embedding.Vector{}, err
		}
		if delta.BaseID != version {
			return embedding.Vector{}, fmt.Errorf("%w: %s/%s delta base %d, stored %d", ErrVersionConflict, u.DatasetID, u.ID, delta.BaseID, version)
		}
		if vec, err = delta.Apply(cur); err != nil {
			return embedding.Vector{}, err
		}
		u.Changes = len(delta.Changes)
	default:
		return embedding.Vector{}, fmt.Errorf("vector: unsupported update strategy %v", u.Strategy)
	}
	u.DType, u.Dim, u.Changed = vec.DType, vec.Dim, true
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	if err := writeUpdate(ctx, tx, &u, vec); err != nil {
		return embedding.Vector{}, err
	}
	if s.hook != nil {
		if err := s.hook.OnUpdate(ctx, tx, &u); err != nil {
			return embedding.Vector{}, err
		}
	}
	return vec, nil
}

// Get returns the latest vector of a document and its version.
func (s *SQLiteStore) Get(ctx context.Context, datasetID, id string) (embedding.Vector, uint64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return loadLatest(ctx, s.db, datasetID, id)
}

// GetTx is Get inside a caller-owned transaction.
func (s *SQLiteStore) GetTx(ctx context.Context, tx *sql.Tx, datasetID, id string) (embedding.Vector, uint64, error) {
	return loadLatest(ctx, tx, datasetID, id)
}

// GetVersion rebuilds the vector as of version from the nearest full update
// at or before it and the deltas that follow.
func (s *SQLiteStore) GetVersion(ctx context.Context, datasetID, id string, version uint64) (embedding.Vector, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	updates, err := loadUpdates(ctx, s.db, datasetID, id, version)
	if err != nil {
		return embedding.Vector{}, err
	}
	if len(updates) == 0 || updates[len(updates)-1].Version != version {
		return embedding.Vector{}, fmt.Errorf("%w: %s/%s version %d", ErrNotFound, datasetID, id, version)
	}
	return Replay(updates)
}

// History lists the stored updates of a document in ascending version order.
func (s *SQLiteStore) History(ctx context.Context, datasetID, id string) ([]Update, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return loadUpdates(ctx, s.db, datasetID, id, 0)
}

// IDs lists document ids in a dataset.
func (s *SQLiteStore) IDs(ctx context.Context, datasetID string) ([]string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM docs WHERE dataset_id = ? ORDER BY id`, datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Remove deletes a document and its history. Removing a missing document is
// not an error.
func (s *SQLiteStore) Remove(ctx context.Context, datasetID, id string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := s.RemoveTx(ctx, tx, datasetID, id); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveTx is Remove inside a caller-owned transaction.
func (s *SQLiteStore) RemoveTx(ctx context.Context, tx *sql.Tx, datasetID, id string) error {
	if id == "" {
		return fmt.Errorf("vector: Remove called with empty id")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM doc_updates WHERE dataset_id = ? AND id = ?`, datasetID, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM docs WHERE dataset_id = ? AND id = ?`, datasetID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 && s.hook != nil {
		if err := s.hook.OnRemove(ctx, tx, datasetID, id); err != nil {
			return err
		}
	}
	return nil
}

// Compact collapses the history of every document in a dataset into a
// single full update at its current version. It returns the number of
// documents compacted.
func (s *SQLiteStore) Compact(ctx context.Context, datasetID string) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT id, version, dtype, embedding FROM docs WHERE dataset_id = ?`, datasetID)
	if err != nil {
		return 0, err
	}
	type latest struct {
		id      string
		version uint64
		vec     embedding.Vector
	}
	var docs []latest
	for rows.Next() {
		var d latest
		var dtype uint8
		var blob []byte
		if err := rows.Scan(&d.id, &d.version, &dtype, &blob); err != nil {
			rows.Close()
			return 0, err
		}
		if d.vec, err = DecodeVector(blob, embedding.DType(dtype)); err != nil {
			rows.Close()
			return 0, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	now := s.now().UTC()
	for _, d := range docs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM doc_updates WHERE dataset_id = ? AND id = ?`, datasetID, d.id); err != nil {
			return 0, err
		}
		u := &Update{
			DatasetID: datasetID, ID: d.id, Version: d.version,
			Strategy: embedding.StrategyFull, DType: d.vec.DType, Dim: d.vec.Dim,
			Payload: d.vec.Data, Changes: int(d.vec.Dim), CreatedAt: now,
		}
		if err := insertUpdate(ctx, tx, u); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	s.logger.Info().Str("dataset", datasetID).Int("docs", len(docs)).Msg("vector compacted")
	return len(docs), nil
}

// Nearest returns the k documents of a dataset whose latest vectors are most
// similar to query by cosine similarity. Documents with a different
// dimension than query are skipped.
func (s *SQLiteStore) Nearest(ctx context.Context, datasetID string, query embedding.Vector, k int) ([]index.Match, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, dtype, dim, embedding FROM docs WHERE dataset_id = ? AND dim = ?`, datasetID, query.Dim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	idx := index.NewFlat()
	for rows.Next() {
		var (
			id    string
			dtype uint8
			dim   uint32
			blob  []byte
		)
		if err := rows.Scan(&id, &dtype, &dim, &blob); err != nil {
			return nil, err
		}
		vec, err := DecodeVector(blob, embedding.DType(dtype))
		if err != nil {
			return nil, err
		}
		if err := idx.Add(id, vec); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return idx.Query(query, k)
}

// Stats summarises the stored history of a dataset.
type Stats struct {
	Docs         int
	Updates      int
	Deltas       int
	PayloadBytes int64
}

// Stats reports document and update counts for a dataset.
func (s *SQLiteStore) Stats(ctx context.Context, datasetID string) (Stats, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM docs WHERE dataset_id = ?`, datasetID).Scan(&st.Docs); err != nil {
		return st, err
	}
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*),
  COALESCE(SUM(CASE WHEN strategy = 'delta' THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(LENGTH(payload)), 0)
FROM doc_updates WHERE dataset_id = ?`, datasetID).Scan(&st.Updates, &st.Deltas, &st.PayloadBytes)
	return st, err
}

// Replay rebuilds a vector from updates in ascending version order. It
// starts at the last full update and applies the deltas after it, checking
// that each delta names the preceding version as its base.
func Replay(updates []Update) (embedding.Vector, error) {
	start := -1
	for i := len(updates) - 1; i >= 0; i-- {
		if updates[i].Strategy == embedding.StrategyFull {
			start = i
			break
		}
	}
	if start < 0 {
		return embedding.Vector{}, fmt.Errorf("%w: no full version to replay from", ErrNotFound)
	}
	vec, err := DecodeVector(updates[start].Payload, updates[start].DType)
	if err != nil {
		return embedding.Vector{}, err
	}
	prev := updates[start].Version
	for _, u := range updates[start+1:] {
		delta, err := embedding.DecodeType(u.Payload, vec.DType)
		if err != nil {
			return embedding.Vector{}, err
		}
		if delta.BaseID != prev {
			return embedding.Vector{}, fmt.Errorf("%w: version %d based on %d, want %d", ErrVersionConflict, u.Version, delta.BaseID, prev)
		}
		if vec, err = delta.Apply(vec); err != nil {
			return embedding.Vector{}, err
		}
		prev = u.Version
	}
	return vec, nil
}

func loadLatest(ctx context.Context, q querier, datasetID, id string) (embedding.Vector, uint64, error) {
	var (
		version uint64
		dtype   uint8
		blob    []byte
	)
	err := q.QueryRowContext(ctx, `SELECT version, dtype, embedding FROM docs WHERE dataset_id = ? AND id = ?`, datasetID, id).
		Scan(&version, &dtype, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return embedding.Vector{}, 0, fmt.Errorf("%w: %s/%s", ErrNotFound, datasetID, id)
	}
	if err != nil {
		return embedding.Vector{}, 0, err
	}
	vec, err := DecodeVector(blob, embedding.DType(dtype))
	return vec, version, err
}

const updateColumns = `dataset_id, id, version, strategy, dtype, dim, payload, changes, drift, created_at`

// loadUpdates returns updates up to and including maxVersion; 0 means all.
func loadUpdates(ctx context.Context, q querier, datasetID, id string, maxVersion uint64) ([]Update, error) {
	query := `SELECT ` + updateColumns + ` FROM doc_updates WHERE dataset_id = ? AND id = ?`
	args := []any{datasetID, id}
	if maxVersion > 0 {
		query += ` AND version <= ?`
		args = append(args, maxVersion)
	}
	rows, err := q.QueryContext(ctx, query+` ORDER BY version`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Update
	for rows.Next() {
		var (
			u        Update
			strategy string
			dtype    uint8
			created  int64
		)
		if err := rows.Scan(&u.DatasetID, &u.ID, &u.Version, &strategy, &dtype, &u.Dim, &u.Payload, &u.Changes, &u.Drift, &created); err != nil {
			return nil, err
		}
		if u.Strategy, err = embedding.ParseUpdateStrategy(strategy); err != nil {
			return nil, err
		}
		u.DType = embedding.DType(dtype)
		u.CreatedAt = time.Unix(0, created).UTC()
		u.Changed = true
		out = append(out, u)
	}
	return out, rows.Err()
}

func writeUpdate(ctx context.Context, q querier, u *Update, vec embedding.Vector) error {
	if err := insertUpdate(ctx, q, u); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `
INSERT INTO docs(dataset_id, id, version, dtype, dim, embedding)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(dataset_id, id) DO UPDATE SET
  version = excluded.version,
  dtype = excluded.dtype,
  dim = excluded.dim,
  embedding = excluded.embedding`,
		u.DatasetID, u.ID, u.Version, uint8(vec.DType), vec.Dim, vec.Data)
	return err
}

func insertUpdate(ctx context.Context, q querier, u *Update) error {
	_, err := q.ExecContext(ctx, `INSERT INTO doc_updates(`+updateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.DatasetID, u.ID, u.Version, u.Strategy.String(), uint8(u.DType), u.Dim, u.Payload, u.Changes, u.Drift, u.CreatedAt.UnixNano())
	return err
}

// Ensure SQLiteStore satisfies the Store interface.
var _ Store = (*SQLiteStore)(nil)
