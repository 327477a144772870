package vecsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/viant/vecdelta/embedding"
	"github.com/viant/vecdelta/vector"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ErrOutOfOrder is returned when a log entry cannot be applied because the
// replica does not hold the version it depends on.
var ErrOutOfOrder = errors.New("vecsync: entry out of order")

// Replicator applies the change log of one dataset to a replica store.
type Replicator struct {
	upstream *sql.DB
	replica  *vector.SQLiteStore
	cfg      Config
	opts     options
}

// NewReplicator creates the sync state table on the replica database.
func NewReplicator(upstream *sql.DB, replica *vector.SQLiteStore, cfg Config, opts ...Option) (*Replicator, error) {
	if upstream == nil || replica == nil {
		return nil, fmt.Errorf("vecsync: upstream and replica are required")
	}
	if cfg.DatasetID == "" {
		return nil, fmt.Errorf("vecsync: dataset id is required")
	}
	cfg.init()
	if _, err := replica.DB().Exec(SyncStateDDL()); err != nil {
		return nil, err
	}
	return &Replicator{upstream: upstream, replica: replica, cfg: cfg, opts: newOptions(opts)}, nil
}

// State returns the last applied SCN. A replica that never synced reports 0.
func (r *Replicator) State(ctx context.Context) (SyncState, error) {
	state := SyncState{DatasetID: r.cfg.DatasetID}
	var updated int64
	err := r.replica.DB().QueryRowContext(ctx, `SELECT last_scn, updated_at FROM `+DefaultStateTable+` WHERE dataset_id = ?`, r.cfg.DatasetID).
		Scan(&state.LastSCN, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return state, err
	}
	state.UpdatedAt = time.Unix(0, updated).UTC()
	return state, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *Replicator) saveState(ctx context.Context, q execer, scn int64) error {
	_, err := q.ExecContext(ctx, `INSERT INTO `+DefaultStateTable+`(dataset_id, last_scn, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(dataset_id) DO UPDATE SET last_scn = excluded.last_scn, updated_at = excluded.updated_at`,
		r.cfg.DatasetID, scn, r.opts.now().UTC().UnixNano())
	return err
}

// Pull reads up to limit upstream entries after afterSCN.
func (r *Replicator) Pull(ctx context.Context, afterSCN int64, limit int) ([]LogEntry, error) {
	return ReadLog(ctx, r.upstream, r.cfg.DatasetID, afterSCN, limit)
}

// SyncOnce applies one batch of entries. Each entry and the sync state
// advancing past it commit in one replica transaction, so a crash never
// leaves an applied entry queued for redelivery. Entries at or below the
// replica's version are skipped. It returns the number of entries handled.
func (r *Replicator) SyncOnce(ctx context.Context) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	state, err := r.State(ctx)
	if err != nil {
		return 0, err
	}
	entries, err := r.Pull(ctx, state.LastSCN, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	last := state.LastSCN
	var applyErr error
	handled := 0
	for i := range entries {
		if applyErr = r.apply(ctx, &entries[i]); applyErr != nil {
			break
		}
		last = entries[i].SCN
		handled++
	}
	if handled > 0 {
		r.opts.logger.Info().
			Str("dataset", r.cfg.DatasetID).
			Int("entries", handled).
			Int64("scn", last).
			Msg("vecsync applied")
	}
	return handled, applyErr
}

func (r *Replicator) apply(ctx context.Context, e *LogEntry) error {
	tx, err := r.replica.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := r.applyTx(ctx, tx, e); err != nil {
		return err
	}
	if err := r.saveState(ctx, tx, e.SCN); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Replicator) applyTx(ctx context.Context, tx *sql.Tx, e *LogEntry) error {
	switch e.Op {
	case OpDelete:
		return r.replica.RemoveTx(ctx, tx, e.DatasetID, e.DocumentID)
	case OpFull, OpDelta:
	default:
		return fmt.Errorf("vecsync: scn %d: unknown op %q", e.SCN, e.Op)
	}

	_, version, err := r.replica.GetTx(ctx, tx, e.DatasetID, e.DocumentID)
	if err != nil && !errors.Is(err, vector.ErrNotFound) {
		return err
	}
	if err == nil && e.Version <= version {
		r.opts.logger.Debug().Str("id", e.DocumentID).Uint64("version", e.Version).Int64("scn", e.SCN).Msg("vecsync skip")
		return nil
	}

	u := vector.Update{
		DatasetID: e.DatasetID,
		ID:        e.DocumentID,
		Version:   e.Version,
		Strategy:  embedding.StrategyFull,
		DType:     e.DType,
		Payload:   e.Payload,
		CreatedAt: e.CreatedAt,
	}
	if e.Op == OpDelta {
		u.Strategy = embedding.StrategyDelta
	}
	if _, err := r.replica.ApplyUpdateTx(ctx, tx, u); err != nil {
		if errors.Is(err, vector.ErrVersionConflict) {
			return fmt.Errorf("%w: scn %d: %w", ErrOutOfOrder, e.SCN, err)
		}
		return fmt.Errorf("vecsync: scn %d: %w", e.SCN, err)
	}
	return nil
}

// Run calls SyncOnce at most once per Config.Interval until ctx is done.
// Transient errors are logged and retried; ErrOutOfOrder stops the loop.
func (r *Replicator) Run(ctx context.Context) error {
	limiter := rate.NewLimiter(rate.Every(r.cfg.Interval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			// Wait fails early when the next token lies past the deadline.
			<-ctx.Done()
			return nil
		}
		_, err := r.SyncOnce(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrOutOfOrder):
			return err
		default:
			r.opts.logger.Warn().Err(err).Str("dataset", r.cfg.DatasetID).Msg("vecsync pass failed")
		}
	}
}

// SyncAll runs one SyncOnce per replicator concurrently and returns the
// total number of entries handled.
func SyncAll(ctx context.Context, replicators ...*Replicator) (int, error) {
	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range replicators {
		g.Go(func() error {
			n, err := r.SyncOnce(gctx)
			total.Add(int64(n))
			return err
		})
	}
	err := g.Wait()
	return int(total.Load()), err
}
