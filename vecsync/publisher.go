package vecsync

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/viant/vecdelta/embedding"
	"github.com/viant/vecdelta/vector"
)

// Option configures a Publisher or Replicator.
type Option func(*options)

type options struct {
	logger      zerolog.Logger
	compression Compression
	now         func() time.Time
}

func newOptions(opts []Option) options {
	o := options{logger: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger. Default discards output.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithCompression sets the frame compression used by a Publisher.
func WithCompression(c Compression) Option {
	return func(o *options) { o.compression = c }
}

// Publisher appends store changes to the upstream change log. Register it
// on the store with vector.WithHook so every version is logged in the same
// transaction that writes it.
type Publisher struct {
	db   *sql.DB
	opts options
}

// NewPublisher creates the log and sequence tables in db if needed.
func NewPublisher(db *sql.DB, opts ...Option) (*Publisher, error) {
	if db == nil {
		return nil, fmt.Errorf("vecsync: db is nil")
	}
	for _, ddl := range []string{LogTableDDL(), SeqTableDDL()} {
		if _, err := db.Exec(ddl); err != nil {
			return nil, err
		}
	}
	return &Publisher{db: db, opts: newOptions(opts)}, nil
}

// OnUpdate implements vector.Hook.
func (p *Publisher) OnUpdate(ctx context.Context, tx *sql.Tx, u *vector.Update) error {
	op := OpFull
	if u.Strategy == embedding.StrategyDelta {
		op = OpDelta
	}
	return p.appendTx(ctx, tx, &LogEntry{
		DatasetID:  u.DatasetID,
		Op:         op,
		DocumentID: u.ID,
		Version:    u.Version,
		DType:      u.DType,
		Payload:    u.Payload,
		CreatedAt:  u.CreatedAt,
	})
}

// OnRemove implements vector.Hook.
func (p *Publisher) OnRemove(ctx context.Context, tx *sql.Tx, datasetID, id string) error {
	return p.appendTx(ctx, tx, &LogEntry{DatasetID: datasetID, Op: OpDelete, DocumentID: id})
}

// Append writes entry in its own transaction and sets entry.SCN.
func (p *Publisher) Append(ctx context.Context, entry *LogEntry) error {
	if ctx == nil {
		ctx = context.Background()
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := p.appendTx(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *Publisher) appendTx(ctx context.Context, tx *sql.Tx, entry *LogEntry) error {
	if entry.DatasetID == "" || entry.DocumentID == "" {
		return fmt.Errorf("vecsync: log entry requires dataset and document id")
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO `+DefaultSeqTable+`(dataset_id, next_scn)
VALUES (?, 1)
ON CONFLICT(dataset_id) DO UPDATE SET next_scn = next_scn + 1`, entry.DatasetID); err != nil {
		return err
	}
	if err := tx.QueryRowContext(ctx, `SELECT next_scn FROM `+DefaultSeqTable+` WHERE dataset_id = ?`, entry.DatasetID).Scan(&entry.SCN); err != nil {
		return err
	}
	frame, err := EncodeFrame(entry.Payload, p.opts.compression)
	if err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = p.opts.now().UTC()
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO `+DefaultLogTable+`(dataset_id, scn, op, document_id, version, dtype, payload, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.DatasetID, entry.SCN, string(entry.Op), entry.DocumentID, entry.Version, uint8(entry.DType), frame, entry.CreatedAt.UnixNano()); err != nil {
		return err
	}
	p.opts.logger.Debug().
		Str("dataset", entry.DatasetID).
		Str("id", entry.DocumentID).
		Int64("scn", entry.SCN).
		Str("op", string(entry.Op)).
		Int("payload", len(entry.Payload)).
		Int("frame", len(frame)).
		Msg("vecsync append")
	return nil
}

// ReadLog returns up to limit entries of a dataset with SCN greater than
// afterSCN, in SCN order, with payloads unframed.
func ReadLog(ctx context.Context, db *sql.DB, datasetID string, afterSCN int64, limit int) ([]LogEntry, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	rows, err := db.QueryContext(ctx, `SELECT dataset_id, scn, op, document_id, version, dtype, payload, created_at
FROM `+DefaultLogTable+` WHERE dataset_id = ? AND scn > ? ORDER BY scn LIMIT ?`, datasetID, afterSCN, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var (
			e       LogEntry
			op      string
			dtype   uint8
			frame   []byte
			created int64
		)
		if err := rows.Scan(&e.DatasetID, &e.SCN, &op, &e.DocumentID, &e.Version, &dtype, &frame, &created); err != nil {
			return nil, err
		}
		if e.Payload, err = DecodeFrame(frame); err != nil {
			return nil, fmt.Errorf("vecsync: scn %d: %w", e.SCN, err)
		}
		e.Op = Op(op)
		e.DType = embedding.DType(dtype)
		e.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ vector.Hook = (*Publisher)(nil)
