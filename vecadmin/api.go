package vecadmin

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/viant/vecdelta/vector"
	"modernc.org/sqlite/vtab"
)

// Module provides administrative operations on the versioned store via a
// virtual table.
// Usage:
//
//	CREATE VIRTUAL TABLE vec_admin USING vec_admin(op);
//	SELECT op FROM vec_admin WHERE op MATCH 'compact:docs';  -- 'compacted:<n>'
//	SELECT op FROM vec_admin WHERE op MATCH 'stats:docs';    -- one row per counter
//
// A bare dataset name is treated as compact.
type Module struct{ db *sql.DB }

type Table struct{ db *sql.DB }

type Cursor struct {
	table *Table
	rows  []string
	pos   int
}

// Register installs the vec_admin module. Registering twice is not an error.
func Register(db *sql.DB) error {
	if err := vtab.RegisterModule(db, "vec_admin", &Module{db: db}); err != nil {
		if !strings.Contains(err.Error(), "already registered") {
			return err
		}
	}
	return nil
}

func (m *Module) Create(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.Connect(ctx, args)
}

func (m *Module) Connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("vec_admin: need at least 3 args")
	}
	if err := ctx.Declare(fmt.Sprintf("CREATE TABLE %s(op)", args[2])); err != nil {
		return nil, err
	}
	return &Table{db: m.db}, nil
}

func (t *Table) BestIndex(info *vtab.IndexInfo) error {
	for i := range info.Constraints {
		c := &info.Constraints[i]
		if !c.Usable {
			continue
		}
		if c.Column == 0 && c.Op == vtab.OpMATCH {
			c.ArgIndex = 1
			info.IdxNum = 1
			break
		}
	}
	return nil
}

func (t *Table) Open() (vtab.Cursor, error) { return &Cursor{table: t}, nil }
func (t *Table) Disconnect() error { return nil }
func (t *Table) Destroy() error { return nil }

func (c *Cursor) Filter(idxNum int, idxStr string, vals []vtab.Value) error {
	c.rows = nil
	c.pos = 0
	if idxNum != 1 || len(vals) == 0 || vals[0] == nil {
		return nil
	}
	command, ok := vals[0].(string)
	if !ok {
		return fmt.Errorf("vec_admin: MATCH expects a TEXT command")
	}
	rows, err := Exec(context.Background(), c.table.db, command)
	if err != nil {
		return err
	}
	c.rows = rows
	return nil
}

func (c *Cursor) Next() error {
	if c.pos < len(c.rows) {
		c.pos++
	}
	return nil
}

func (c *Cursor) Eof() bool { return c.pos >= len(c.rows) }

func (c *Cursor) Column(col int) (vtab.Value, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil, fmt.Errorf("vec_admin: Column out of range")
	}
	if col == 0 {
		return c.rows[c.pos], nil
	}
	return nil, nil
}

func (c *Cursor) Rowid() (int64, error) { return int64(c.pos + 1), nil }

func (c *Cursor) Close() error {
	c.rows = nil
	c.pos = 0
	return nil
}

// Exec runs an admin command of the form "<op>:<dataset>" and returns the
// result rows. Supported ops are compact and stats.
func Exec(ctx context.Context, db *sql.DB, command string) ([]string, error) {
	op, dataset, found := strings.Cut(strings.TrimSpace(command), ":")
	if !found {
		op, dataset = "compact", op
	}
	if dataset == "" {
		return nil, fmt.Errorf("vec_admin: %q missing dataset", command)
	}
	store, err := vector.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(op) {
	case "compact":
		n, err := store.Compact(ctx, dataset)
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("compacted:%d", n)}, nil
	case "stats":
		st, err := store.Stats(ctx, dataset)
		if err != nil {
			return nil, err
		}
		return []string{
			fmt.Sprintf("docs:%d", st.Docs),
			fmt.Sprintf("updates:%d", st.Updates),
			fmt.Sprintf("deltas:%d", st.Deltas),
			fmt.Sprintf("bytes:%d", st.PayloadBytes),
		}, nil
	}
	return nil, fmt.Errorf("vec_admin: unknown op %q", op)
}
