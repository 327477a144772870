package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestOpenInMemory verifies that we can open an in-memory SQLite database
// using the modernc.org/sqlite driver and execute a trivial statement.
func TestOpenInMemory(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("CREATE TABLE t(x INTEGER)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO t(x) VALUES (1),(2),(3)")
	require.NoError(t, err)
}
