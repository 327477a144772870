package vector

import (
	"database/sql"
)

// docs holds the latest materialised vector per document; doc_updates keeps
// every version as either a full vector or an encoded delta against the
// previous version.
const docsSchema = `
CREATE TABLE IF NOT EXISTS docs (
    dataset_id TEXT NOT NULL,
    id         TEXT NOT NULL,
    version    INTEGER NOT NULL,
    dtype      INTEGER NOT NULL,
    dim        INTEGER NOT NULL,
    embedding  BLOB,
    PRIMARY KEY(dataset_id, id)
);
CREATE TABLE IF NOT EXISTS doc_updates (
    dataset_id TEXT NOT NULL,
    id         TEXT NOT NULL,
    version    INTEGER NOT NULL,
    strategy   TEXT NOT NULL,
    dtype      INTEGER NOT NULL,
    dim        INTEGER NOT NULL,
    payload    BLOB NOT NULL,
    changes    INTEGER NOT NULL DEFAULT 0,
    drift      REAL NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY(dataset_id, id, version)
);
`

// EnsureSchema creates the docs and doc_updates tables in the provided
// database if they do not already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(docsSchema)
	return err
}
