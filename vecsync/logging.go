package vecsync

const (
	// DefaultLogTable is the upstream change-log table that captures per-version SCN events.
	DefaultLogTable = "vec_delta_log"

	// DefaultSeqTable stores the next SCN per dataset on the upstream database.
	DefaultSeqTable = "vec_dataset_scn"

	// DefaultStateTable stores the last applied SCN per dataset on a replica.
	DefaultStateTable = "vec_sync_state"
)

// LogTableDDL returns the DDL for the change log. Payload holds a frame
// produced by EncodeFrame.
func LogTableDDL() string {
	return `CREATE TABLE IF NOT EXISTS ` + DefaultLogTable + ` (
    dataset_id  TEXT NOT NULL,
    scn         INTEGER NOT NULL,
    op          TEXT NOT NULL,
    document_id TEXT NOT NULL,
    version     INTEGER NOT NULL DEFAULT 0,
    dtype       INTEGER NOT NULL DEFAULT 0,
    payload     BLOB,
    created_at  INTEGER NOT NULL,
    PRIMARY KEY(dataset_id, scn)
);`
}

// SeqTableDDL returns the DDL for tracking next SCN per dataset.
func SeqTableDDL() string {
	return `CREATE TABLE IF NOT EXISTS ` + DefaultSeqTable + ` (
    dataset_id TEXT PRIMARY KEY,
    next_scn   INTEGER NOT NULL
);`
}

// SyncStateDDL returns the DDL for the replica-side sync state.
func SyncStateDDL() string {
	return `CREATE TABLE IF NOT EXISTS ` + DefaultStateTable + ` (
    dataset_id TEXT PRIMARY KEY,
    last_scn   INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);`
}
