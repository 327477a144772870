// Package vector implements a versioned embedding store on SQLite. It
// includes:
//   - Store interface and SQLiteStore with per-document version history
//   - Schema helpers for the docs and doc_updates tables
//   - Replay of full and delta versions, compaction and nearest-neighbour
//     search over the latest vectors
//
// Each new version is kept either as a full vector or as an encoded
// embedding.VectorDelta against the previous version.
package vector
