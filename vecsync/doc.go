// Package vecsync replicates versioned embeddings through an SCN-ordered
// change log. Upstream, a Publisher hooks into vector.SQLiteStore and
// appends each new version (full vector or encoded delta) to
// vec_delta_log inside the writing transaction. Downstream, a Replicator
// pulls entries after its last applied SCN and applies them to a local
// replica store. Payloads are framed with optional LZ4 or ZSTD compression.
package vecsync
