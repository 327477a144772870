// Package embedding defines typed embedding vectors and a compact delta
// codec between two vectors of the same shape:
//   - Vector: fixed-dimension buffer of F32 or F16 elements
//   - VectorDelta: ascending (index, value) changes computed by FromVectors
//   - Encode/Decode: fixed-width little-endian wire format
//   - Apply: rebuilds the target from a base without mutating it
//   - UpdateStrategy: choose between shipping a delta or the full vector
//
// All operations are pure and safe for concurrent use.
package embedding
