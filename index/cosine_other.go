//go:build !arm64

package index

import "github.com/viant/vec/search"

// viant/vec exports the magnitude-cached cosine distance under a different
// name on non-arm64 platforms.
func cosineDistanceWithMagnitude(v, q search.Float32s, vm, qm float32) float32 {
	return v.CosineDistanceWithMagnitudesNeon(q, vm, qm)
}
