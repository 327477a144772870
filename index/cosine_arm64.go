//go:build arm64

package index

import "github.com/viant/vec/search"

func cosineDistanceWithMagnitude(v, q search.Float32s, vm, qm float32) float32 {
	return v.CosineDistanceWithMagnitude(q, vm, qm)
}
