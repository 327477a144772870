package embedding

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestSharedInputsConcurrentUse(t *testing.T) {
	base := FromF32([]float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8})
	baseSnapshot := append([]byte(nil), base.Data...)

	targets := make([]Vector, 16)
	for i := range targets {
		values := base.Float32s()
		values[i%len(values)] = float32(i + 10)
		targets[i] = FromF32(values)
	}
	shared, err := FromVectors(base, targets[0], 3)
	require.NoError(t, err)
	sharedChanges := append([]DeltaChange(nil), shared.Changes...)

	var g errgroup.Group
	for i, target := range targets {
		g.Go(func() error {
			for n := 0; n < 50; n++ {
				delta, err := FromVectors(base, target, uint64(i))
				if err != nil {
					return err
				}
				encoded, err := delta.Encode()
				if err != nil {
					return err
				}
				decoded, err := Decode(encoded)
				if err != nil {
					return err
				}
				got, err := decoded.Apply(base)
				if err != nil {
					return err
				}
				if !bytes.Equal(got.Data, target.Data) {
					return fmt.Errorf("target %d: applied vector differs", i)
				}
				if _, err := shared.Apply(base); err != nil {
					return err
				}
				if _, err := shared.Encode(); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, baseSnapshot, base.Data, "base must not be mutated")
	assert.Equal(t, sharedChanges, shared.Changes, "shared delta must not be mutated")
}
