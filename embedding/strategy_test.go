package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChooseStrategy(t *testing.T) {
	small := &VectorDelta{Changes: []DeltaChange{{Index: 1}, {Index: 3}}}

	// 2 changes encode to 28 bytes; a 5 x f32 vector is 20 bytes.
	assert.Equal(t, StrategyFull, ChooseStrategy(small, 5, StrategyAuto))
	assert.Equal(t, StrategyDelta, ChooseStrategy(small, 100, StrategyAuto))
	assert.Equal(t, StrategyDelta, ChooseStrategy(small, 5, StrategyDelta))
	assert.Equal(t, StrategyFull, ChooseStrategy(small, 100, StrategyFull))
}

func TestParseUpdateStrategy(t *testing.T) {
	for in, want := range map[string]UpdateStrategy{"": StrategyAuto, "AUTO": StrategyAuto, "full": StrategyFull, " delta ": StrategyDelta} {
		got, err := ParseUpdateStrategy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
		if in != "" {
			assert.Equal(t, want.String(), got.String())
		}
	}
	_, err := ParseUpdateStrategy("sometimes")
	assert.Error(t, err)
}

func TestParseDType(t *testing.T) {
	d, err := ParseDType("F16")
	require.NoError(t, err)
	assert.Equal(t, F16, d)
	assert.Equal(t, "f16", d.String())
	d, err = ParseDType("")
	require.NoError(t, err)
	assert.Equal(t, F32, d)
	_, err = ParseDType("int8")
	assert.Error(t, err)
}
