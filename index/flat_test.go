package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/vecdelta/embedding"
)

func TestFlat_Query(t *testing.T) {
	idx := NewFlat()
	require.NoError(t, idx.Add("x", embedding.FromF32([]float32{1, 0})))
	require.NoError(t, idx.Add("y", embedding.FromF32([]float32{0, 1})))
	require.NoError(t, idx.Add("xy", embedding.FromF16([]float32{1, 1})))
	require.NoError(t, idx.Add("zero", embedding.FromF32([]float32{0, 0})))
	assert.Equal(t, 4, idx.Len())

	var testCases = []struct {
		description string
		query       []float32
		k           int
		expectIDs   []string
	}{
		{description: "top 1", query: []float32{2, 0.1}, k: 1, expectIDs: []string{"x"}},
		{description: "top 2", query: []float32{0.1, 2}, k: 2, expectIDs: []string{"y", "xy"}},
		{description: "all", query: []float32{1, 0}, k: 0, expectIDs: []string{"x", "xy", "y"}},
		{description: "zero query", query: []float32{0, 0}, k: 3, expectIDs: nil},
	}
	for _, testCase := range testCases {
		matches, err := idx.Query(embedding.FromF32(testCase.query), testCase.k)
		require.NoError(t, err, testCase.description)
		var ids []string
		for _, m := range matches {
			ids = append(ids, m.ID)
		}
		assert.Equal(t, testCase.expectIDs, ids, testCase.description)
	}

	matches, err := idx.Query(embedding.FromF32([]float32{1, 0}), 1)
	require.NoError(t, err)
	assert.InDelta(t, 1, matches[0].Score, 1e-6)
}

func TestFlat_Errors(t *testing.T) {
	idx := NewFlat()
	matches, err := idx.Query(embedding.FromF32([]float32{1}), 1)
	require.NoError(t, err)
	assert.Empty(t, matches)

	require.NoError(t, idx.Add("a", embedding.FromF32([]float32{1, 2})))
	assert.ErrorIs(t, idx.Add("b", embedding.FromF32([]float32{1, 2, 3})), embedding.ErrDimensionMismatch)
	assert.Error(t, idx.Add("c", embedding.FromF32(nil)))
	_, err = idx.Query(embedding.FromF32([]float32{1}), 1)
	assert.ErrorIs(t, err, embedding.ErrDimensionMismatch)
}
