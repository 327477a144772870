package index

import (
	"fmt"
	"math"
	"sort"

	"github.com/viant/vec/search"
	"github.com/viant/vecdelta/embedding"
)

// Flat is a brute-force cosine index. Magnitudes are computed once on Add.
type Flat struct {
	dim  uint32
	ids  []string
	vecs []search.Float32s
	mags []float32
}

// NewFlat returns an empty index.
func NewFlat() *Flat { return &Flat{} }

func (f *Flat) Len() int { return len(f.ids) }

func (f *Flat) Add(id string, vec embedding.Vector) error {
	if err := vec.Validate(); err != nil {
		return err
	}
	if vec.Dim == 0 {
		return fmt.Errorf("index: %s has no elements", id)
	}
	if f.dim == 0 {
		f.dim = vec.Dim
	} else if vec.Dim != f.dim {
		return fmt.Errorf("%w: %s has dim %d, index %d", embedding.ErrDimensionMismatch, id, vec.Dim, f.dim)
	}
	values := search.Float32s(vec.Float32s())
	f.ids = append(f.ids, id)
	f.vecs = append(f.vecs, values)
	f.mags = append(f.mags, values.Magnitude())
	return nil
}

func (f *Flat) Query(query embedding.Vector, k int) ([]Match, error) {
	if len(f.ids) == 0 {
		return nil, nil
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if query.Dim != f.dim {
		return nil, fmt.Errorf("%w: query dim %d, index %d", embedding.ErrDimensionMismatch, query.Dim, f.dim)
	}
	q := search.Float32s(query.Float32s())
	qm := q.Magnitude()
	if qm == 0 {
		return nil, nil
	}
	matches := make([]Match, 0, len(f.ids))
	for i, v := range f.vecs {
		if f.mags[i] == 0 {
			continue
		}
		score := 1 - float64(cosineDistanceWithMagnitude(v, q, f.mags[i], qm))
		if math.IsNaN(score) {
			continue
		}
		matches = append(matches, Match{ID: f.ids[i], Score: score})
	}
	sort.SliceStable(matches, func(a, b int) bool { return matches[a].Score > matches[b].Score })
	if k > 0 && k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

var _ Index = (*Flat)(nil)
