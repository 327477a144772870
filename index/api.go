package index

import "github.com/viant/vecdelta/embedding"

// Match is one query result. Higher Score means more similar.
type Match struct {
	ID    string
	Score float64
}

// Index defines a vector index built incrementally from (id, vector) pairs.
type Index interface {
	// Add inserts a vector. All vectors in an index share one dimension.
	Add(id string, vec embedding.Vector) error

	// Query returns up to k matches ordered by descending score. k <= 0
	// returns every scored vector.
	Query(query embedding.Vector, k int) ([]Match, error)

	// Len reports the number of indexed vectors.
	Len() int
}
