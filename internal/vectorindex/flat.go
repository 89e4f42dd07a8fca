// Package vectorindex implements a brute-force nearest-neighbour index over
// fixed-width vectors. An index is built once at ingestion time, frozen, and
// only read afterwards.
package vectorindex

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrFrozen is returned when rows are added after Freeze.
	ErrFrozen = errors.New("vector index is frozen")
	// ErrDimension is returned when a vector does not match the index width.
	ErrDimension = errors.New("vector dimension mismatch")
	// ErrEmpty is returned when searching an index with no rows.
	ErrEmpty = errors.New("vector index is empty")
)

// Flat stores vectors row-by-row and answers k-nearest-neighbour queries by
// exhaustive squared-L2 scan. Safe for concurrent readers once frozen.
type Flat struct {
	dim    int
	rows   [][]float64
	frozen bool
}

// NewFlat creates an empty index for vectors of the given width.
func NewFlat(dim int) *Flat {
	return &Flat{dim: dim}
}

// Add appends rows in order. Row numbers are assigned by insertion position.
func (f *Flat) Add(vecs ...[]float64) error {
	if f.frozen {
		return ErrFrozen
	}
	for _, v := range vecs {
		if len(v) != f.dim {
			return fmt.Errorf("%w: got %d, want %d", ErrDimension, len(v), f.dim)
		}
	}
	f.rows = append(f.rows, vecs...)
	return nil
}

// Freeze makes the index read-only. Search before Freeze is not supported.
func (f *Flat) Freeze() {
	f.frozen = true
}

// Size returns the number of stored rows.
func (f *Flat) Size() int {
	return len(f.rows)
}

// Dim returns the vector width the index was built for.
func (f *Flat) Dim() int {
	return f.dim
}

// Search returns the row numbers of the k vectors closest to query in
// ascending distance order, ties broken by row number. When the index holds
// fewer than k rows, all rows are returned.
func (f *Flat) Search(query []float64, k int) ([]int, error) {
	if len(f.rows) == 0 {
		return nil, ErrEmpty
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(query), f.dim)
	}
	if k <= 0 {
		return nil, fmt.Errorf("invalid k %d", k)
	}
	if k > len(f.rows) {
		k = len(f.rows)
	}

	type scored struct {
		row  int
		dist float64
	}
	candidates := make([]scored, len(f.rows))
	for i, row := range f.rows {
		candidates[i] = scored{row: i, dist: sqL2(query, row)}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].row < candidates[j].row
	})

	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = candidates[i].row
	}
	return out, nil
}

func sqL2(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
