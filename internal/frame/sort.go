package frame

import (
	"math"
	"sort"
)

// SortBy returns the frame ordered by a numeric column. The sort is stable so
// ties keep their input order. NaN values go last in either direction.
func (f *Frame) SortBy(name string, descending bool) (*Frame, error) {
	v, err := f.Numeric(name)
	if err != nil {
		return nil, err
	}

	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		x, y := v[idx[a]], v[idx[b]]
		if math.IsNaN(x) || math.IsNaN(y) {
			return !math.IsNaN(x) && math.IsNaN(y)
		}
		if descending {
			return x > y
		}
		return x < y
	})

	return f.Take(idx), nil
}
