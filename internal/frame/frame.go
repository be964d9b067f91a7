// Package frame is a small column-oriented table used to pass tabular data
// between pipeline stages. Frames are immutable: every method that adds,
// replaces or reorders columns returns a new Frame and leaves the receiver as is.
package frame

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/clv/backend/internal/contracts"
)

// Kind is the element type of a column
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindTime
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// Column is a named, typed vector. Exactly one of the value slices is set.
type Column struct {
	Name string
	Kind Kind

	ints    []int64
	floats  []float64
	strings []string
	times   []time.Time
}

// IntColumn builds an int64 column (the values are copied)
func IntColumn(name string, v []int64) Column {
	return Column{Name: name, Kind: KindInt, ints: append([]int64(nil), v...)}
}

// FloatColumn builds a float64 column (the values are copied)
func FloatColumn(name string, v []float64) Column {
	return Column{Name: name, Kind: KindFloat, floats: append([]float64(nil), v...)}
}

// StringColumn builds a string column (the values are copied)
func StringColumn(name string, v []string) Column {
	return Column{Name: name, Kind: KindString, strings: append([]string(nil), v...)}
}

// TimeColumn builds a time column (the values are copied)
func TimeColumn(name string, v []time.Time) Column {
	return Column{Name: name, Kind: KindTime, times: append([]time.Time(nil), v...)}
}

// Len returns the number of values
func (c Column) Len() int {
	switch c.Kind {
	case KindInt:
		return len(c.ints)
	case KindFloat:
		return len(c.floats)
	case KindString:
		return len(c.strings)
	default:
		return len(c.times)
	}
}

// Value returns the i-th value as int64, float64, string or time.Time
func (c Column) Value(i int) interface{} {
	switch c.Kind {
	case KindInt:
		return c.ints[i]
	case KindFloat:
		return c.floats[i]
	case KindString:
		return c.strings[i]
	default:
		return c.times[i]
	}
}

func (c Column) take(idx []int) Column {
	out := Column{Name: c.Name, Kind: c.Kind}
	switch c.Kind {
	case KindInt:
		out.ints = make([]int64, len(idx))
		for j, i := range idx {
			out.ints[j] = c.ints[i]
		}
	case KindFloat:
		out.floats = make([]float64, len(idx))
		for j, i := range idx {
			out.floats[j] = c.floats[i]
		}
	case KindString:
		out.strings = make([]string, len(idx))
		for j, i := range idx {
			out.strings[j] = c.strings[i]
		}
	default:
		out.times = make([]time.Time, len(idx))
		for j, i := range idx {
			out.times[j] = c.times[i]
		}
	}
	return out
}

// Frame is an ordered set of equal-length columns
type Frame struct {
	names []string
	cols  map[string]Column
	rows  int
}

// New builds a frame from columns. All columns must have the same length
// and distinct names.
func New(cols ...Column) (*Frame, error) {
	f := &Frame{cols: make(map[string]Column, len(cols))}
	for i, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: column %d has no name", contracts.ErrInvalidValue, i)
		}
		if _, dup := f.cols[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", contracts.ErrInvalidValue, c.Name)
		}
		if i == 0 {
			f.rows = c.Len()
		} else if c.Len() != f.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, want %d",
				contracts.ErrInvalidValue, c.Name, c.Len(), f.rows)
		}
		f.names = append(f.names, c.Name)
		f.cols[c.Name] = c
	}
	return f, nil
}

// MustNew is New that panics on error, for literals in tests and examples
func MustNew(cols ...Column) *Frame {
	f, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return f
}

// Len returns the number of rows
func (f *Frame) Len() int {
	return f.rows
}

// Names returns the column names in order
func (f *Frame) Names() []string {
	return append([]string(nil), f.names...)
}

// Has reports whether the frame has a column
func (f *Frame) Has(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Require returns a missing-column error for the first absent name
func (f *Frame) Require(names ...string) error {
	for _, n := range names {
		if !f.Has(n) {
			return contracts.MissingColumn(n)
		}
	}
	return nil
}

// Column returns a column by name
func (f *Frame) Column(name string) (Column, bool) {
	c, ok := f.cols[name]
	return c, ok
}

// NumericNames returns the int and float column names in order
func (f *Frame) NumericNames() []string {
	var out []string
	for _, n := range f.names {
		if k := f.cols[n].Kind; k == KindInt || k == KindFloat {
			out = append(out, n)
		}
	}
	return out
}

func (f *Frame) lookup(name string, kinds ...Kind) (Column, error) {
	c, ok := f.cols[name]
	if !ok {
		return Column{}, contracts.MissingColumn(name)
	}
	for _, k := range kinds {
		if c.Kind == k {
			return c, nil
		}
	}
	return Column{}, fmt.Errorf("%w: column %q is %s", contracts.ErrInvalidValue, name, c.Kind)
}

// Numeric returns a column as float64. Int columns are converted.
// The returned slice must not be modified.
func (f *Frame) Numeric(name string) ([]float64, error) {
	c, err := f.lookup(name, KindFloat, KindInt)
	if err != nil {
		return nil, err
	}
	if c.Kind == KindFloat {
		return c.floats, nil
	}
	out := make([]float64, len(c.ints))
	for i, v := range c.ints {
		out[i] = float64(v)
	}
	return out, nil
}

// Ints returns an int64 column. The returned slice must not be modified.
func (f *Frame) Ints(name string) ([]int64, error) {
	c, err := f.lookup(name, KindInt)
	if err != nil {
		return nil, err
	}
	return c.ints, nil
}

// Strings returns a string column. The returned slice must not be modified.
func (f *Frame) Strings(name string) ([]string, error) {
	c, err := f.lookup(name, KindString)
	if err != nil {
		return nil, err
	}
	return c.strings, nil
}

// Times returns a time column. The returned slice must not be modified.
func (f *Frame) Times(name string) ([]time.Time, error) {
	c, err := f.lookup(name, KindTime)
	if err != nil {
		return nil, err
	}
	return c.times, nil
}

// With returns a new frame with the column appended, or replaced in place
// if a column of that name already exists.
func (f *Frame) With(c Column) (*Frame, error) {
	if c.Len() != f.rows && len(f.names) > 0 {
		return nil, fmt.Errorf("%w: column %q has %d rows, want %d",
			contracts.ErrInvalidValue, c.Name, c.Len(), f.rows)
	}
	out := &Frame{
		names: append([]string(nil), f.names...),
		cols:  make(map[string]Column, len(f.cols)+1),
		rows:  c.Len(),
	}
	for k, v := range f.cols {
		out.cols[k] = v
	}
	if _, exists := out.cols[c.Name]; !exists {
		out.names = append(out.names, c.Name)
	}
	out.cols[c.Name] = c
	return out, nil
}

// WithFloats is With(FloatColumn(name, v))
func (f *Frame) WithFloats(name string, v []float64) (*Frame, error) {
	return f.With(FloatColumn(name, v))
}

// WithStrings is With(StringColumn(name, v))
func (f *Frame) WithStrings(name string, v []string) (*Frame, error) {
	return f.With(StringColumn(name, v))
}

// Select returns a frame with only the named columns, in the given order
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]Column, 0, len(names))
	for _, n := range names {
		c, ok := f.cols[n]
		if !ok {
			return nil, contracts.MissingColumn(n)
		}
		cols = append(cols, c)
	}
	return New(cols...)
}

// Take returns the rows at idx, in that order
func (f *Frame) Take(idx []int) *Frame {
	out := &Frame{
		names: append([]string(nil), f.names...),
		cols:  make(map[string]Column, len(f.cols)),
		rows:  len(idx),
	}
	for _, n := range f.names {
		out.cols[n] = f.cols[n].take(idx)
	}
	return out
}

// Value returns the cell at (column, row)
func (f *Frame) Value(name string, row int) (interface{}, error) {
	c, ok := f.cols[name]
	if !ok {
		return nil, contracts.MissingColumn(name)
	}
	return c.Value(row), nil
}

// LeftJoin keeps every row of left and attaches the non-key columns of right
// matched on an int key column. Right keys must be unique. Unmatched numeric
// cells become NaN, unmatched string cells "" and unmatched times the zero time.
// Right columns named like a left column replace it.
func LeftJoin(left, right *Frame, key string) (*Frame, error) {
	lk, err := left.Ints(key)
	if err != nil {
		return nil, fmt.Errorf("left: %w", err)
	}
	rk, err := right.Ints(key)
	if err != nil {
		return nil, fmt.Errorf("right: %w", err)
	}

	pos := make(map[int64]int, len(rk))
	for i, k := range rk {
		if _, dup := pos[k]; dup {
			return nil, fmt.Errorf("%w: duplicate key %d in right frame", contracts.ErrInvalidValue, k)
		}
		pos[k] = i
	}

	match := make([]int, len(lk))
	for i, k := range lk {
		if j, ok := pos[k]; ok {
			match[i] = j
		} else {
			match[i] = -1
		}
	}

	out := left
	for _, name := range right.names {
		if name == key {
			continue
		}
		c := right.cols[name]
		var joined Column
		switch c.Kind {
		case KindInt, KindFloat:
			src, _ := right.Numeric(name)
			v := make([]float64, len(match))
			for i, j := range match {
				if j < 0 {
					v[i] = math.NaN()
				} else {
					v[i] = src[j]
				}
			}
			joined = FloatColumn(name, v)
		case KindString:
			v := make([]string, len(match))
			for i, j := range match {
				if j >= 0 {
					v[i] = c.strings[j]
				}
			}
			joined = StringColumn(name, v)
		default:
			v := make([]time.Time, len(match))
			for i, j := range match {
				if j >= 0 {
					v[i] = c.times[j]
				}
			}
			joined = TimeColumn(name, v)
		}
		if out, err = out.With(joined); err != nil {
			return nil, err
		}
	}
	return out, nil
}
