package frame

import "fmt"

// Frame holds one schema's worth of columnar data: a fixed-length,
// parallel set of typed slices, one per column. Rows are ordered by Key.
// Frame is the unit series.Write accepts and series.Read returns; sync
// and gc never touch it directly.
type Frame struct {
	Schema  Schema
	columns map[string]any
	n       int
}

// New builds a Frame from already-typed column slices. Every column in
// schema must be present with a slice of matching type and identical
// length; New does not sort or validate ordering, it only validates
// shape (series.Write is the caller that enforces sortedness).
func New(schema Schema, columns map[string]any) (*Frame, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	n := -1
	for _, c := range schema.Columns {
		v, ok := columns[c.Name]
		if !ok {
			return nil, fmt.Errorf("frame: missing column %q", c.Name)
		}
		l, err := columnLen(c.DType, v)
		if err != nil {
			return nil, fmt.Errorf("frame: column %q: %w", c.Name, err)
		}
		if n == -1 {
			n = l
		} else if l != n {
			return nil, fmt.Errorf("frame: column %q has length %d, want %d", c.Name, l, n)
		}
	}
	if n == -1 {
		n = 0
	}
	out := make(map[string]any, len(columns))
	for k, v := range columns {
		out[k] = v
	}
	return &Frame{Schema: schema, columns: out, n: n}, nil
}

func columnLen(dt DType, v any) (int, error) {
	switch dt {
	case Int64:
		s, ok := v.([]int64)
		if !ok {
			return 0, fmt.Errorf("want []int64, got %T", v)
		}
		return len(s), nil
	case Float64:
		s, ok := v.([]float64)
		if !ok {
			return 0, fmt.Errorf("want []float64, got %T", v)
		}
		return len(s), nil
	case String:
		s, ok := v.([]string)
		if !ok {
			return 0, fmt.Errorf("want []string, got %T", v)
		}
		return len(s), nil
	case Bytes:
		s, ok := v.([][]byte)
		if !ok {
			return 0, fmt.Errorf("want [][]byte, got %T", v)
		}
		return len(s), nil
	default:
		return 0, fmt.Errorf("unknown dtype %v", dt)
	}
}

// Len is the row count.
func (f *Frame) Len() int { return f.n }

// Column returns the raw typed slice backing name, or nil if name is not
// a column of this frame's schema.
func (f *Frame) Column(name string) any { return f.columns[name] }

// At returns the value of column name at row i.
func (f *Frame) At(name string, i int) any {
	return scalarAt(f.columns[name], i)
}

func scalarAt(col any, i int) any {
	switch s := col.(type) {
	case []int64:
		return s[i]
	case []float64:
		return s[i]
	case []string:
		return s[i]
	case [][]byte:
		return s[i]
	default:
		panic(fmt.Sprintf("frame: unsupported column type %T", col))
	}
}

// Key returns row i's index tuple, in schema index-column order.
func (f *Frame) Key(i int) Key {
	idx := f.Schema.IndexColumns()
	k := make(Key, len(idx))
	for j, c := range idx {
		k[j] = scalarAt(f.columns[c.Name], i)
	}
	return k
}

// IsSorted reports whether rows are in non-decreasing key order.
// series.Write rejects a frame for which this is false (§4.C, edge case
// "unsorted write").
func (f *Frame) IsSorted() bool {
	for i := 1; i < f.n; i++ {
		if f.Key(i-1).Compare(f.Key(i)) > 0 {
			return false
		}
	}
	return true
}

// MinKey and MaxKey are the first and last row's keys. Both panic on an
// empty frame; callers check Len() first.
func (f *Frame) MinKey() Key { return f.Key(0) }
func (f *Frame) MaxKey() Key { return f.Key(f.n - 1) }

// Slice returns the half-open row range [start, end) as a new Frame
// sharing the same schema. It does not copy the underlying slices.
func (f *Frame) Slice(start, end int) *Frame {
	if start < 0 {
		start = 0
	}
	if end > f.n {
		end = f.n
	}
	if end < start {
		end = start
	}
	cols := make(map[string]any, len(f.columns))
	for name, col := range f.columns {
		cols[name] = sliceColumn(col, start, end)
	}
	return &Frame{Schema: f.Schema, columns: cols, n: end - start}
}

func sliceColumn(col any, start, end int) any {
	switch s := col.(type) {
	case []int64:
		return s[start:end]
	case []float64:
		return s[start:end]
	case []string:
		return s[start:end]
	case [][]byte:
		return s[start:end]
	default:
		panic(fmt.Sprintf("frame: unsupported column type %T", col))
	}
}

// RowRange returns the half-open index range [lo, hi) of rows whose key
// falls within [start, end]. Both bounds are inclusive endpoints on the
// key, matching the series.Read window semantics (§4.C).
func (f *Frame) RowRange(start, end Key) (lo, hi int) {
	lo = 0
	for lo < f.n && f.Key(lo).Compare(start) < 0 {
		lo++
	}
	hi = lo
	for hi < f.n && f.Key(hi).Compare(end) <= 0 {
		hi++
	}
	return lo, hi
}
