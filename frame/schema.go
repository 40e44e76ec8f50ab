// Package frame declares the collaborator contract for columnar frames:
// the core only needs a frame to carry typed columns and to serialize to
// and deserialize from opaque, canonically-encoded bytes. Real columnar
// codecs, aggregations, and joins are out of scope (§1); SimpleCodec below
// is a reference implementation sufficient to exercise that contract.
package frame

import "fmt"

// DType is a column's value type.
type DType int

const (
	Int64 DType = iota
	Float64
	String
	Bytes
)

func (d DType) String() string {
	switch d {
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case String:
		return "string"
	case Bytes:
		return "bytes"
	default:
		return fmt.Sprintf("DType(%d)", int(d))
	}
}

// ColumnSpec names one column and its type, and marks whether it
// participates in the row ordering (the index).
type ColumnSpec struct {
	Name  string
	DType DType
	Index bool
}

// Schema is an ordered list of columns. At least one column must be an
// index column; rows are ordered by the tuple of index columns in
// declaration order.
type Schema struct {
	Columns []ColumnSpec
}

// KVSchema is the two-column (label, meta) layout used by the registry:
// label is the sole index column, meta carries opaque bytes.
func KVSchema() Schema {
	return Schema{Columns: []ColumnSpec{
		{Name: "label", DType: String, Index: true},
		{Name: "meta", DType: Bytes, Index: false},
	}}
}

// IndexColumns returns the columns that make up the row ordering, in
// declaration order.
func (s Schema) IndexColumns() []ColumnSpec {
	var out []ColumnSpec
	for _, c := range s.Columns {
		if c.Index {
			out = append(out, c)
		}
	}
	return out
}

// ValueColumns returns the non-index columns.
func (s Schema) ValueColumns() []ColumnSpec {
	var out []ColumnSpec
	for _, c := range s.Columns {
		if !c.Index {
			out = append(out, c)
		}
	}
	return out
}

// Validate reports whether the schema has at least one index column and
// no duplicate column names.
func (s Schema) Validate() error {
	if len(s.IndexColumns()) == 0 {
		return fmt.Errorf("frame: schema has no index column")
	}
	seen := make(map[string]struct{}, len(s.Columns))
	for _, c := range s.Columns {
		if _, ok := seen[c.Name]; ok {
			return fmt.Errorf("frame: duplicate column %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// Equal reports structural equality: same columns, same order, same
// types, same index flags. Sync refuses to proceed when schemas differ
// (§4.E, IncompatibleSchema).
func (s Schema) Equal(other Schema) bool {
	if len(s.Columns) != len(other.Columns) {
		return false
	}
	for i, c := range s.Columns {
		o := other.Columns[i]
		if c.Name != o.Name || c.DType != o.DType || c.Index != o.Index {
			return false
		}
	}
	return true
}

func (s Schema) column(name string) (ColumnSpec, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}
