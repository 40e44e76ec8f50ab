package frame

import (
	"fmt"
	"sort"
	"strings"
)

type rowRef struct {
	frame *Frame
	row   int
	rank  int
}

// Merge combines frames sharing one schema into a single, key-sorted
// Frame. frames must be supplied oldest to newest: where two rows share
// a key, the row from the later frame in the slice wins (§4.C, "later
// writes shadow earlier ones for identical keys"). Within a single
// frame, a later row at the same key also wins over an earlier one.
func Merge(schema Schema, frames []*Frame) (*Frame, error) {
	for _, f := range frames {
		if !schema.Equal(f.Schema) {
			return nil, fmt.Errorf("frame: merge schema mismatch")
		}
	}
	winners := make(map[string]rowRef)
	for rank, f := range frames {
		for i := 0; i < f.Len(); i++ {
			ks := keyString(f.Key(i))
			winners[ks] = rowRef{frame: f, row: i, rank: rank*1_000_000_000 + i}
		}
	}
	if len(winners) == 0 {
		return New(schema, emptyColumns(schema))
	}
	refs := make([]rowRef, 0, len(winners))
	for _, r := range winners {
		refs = append(refs, r)
	}
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].frame.Key(refs[i].row).Compare(refs[j].frame.Key(refs[j].row)) < 0
	})
	b := newBuilder(schema, len(refs))
	for _, r := range refs {
		b.appendRow(r.frame, r.row)
	}
	return b.build()
}

func keyString(k Key) string {
	var sb strings.Builder
	for _, v := range k {
		fmt.Fprintf(&sb, "%T:%v\x00", v, v)
	}
	return sb.String()
}

func emptyColumns(schema Schema) map[string]any {
	cols := make(map[string]any, len(schema.Columns))
	for _, c := range schema.Columns {
		switch c.DType {
		case Int64:
			cols[c.Name] = []int64{}
		case Float64:
			cols[c.Name] = []float64{}
		case String:
			cols[c.Name] = []string{}
		case Bytes:
			cols[c.Name] = [][]byte{}
		}
	}
	return cols
}

// builder accumulates rows column by column; used by Merge and by
// codec decoders.
type builder struct {
	schema Schema
	i64    map[string][]int64
	f64    map[string][]float64
	str    map[string][]string
	byt    map[string][][]byte
}

func newBuilder(schema Schema, capHint int) *builder {
	b := &builder{
		schema: schema,
		i64:    make(map[string][]int64),
		f64:    make(map[string][]float64),
		str:    make(map[string][]string),
		byt:    make(map[string][][]byte),
	}
	for _, c := range schema.Columns {
		switch c.DType {
		case Int64:
			b.i64[c.Name] = make([]int64, 0, capHint)
		case Float64:
			b.f64[c.Name] = make([]float64, 0, capHint)
		case String:
			b.str[c.Name] = make([]string, 0, capHint)
		case Bytes:
			b.byt[c.Name] = make([][]byte, 0, capHint)
		}
	}
	return b
}

func (b *builder) appendRow(f *Frame, row int) {
	for _, c := range b.schema.Columns {
		v := f.At(c.Name, row)
		switch c.DType {
		case Int64:
			b.i64[c.Name] = append(b.i64[c.Name], v.(int64))
		case Float64:
			b.f64[c.Name] = append(b.f64[c.Name], v.(float64))
		case String:
			b.str[c.Name] = append(b.str[c.Name], v.(string))
		case Bytes:
			b.byt[c.Name] = append(b.byt[c.Name], v.([]byte))
		}
	}
}

func (b *builder) appendScalar(name string, dt DType, v any) {
	switch dt {
	case Int64:
		b.i64[name] = append(b.i64[name], v.(int64))
	case Float64:
		b.f64[name] = append(b.f64[name], v.(float64))
	case String:
		b.str[name] = append(b.str[name], v.(string))
	case Bytes:
		b.byt[name] = append(b.byt[name], v.([]byte))
	}
}

func (b *builder) build() (*Frame, error) {
	cols := make(map[string]any, len(b.schema.Columns))
	for _, c := range b.schema.Columns {
		switch c.DType {
		case Int64:
			cols[c.Name] = b.i64[c.Name]
		case Float64:
			cols[c.Name] = b.f64[c.Name]
		case String:
			cols[c.Name] = b.str[c.Name]
		case Bytes:
			cols[c.Name] = b.byt[c.Name]
		}
	}
	return New(b.schema, cols)
}
