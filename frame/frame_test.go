package frame

import "testing"

func testSchema() Schema {
	return Schema{Columns: []ColumnSpec{
		{Name: "ts", DType: Int64, Index: true},
		{Name: "value", DType: Float64, Index: false},
		{Name: "tag", DType: String, Index: false},
	}}
}

func mustFrame(t *testing.T, ts []int64, values []float64, tags []string) *Frame {
	t.Helper()
	f, err := New(testSchema(), map[string]any{
		"ts":    ts,
		"value": values,
		"tag":   tags,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func TestIsSorted(t *testing.T) {
	f := mustFrame(t, []int64{1, 2, 3}, []float64{1, 2, 3}, []string{"a", "b", "c"})
	if !f.IsSorted() {
		t.Fatalf("expected sorted frame to report sorted")
	}
	g := mustFrame(t, []int64{2, 1}, []float64{1, 2}, []string{"a", "b"})
	if g.IsSorted() {
		t.Fatalf("expected unsorted frame to report unsorted")
	}
}

func TestSliceAndRowRange(t *testing.T) {
	f := mustFrame(t, []int64{10, 20, 30, 40}, []float64{1, 2, 3, 4}, []string{"a", "b", "c", "d"})
	lo, hi := f.RowRange(Key{int64(20)}, Key{int64(30)})
	sub := f.Slice(lo, hi)
	if sub.Len() != 2 {
		t.Fatalf("RowRange/Slice length = %d, want 2", sub.Len())
	}
	if sub.At("ts", 0).(int64) != 20 || sub.At("ts", 1).(int64) != 30 {
		t.Fatalf("unexpected slice contents: %v, %v", sub.At("ts", 0), sub.At("ts", 1))
	}
}

func TestMergeLastWriterWins(t *testing.T) {
	older := mustFrame(t, []int64{1, 2, 3}, []float64{10, 20, 30}, []string{"o", "o", "o"})
	newer := mustFrame(t, []int64{2, 4}, []float64{200, 400}, []string{"n", "n"})
	merged, err := Merge(testSchema(), []*Frame{older, newer})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.Len() != 4 {
		t.Fatalf("Merge length = %d, want 4", merged.Len())
	}
	want := map[int64]string{1: "o", 2: "n", 3: "o", 4: "n"}
	for i := 0; i < merged.Len(); i++ {
		ts := merged.At("ts", i).(int64)
		if tag := merged.At("tag", i).(string); tag != want[ts] {
			t.Fatalf("ts=%d tag=%q, want %q", ts, tag, want[ts])
		}
	}
	if !merged.IsSorted() {
		t.Fatalf("merged frame must be sorted by key")
	}
}

func TestSimpleCodecRoundTrip(t *testing.T) {
	f := mustFrame(t, []int64{1, 2, 3}, []float64{1.5, -2.25, 0}, []string{"x", "", "zzz"})
	data, err := SimpleCodec{}.Encode(f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := SimpleCodec{}.Decode(testSchema(), data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Len() != f.Len() {
		t.Fatalf("round trip length = %d, want %d", got.Len(), f.Len())
	}
	for i := 0; i < f.Len(); i++ {
		if got.At("ts", i) != f.At("ts", i) || got.At("value", i) != f.At("value", i) || got.At("tag", i) != f.At("tag", i) {
			t.Fatalf("row %d mismatch: got (%v,%v,%v), want (%v,%v,%v)", i,
				got.At("ts", i), got.At("value", i), got.At("tag", i),
				f.At("ts", i), f.At("value", i), f.At("tag", i))
		}
	}
}

func TestSimpleCodecDeterministic(t *testing.T) {
	f := mustFrame(t, []int64{1, 2}, []float64{1, 2}, []string{"a", "b"})
	a, err := SimpleCodec{}.Encode(f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := SimpleCodec{}.Encode(f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("encoding is not deterministic")
	}
}
