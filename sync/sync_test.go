package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/vistore/vistore/frame"
	"github.com/vistore/vistore/pod/memory"
	"github.com/vistore/vistore/repo"
	"github.com/vistore/vistore/series"
)

func testSchema() frame.Schema {
	return frame.Schema{Columns: []frame.ColumnSpec{
		{Name: "timestamp", DType: frame.Int64, Index: true},
		{Name: "value", DType: frame.Float64, Index: false},
	}}
}

func mustFrame(t *testing.T, ts []int64, values []float64) *frame.Frame {
	t.Helper()
	f, err := frame.New(testSchema(), map[string]any{"timestamp": ts, "value": values})
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	return f
}

func TestPullReplicatesCollectionData(t *testing.T) {
	ctx := context.Background()
	remote := repo.New(memory.New())
	self := repo.New(memory.New())

	clct, err := remote.CreateCollection(ctx, testSchema(), "temperature")
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	s, err := clct.CreateSeries(ctx, testSchema(), "Brussels")
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	if _, err := s.Write(ctx, mustFrame(t, []int64{1, 2, 3}, []float64{11, 12, 13}), "writer"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := Pull(ctx, self, remote, 0); err != nil {
		t.Fatalf("Pull: %v", err)
	}

	localClct, err := self.Collection(ctx, "temperature")
	if err != nil {
		t.Fatalf("Collection after pull: %v", err)
	}
	localSeries, err := localClct.Series(ctx, "Brussels")
	if err != nil {
		t.Fatalf("Series after pull: %v", err)
	}
	got, err := localSeries.Read(ctx, series.ReadOptions{})
	if err != nil {
		t.Fatalf("Read after pull: %v", err)
	}
	want, err := s.Read(ctx, series.ReadOptions{})
	if err != nil {
		t.Fatalf("Read remote: %v", err)
	}
	if got.Len() != want.Len() {
		t.Fatalf("Read() after pull length = %d, want %d", got.Len(), want.Len())
	}
	for i := 0; i < want.Len(); i++ {
		if got.At("timestamp", i) != want.At("timestamp", i) || got.At("value", i) != want.At("value", i) {
			t.Fatalf("row %d = %v/%v, want %v/%v", i, got.At("timestamp", i), got.At("value", i), want.At("timestamp", i), want.At("value", i))
		}
	}

	labels, err := self.Ls(ctx)
	if err != nil {
		t.Fatalf("Ls: %v", err)
	}
	if len(labels) != 1 || labels[0] != "temperature" {
		t.Fatalf("Ls() = %v, want [temperature]", labels)
	}
}

func TestPullIsIdempotent(t *testing.T) {
	ctx := context.Background()
	remote := repo.New(memory.New())
	self := repo.New(memory.New())

	clct, err := remote.CreateCollection(ctx, testSchema(), "temperature")
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	s, err := clct.CreateSeries(ctx, testSchema(), "Brussels")
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	if _, err := s.Write(ctx, mustFrame(t, []int64{1, 2, 3}, []float64{11, 12, 13}), "writer"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := Pull(ctx, self, remote, 0); err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if err := Pull(ctx, self, remote, 0); err != nil {
		t.Fatalf("Pull (second): %v", err)
	}

	localClct, err := self.Collection(ctx, "temperature")
	if err != nil {
		t.Fatalf("Collection after pull: %v", err)
	}
	localSeries, err := localClct.Series(ctx, "Brussels")
	if err != nil {
		t.Fatalf("Series after pull: %v", err)
	}
	got, err := localSeries.Read(ctx, series.ReadOptions{})
	if err != nil {
		t.Fatalf("Read after pull: %v", err)
	}
	if got.Len() != 3 {
		t.Fatalf("Read() after double pull = %d rows, want 3", got.Len())
	}
}

func TestPushDelegatesToReversedPull(t *testing.T) {
	ctx := context.Background()
	self := repo.New(memory.New())
	remote := repo.New(memory.New())

	clct, err := self.CreateCollection(ctx, testSchema(), "temperature")
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	s, err := clct.CreateSeries(ctx, testSchema(), "Brussels")
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	if _, err := s.Write(ctx, mustFrame(t, []int64{4, 5}, []float64{4.4, 5.5}), "writer"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := Push(ctx, self, remote, 0); err != nil {
		t.Fatalf("Push: %v", err)
	}

	labels, err := remote.Ls(ctx)
	if err != nil {
		t.Fatalf("Ls: %v", err)
	}
	if len(labels) != 1 || labels[0] != "temperature" {
		t.Fatalf("Ls() after push = %v, want [temperature]", labels)
	}
}

func TestPullOnlyNamedLabels(t *testing.T) {
	ctx := context.Background()
	remote := repo.New(memory.New())
	self := repo.New(memory.New())

	if _, err := remote.CreateCollection(ctx, testSchema(), "temperature"); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if _, err := remote.CreateCollection(ctx, testSchema(), "pressure"); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}

	if err := Pull(ctx, self, remote, 0, "temperature"); err != nil {
		t.Fatalf("Pull: %v", err)
	}

	labels, err := self.Ls(ctx)
	if err != nil {
		t.Fatalf("Ls: %v", err)
	}
	if len(labels) != 1 || labels[0] != "temperature" {
		t.Fatalf("Ls() = %v, want only [temperature]", labels)
	}
}

func TestCopyPODSkipsExisting(t *testing.T) {
	ctx := context.Background()
	src := memory.New()
	dst := memory.New()

	if err := src.Put(ctx, "ab/cdef", []byte("one")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := src.Put(ctx, "ab/ghij", []byte("two")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := dst.Put(ctx, "ab/cdef", []byte("one")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	n, err := CopyPOD(ctx, dst, src)
	if err != nil {
		t.Fatalf("CopyPOD: %v", err)
	}
	if n != 1 {
		t.Fatalf("CopyPOD() copied %d entries, want 1 (the missing one)", n)
	}
	got, err := dst.Get(ctx, "ab/ghij")
	if err != nil {
		t.Fatalf("Get copied entry: %v", err)
	}
	if string(got) != "two" {
		t.Fatalf("copied entry = %q, want %q", got, "two")
	}
}

func otherSchema() frame.Schema {
	return frame.Schema{Columns: []frame.ColumnSpec{
		{Name: "timestamp", DType: frame.Int64, Index: true},
		{Name: "value", DType: frame.String, Index: false},
	}}
}

func TestPullRejectsIncompatibleSchema(t *testing.T) {
	ctx := context.Background()
	remote := repo.New(memory.New())
	self := repo.New(memory.New())

	if _, err := remote.CreateCollection(ctx, testSchema(), "temperature"); err != nil {
		t.Fatalf("CreateCollection (remote): %v", err)
	}
	if _, err := self.CreateCollection(ctx, otherSchema(), "temperature"); err != nil {
		t.Fatalf("CreateCollection (self): %v", err)
	}

	err := Pull(ctx, self, remote, 0, "temperature")
	if err == nil {
		t.Fatalf("Pull with mismatched local/remote schema = nil error, want IncompatibleSchemaError")
	}
	var mismatch IncompatibleSchemaError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Pull error = %v, want IncompatibleSchemaError", err)
	}
	if mismatch.Label != "temperature" {
		t.Fatalf("IncompatibleSchemaError.Label = %q, want temperature", mismatch.Label)
	}
}

func TestPullAllowsMatchingSchema(t *testing.T) {
	ctx := context.Background()
	remote := repo.New(memory.New())
	self := repo.New(memory.New())

	if _, err := remote.CreateCollection(ctx, testSchema(), "temperature"); err != nil {
		t.Fatalf("CreateCollection (remote): %v", err)
	}
	if _, err := self.CreateCollection(ctx, testSchema(), "temperature"); err != nil {
		t.Fatalf("CreateCollection (self): %v", err)
	}

	if err := Pull(ctx, self, remote, 0, "temperature"); err != nil {
		t.Fatalf("Pull with matching local/remote schema: %v", err)
	}
}
