package collection

import (
	"context"
	"testing"

	"github.com/vistore/vistore/frame"
	"github.com/vistore/vistore/pod/memory"
	"github.com/vistore/vistore/series"
)

func testSchema() frame.Schema {
	return frame.Schema{Columns: []frame.ColumnSpec{
		{Name: "timestamp", DType: frame.Int64, Index: true},
		{Name: "value", DType: frame.Float64, Index: false},
	}}
}

func TestCreateSeriesAndRead(t *testing.T) {
	ctx := context.Background()
	c := New("temperature", memory.New())

	s, err := c.CreateSeries(ctx, testSchema(), "Brussels")
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	f, err := frame.New(testSchema(), map[string]any{
		"timestamp": []int64{1, 2, 3},
		"value":     []float64{11, 12, 13},
	})
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	if _, err := s.Write(ctx, f, "t"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := c.Series(ctx, "Brussels")
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	read, err := got.Read(ctx, series.ReadOptions{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if read.Len() != 3 {
		t.Fatalf("read.Len() = %d, want 3", read.Len())
	}
}

func TestLsListsCreatedSeries(t *testing.T) {
	ctx := context.Background()
	c := New("temperature", memory.New())
	if _, err := c.CreateSeries(ctx, testSchema(), "Brussels"); err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	if _, err := c.CreateSeries(ctx, testSchema(), "Paris"); err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	labels, err := c.Ls(ctx)
	if err != nil {
		t.Fatalf("Ls: %v", err)
	}
	if len(labels) != 2 {
		t.Fatalf("Ls() = %v, want 2 labels", labels)
	}
}

func TestSeriesMissingLabel(t *testing.T) {
	ctx := context.Background()
	c := New("temperature", memory.New())
	if _, err := c.Series(ctx, "nope"); err == nil {
		t.Fatalf("Series(missing) = nil error, want NotFoundError")
	}
}

func TestSquashCollapsesSubSeriesHistory(t *testing.T) {
	ctx := context.Background()
	c := New("temperature", memory.New())
	s, err := c.CreateSeries(ctx, testSchema(), "Brussels")
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	f1, _ := frame.New(testSchema(), map[string]any{"timestamp": []int64{1, 2, 3}, "value": []float64{1, 2, 3}})
	f2, _ := frame.New(testSchema(), map[string]any{"timestamp": []int64{4, 5}, "value": []float64{4, 5}})
	if _, err := s.Write(ctx, f1, "t"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := s.Write(ctx, f2, "t"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := c.Squash(ctx); err != nil {
		t.Fatalf("Squash: %v", err)
	}

	s2, err := c.Series(ctx, "Brussels")
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	heads, err := s2.Heads(ctx)
	if err != nil {
		t.Fatalf("Heads: %v", err)
	}
	if len(heads) != 1 {
		t.Fatalf("Heads() after squash = %v, want exactly one", heads)
	}
}

func TestMergePacksIndexAndSeriesWithoutLosingHistory(t *testing.T) {
	ctx := context.Background()
	c := New("temperature", memory.New())
	s, err := c.CreateSeries(ctx, testSchema(), "Brussels")
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	f1, _ := frame.New(testSchema(), map[string]any{"timestamp": []int64{1, 2, 3}, "value": []float64{1, 2, 3}})
	f2, _ := frame.New(testSchema(), map[string]any{"timestamp": []int64{4, 5}, "value": []float64{4, 5}})
	if _, err := s.Write(ctx, f1, "t"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := s.Write(ctx, f2, "t"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := c.Merge(ctx); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	// Merge packs into a new summary revision without pruning the chain
	// it summarizes, so the prior tip is still a head alongside it.
	s2, err := c.Series(ctx, "Brussels")
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	after, err := s2.Heads(ctx)
	if err != nil {
		t.Fatalf("Heads: %v", err)
	}
	if len(after) != 2 {
		t.Fatalf("Heads() after merge = %v, want the prior tip plus the new summary", after)
	}

	f, err := s2.Read(ctx, series.ReadOptions{})
	if err != nil {
		t.Fatalf("Read after merge: %v", err)
	}
	if f.Len() != 5 {
		t.Fatalf("Read() after merge returned %d rows, want 5", f.Len())
	}
}
