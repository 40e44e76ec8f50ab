package gc

import (
	"context"
	"testing"

	"github.com/vistore/vistore/digest"
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
	f, err := frame.New(testSchema(), map[string]any{
		"timestamp": ts,
		"value":     values,
	})
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	return f
}

func TestRunNoopOnFreshRepo(t *testing.T) {
	ctx := context.Background()
	r := repo.New(memory.New())
	if _, err := r.CreateCollection(ctx, testSchema(), "metrics"); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}

	n, err := Run(ctx, r, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 0 {
		t.Fatalf("Run() deleted %d keys on an untouched repo, want 0", n)
	}

	c, err := r.Collection(ctx, "metrics")
	if err != nil {
		t.Fatalf("Collection after gc: %v", err)
	}
	if c.Label() != "metrics" {
		t.Fatalf("Label() = %q, want metrics", c.Label())
	}
}

func TestSquashLeavesNoOrphansForGC(t *testing.T) {
	ctx := context.Background()
	r := repo.New(memory.New())
	c, err := r.CreateCollection(ctx, testSchema(), "metrics")
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	s, err := c.CreateSeries(ctx, testSchema(), "temperature")
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}

	for i := 0; i < 5; i++ {
		ts := int64(i * 10)
		if _, err := s.Write(ctx, mustFrame(t, []int64{ts}, []float64{float64(i)}), "writer"); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	// Squash already collapses history down to one revision and one
	// blob, pruning the superseded ones itself; gc should find nothing
	// left to do.
	if err := c.Squash(ctx); err != nil {
		t.Fatalf("Squash: %v", err)
	}

	n, err := Run(ctx, r, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 0 {
		t.Fatalf("Run() deleted %d keys after squash, want 0 (squash already pruned)", n)
	}

	reopened, err := r.Collection(ctx, "metrics")
	if err != nil {
		t.Fatalf("Collection after gc: %v", err)
	}
	got, err := reopened.Series(ctx, "temperature")
	if err != nil {
		t.Fatalf("Series after gc: %v", err)
	}
	f, err := got.Read(ctx, series.ReadOptions{})
	if err != nil {
		t.Fatalf("Read after gc: %v", err)
	}
	if f.Len() != 5 {
		t.Fatalf("Read() after gc returned %d rows, want 5", f.Len())
	}
}

func TestRunReclaimsUnreferencedBlob(t *testing.T) {
	ctx := context.Background()
	r := repo.New(memory.New())
	c, err := r.CreateCollection(ctx, testSchema(), "metrics")
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	s, err := c.CreateSeries(ctx, testSchema(), "temperature")
	if err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	if _, err := s.Write(ctx, mustFrame(t, []int64{1, 2, 3}, []float64{1.1, 2.2, 3.3}), "writer"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Simulate a blob left behind by an interrupted writer: staged and
	// put, but never named by any committed revision.
	orphan := []byte("never committed")
	orphanDigest := digest.FromBytes(orphan)
	orphanPath := digest.HashedPath(orphanDigest)
	if err := s.BlobsPOD().Put(ctx, orphanPath, orphan); err != nil {
		t.Fatalf("Put orphan: %v", err)
	}

	n, err := Run(ctx, r, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 1 {
		t.Fatalf("Run() deleted %d keys, want 1 (the orphan blob)", n)
	}

	if _, err := s.BlobsPOD().Get(ctx, orphanPath); err == nil {
		t.Fatalf("orphan blob still present after gc")
	}

	f, err := s.Read(ctx, series.ReadOptions{})
	if err != nil {
		t.Fatalf("Read after gc: %v", err)
	}
	if f.Len() != 3 {
		t.Fatalf("Read() after gc returned %d rows, want 3", f.Len())
	}

	second, err := Run(ctx, r, 0)
	if err != nil {
		t.Fatalf("Run (second): %v", err)
	}
	if second != 0 {
		t.Fatalf("Run() (second pass) deleted %d keys, want 0", second)
	}
}

func TestRunReclaimsTombstonedCollection(t *testing.T) {
	ctx := context.Background()
	r := repo.New(memory.New())
	if _, err := r.CreateCollection(ctx, testSchema(), "metrics"); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if err := r.Delete(ctx, "metrics"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := Run(ctx, r, 0); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := r.Collection(ctx, "metrics"); err == nil {
		t.Fatalf("Collection(deleted) after gc = nil error, want NotFoundError")
	}
}
