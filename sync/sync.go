// Package sync replicates repos: pull copies everything remote has that
// self lacks, registry first, then each collection's series, blobs
// always copied before the revisions that reference them so a reader
// never observes a revision whose payload is missing.
package sync

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vistore/vistore/collection"
	"github.com/vistore/vistore/internal/dcontext"
	"github.com/vistore/vistore/pod"
	"github.com/vistore/vistore/registry"
	"github.com/vistore/vistore/repo"
	"github.com/vistore/vistore/series"
)

// DefaultWorkers bounds how many collections pull concurrently.
const DefaultWorkers = 8

// IncompatibleSchemaError is returned when a requested label exists
// locally and remotely with different schemas; sync refuses to guess
// which one is authoritative.
type IncompatibleSchemaError struct {
	Label string
}

func (e IncompatibleSchemaError) Error() string {
	return fmt.Sprintf("sync: incompatible meta-info for collection %q", e.Label)
}

// CopyPOD copies every entry present in src but absent from dst,
// returning how many were copied. It never deletes or overwrites.
func CopyPOD(ctx context.Context, dst, src pod.POD) (int, error) {
	count := 0
	err := src.Walk(ctx, "", 0, func(path string, isDir bool) error {
		if isDir {
			return nil
		}
		if _, err := dst.Get(ctx, path); err == nil {
			return nil
		} else if !pod.IsNotFound(err) {
			return fmt.Errorf("sync: checking %s: %w", path, err)
		}
		data, err := src.Get(ctx, path)
		if err != nil {
			return fmt.Errorf("sync: reading %s: %w", path, err)
		}
		if err := dst.Put(ctx, path, data); err != nil {
			return fmt.Errorf("sync: writing %s: %w", path, err)
		}
		count++
		return nil
	})
	if err != nil {
		return count, err
	}
	return count, nil
}

// PullSeries copies dst up to date with src: blobs first, then
// revisions, so a revision is never visible locally before the payload
// it names.
func PullSeries(ctx context.Context, dst, src *series.Series) error {
	if _, err := CopyPOD(ctx, dst.BlobsPOD(), src.BlobsPOD()); err != nil {
		return fmt.Errorf("sync: pull series blobs: %w", err)
	}
	if _, err := CopyPOD(ctx, dst.LogPOD(), src.LogPOD()); err != nil {
		return fmt.Errorf("sync: pull series log: %w", err)
	}
	return nil
}

// PullCollection copies dst's index up to date with src's, then every
// sub-series src's (now-synced) index names.
func PullCollection(ctx context.Context, dst, src *collection.Collection) error {
	if err := PullSeries(ctx, dst.Index(), src.Index()); err != nil {
		return fmt.Errorf("sync: pull collection %q: %w", src.Label(), err)
	}
	labels, err := src.Ls(ctx)
	if err != nil {
		return fmt.Errorf("sync: pull collection %q: %w", src.Label(), err)
	}
	for _, label := range labels {
		remoteSeries, err := src.Series(ctx, label)
		if err != nil {
			return fmt.Errorf("sync: pull collection %q series %q: %w", src.Label(), label, err)
		}
		localSeries, err := dst.Series(ctx, label)
		if err != nil {
			if _, ok := err.(collection.NotFoundError); !ok {
				return fmt.Errorf("sync: pull collection %q series %q: %w", src.Label(), label, err)
			}
			localSeries, err = dst.CreateSeries(ctx, remoteSeries.Schema(), label)
			if err != nil {
				return fmt.Errorf("sync: pull collection %q series %q: %w", src.Label(), label, err)
			}
		}
		if err := PullSeries(ctx, localSeries, remoteSeries); err != nil {
			return fmt.Errorf("sync: pull collection %q series %q: %w", src.Label(), label, err)
		}
	}
	return nil
}

// Pull replicates remote into self: the registry first (both its active
// and archive series), then each requested collection (default: every
// label the remote registry names), bounded by a worker pool of width
// workers (DefaultWorkers if workers <= 0).
func Pull(ctx context.Context, self, remote *repo.Repo, workers int, labels ...string) error {
	if err := PullSeries(ctx, self.Registry.CollectionSeries(), remote.Registry.CollectionSeries()); err != nil {
		return fmt.Errorf("sync: pull registry: %w", err)
	}
	if err := PullSeries(ctx, self.Registry.ArchiveSeries(), remote.Registry.ArchiveSeries()); err != nil {
		return fmt.Errorf("sync: pull registry: %w", err)
	}

	if len(labels) == 0 {
		var err error
		labels, err = remote.Ls(ctx)
		if err != nil {
			return fmt.Errorf("sync: pull: %w", err)
		}
	}

	if workers <= 0 {
		workers = DefaultWorkers
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, label := range labels {
		label := label
		g.Go(func() error {
			// Detached from gctx: a label already copying blob-then-log
			// when a sibling label errors should finish rather than leave
			// a revision log without the payloads it names.
			labelCtx := dcontext.WithValues(dcontext.DetachedContext(gctx), map[any]any{"label": label})
			if err := pullLabel(labelCtx, self, remote, label); err != nil {
				dcontext.GetLogger(labelCtx, "label").WithError(err).Errorf("sync: pull failed")
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

func pullLabel(ctx context.Context, self, remote *repo.Repo, label string) error {
	remoteCollection, err := remote.Collection(ctx, label)
	if err != nil {
		return fmt.Errorf("sync: pull %q: %w", label, err)
	}
	remoteSchema, err := remote.Schema(ctx, label)
	if err != nil {
		return fmt.Errorf("sync: pull %q: %w", label, err)
	}

	localCollection, err := self.Collection(ctx, label)
	if err != nil {
		if _, ok := err.(registry.NotFoundError); !ok {
			return fmt.Errorf("sync: pull %q: %w", label, err)
		}
		localCollection, err = self.CreateCollection(ctx, remoteSchema, label)
		if err != nil {
			return fmt.Errorf("sync: pull %q: %w", label, err)
		}
	} else {
		localSchema, err := self.Schema(ctx, label)
		if err != nil {
			return fmt.Errorf("sync: pull %q: %w", label, err)
		}
		if !localSchema.Equal(remoteSchema) {
			return IncompatibleSchemaError{Label: label}
		}
	}
	return PullCollection(ctx, localCollection, remoteCollection)
}

// Push drives the copy from the side that has the data, per the
// original design: pushing is simply the remote pulling from self.
func Push(ctx context.Context, self, remote *repo.Repo, workers int, labels ...string) error {
	return Pull(ctx, remote, self, workers, labels...)
}
