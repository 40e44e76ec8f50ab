// Package gc implements mark-and-sweep garbage collection: mark walks
// every reachable digest from the registry down through every
// collection's series, sweep deletes anything in each series' own
// blob and revision store that mark never reached.
package gc

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vistore/vistore/digest"
	"github.com/vistore/vistore/internal/dcontext"
	"github.com/vistore/vistore/pod"
	"github.com/vistore/vistore/registry"
	"github.com/vistore/vistore/repo"
	"github.com/vistore/vistore/series"
)

// DefaultWorkers bounds how many series mark and sweep concurrently.
const DefaultWorkers = 8

// reachableSeries collects every series reachable from r: the
// registry's own bookkeeping series, plus each collection's index and
// sub-series, for both the active and archive namespaces.
func reachableSeries(ctx context.Context, r *repo.Repo) ([]*series.Series, error) {
	out := []*series.Series{r.Registry.CollectionSeries(), r.Registry.ArchiveSeries()}

	for _, mode := range []registry.Mode{registry.Active, registry.Archive} {
		labels, err := r.Registry.Ls(ctx, mode)
		if err != nil {
			return nil, fmt.Errorf("gc: listing %s collections: %w", mode, err)
		}
		for _, label := range labels {
			c, err := r.Registry.Collection(ctx, label, mode)
			if err != nil {
				return nil, fmt.Errorf("gc: collection %q: %w", label, err)
			}
			out = append(out, c.Index())
			subLabels, err := c.Ls(ctx)
			if err != nil {
				return nil, fmt.Errorf("gc: collection %q: %w", label, err)
			}
			for _, subLabel := range subLabels {
				s, err := c.Series(ctx, subLabel)
				if err != nil {
					return nil, fmt.Errorf("gc: collection %q series %q: %w", label, subLabel, err)
				}
				out = append(out, s)
			}
		}
	}
	return out, nil
}

// Mark returns the full set of digests still referenced across every
// reachable series: revision keys and payload blobs alike.
func Mark(ctx context.Context, r *repo.Repo) (map[digest.Digest]struct{}, error) {
	all, err := reachableSeries(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("gc: mark: %w", err)
	}

	active := make(map[digest.Digest]struct{})
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultWorkers)

	for _, s := range all {
		s := s
		g.Go(func() error {
			ds, err := s.Digests(gctx)
			if err != nil {
				return fmt.Errorf("gc: mark: %w", err)
			}
			mu.Lock()
			for _, d := range ds {
				active[d] = struct{}{}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return active, nil
}

// Sweep walks every reachable series' blob and revision stores and
// deletes any entry whose recomposed digest is absent from active. It
// returns the number of keys deleted.
func Sweep(ctx context.Context, r *repo.Repo, active map[digest.Digest]struct{}, workers int) (int, error) {
	all, err := reachableSeries(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("gc: sweep: %w", err)
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}

	var mu sync.Mutex
	total := 0
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, s := range all {
		s := s
		g.Go(func() error {
			n, err := sweepPOD(gctx, s.BlobsPOD(), active)
			if err != nil {
				return err
			}
			m, err := sweepPOD(gctx, s.LogPOD(), active)
			if err != nil {
				return err
			}
			mu.Lock()
			total += n + m
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return total, err
	}
	return total, nil
}

// sweepPOD recomposes each entry's digest from its hashed-path location
// (folder prefix + remaining path with slashes removed) and deletes it
// if active does not name it.
func sweepPOD(ctx context.Context, p pod.POD, active map[digest.Digest]struct{}) (int, error) {
	folders, err := p.Ls(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("gc: sweep: listing: %w", err)
	}
	count := 0
	for _, folder := range folders {
		sub := p.Cd(folder)
		err := sub.Walk(ctx, "", 2, func(path string, isDir bool) error {
			if isDir {
				return nil
			}
			candidate, err := digest.FromHashedPath(folder + "/" + path)
			if err != nil {
				return nil
			}
			if _, ok := active[candidate]; ok {
				return nil
			}
			if err := sub.Rm(ctx, path, false, true); err != nil {
				return fmt.Errorf("gc: sweep: removing %s/%s: %w", folder, path, err)
			}
			count++
			return nil
		})
		if err != nil {
			return count, err
		}
	}
	return count, nil
}

// Run performs Mark then Sweep over r and returns the number of keys
// deleted.
func Run(ctx context.Context, r *repo.Repo, workers int) (int, error) {
	active, err := Mark(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("gc: run: %w", err)
	}
	dcontext.GetLogger(ctx).Debugf("gc: marked %d reachable digests", len(active))

	n, err := Sweep(ctx, r, active, workers)
	if err != nil {
		return n, fmt.Errorf("gc: run: %w", err)
	}
	dcontext.GetLogger(ctx).Infof("gc: reclaimed %d entries", n)
	return n, nil
}
