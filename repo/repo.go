// Package repo is the top-level entry point: it opens a POD from a URI
// and exposes the registry's collections as the repo's own namespace.
package repo

import (
	"context"
	"fmt"

	"github.com/vistore/vistore/collection"
	"github.com/vistore/vistore/frame"
	"github.com/vistore/vistore/pod"
	"github.com/vistore/vistore/registry"
)

// Repo is one storage location: a POD plus the registry bootstrapped
// inside it.
type Repo struct {
	pod      pod.POD
	Registry *registry.Registry
}

// Open parses uri (via pod.Open, including +-chained caching) and
// returns the Repo rooted there.
func Open(ctx context.Context, uri string) (*Repo, error) {
	p, err := pod.Open(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("repo: open: %w", err)
	}
	return &Repo{pod: p, Registry: registry.Open(p)}, nil
}

// New wraps an already-constructed POD, bypassing URI parsing.
func New(p pod.POD) *Repo {
	return &Repo{pod: p, Registry: registry.Open(p)}
}

// POD returns the repo's root backing store.
func (r *Repo) POD() pod.POD { return r.pod }

// Ls lists every active collection label.
func (r *Repo) Ls(ctx context.Context) ([]string, error) {
	return r.Registry.Ls(ctx, registry.Active)
}

// Collection reifies the named collection, the Go equivalent of the
// original's `repo / label` shortcut.
func (r *Repo) Collection(ctx context.Context, label string) (*collection.Collection, error) {
	return r.Registry.Collection(ctx, label, registry.Active)
}

// CreateCollection creates and returns a new active collection, the
// equivalent of the original's `repo + label` shortcut.
func (r *Repo) CreateCollection(ctx context.Context, schema frame.Schema, label string) (*collection.Collection, error) {
	return r.Registry.CreateCollection(ctx, schema, label, registry.Active)
}

// Archive idempotently archives label.
func (r *Repo) Archive(ctx context.Context, label string) (*collection.Collection, error) {
	return r.Registry.Archive(ctx, label)
}

// Schema returns the schema recorded for label's active collection.
func (r *Repo) Schema(ctx context.Context, label string) (frame.Schema, error) {
	return r.Registry.Schema(ctx, label, registry.Active)
}

// Delete tombstones and removes the named collections.
func (r *Repo) Delete(ctx context.Context, labels ...string) error {
	return r.Registry.Delete(ctx, labels...)
}
