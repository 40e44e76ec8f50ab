// Package collection groups related series under one label→metadata
// index, itself a series: a collection is a small directory of series
// that share a common pull/squash/merge lifecycle.
package collection

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v2"

	"github.com/vistore/vistore/digest"
	"github.com/vistore/vistore/frame"
	"github.com/vistore/vistore/pod"
	"github.com/vistore/vistore/series"
)

// Meta is one index row's payload: the sub-series' schema and the
// storage path its data lives under (a digest-derived subtree of the
// collection's own POD).
type Meta struct {
	SchemaDump  []byte `yaml:"schema_dump"`
	StoragePath string `yaml:"storage_path"`
}

func (m Meta) encode() ([]byte, error) {
	return yaml.Marshal(m)
}

func decodeMeta(b []byte) (Meta, error) {
	var m Meta
	if err := yaml.Unmarshal(b, &m); err != nil {
		return Meta{}, err
	}
	return m, nil
}

// Collection is a directory of series addressed by label, with one
// index series recording each sub-series' schema and storage path.
type Collection struct {
	label string
	pod   pod.POD
	index *series.Series
}

// New opens a Collection over p, a POD scoped to this collection's own
// directory.
func New(label string, p pod.POD) *Collection {
	return &Collection{
		label: label,
		pod:   p,
		index: series.New(frame.KVSchema(), p.Cd("index")),
	}
}

// Label is the collection's own name.
func (c *Collection) Label() string { return c.label }

// CreateSeries allocates a sub-series under a digest-derived folder and
// records it in the index. Creating the same label twice is allowed;
// the index's last-writer-wins merge makes the most recent call the one
// that is visible.
func (c *Collection) CreateSeries(ctx context.Context, schema frame.Schema, label string) (*series.Series, error) {
	if label == "" {
		return nil, fmt.Errorf("collection: CreateSeries: empty label")
	}
	schemaDump, err := schema.Dump()
	if err != nil {
		return nil, fmt.Errorf("collection: CreateSeries: %w", err)
	}
	folder := digest.HashedPath(digest.FromBytes([]byte(label)))
	m := Meta{SchemaDump: schemaDump, StoragePath: folder}
	if err := c.putIndexRow(ctx, label, m); err != nil {
		return nil, fmt.Errorf("collection: CreateSeries: %w", err)
	}
	return series.New(schema, c.pod.Cd(folder)), nil
}

func (c *Collection) putIndexRow(ctx context.Context, label string, m Meta) error {
	encoded, err := m.encode()
	if err != nil {
		return err
	}
	f, err := frame.New(frame.KVSchema(), map[string]any{
		"label": []string{label},
		"meta":  [][]byte{encoded},
	})
	if err != nil {
		return err
	}
	_, err = c.index.Write(ctx, f, "collection")
	return err
}

// Series reifies the sub-series stored under label, or a NotFoundError
// if no index row names it.
func (c *Collection) Series(ctx context.Context, label string) (*series.Series, error) {
	m, err := c.lookup(ctx, label)
	if err != nil {
		return nil, err
	}
	schema, err := frame.LoadSchema(m.SchemaDump)
	if err != nil {
		return nil, fmt.Errorf("collection: Series(%q): %w", label, err)
	}
	return series.New(schema, c.pod.Cd(m.StoragePath)), nil
}

// NotFoundError reports that a collection has no index row for label.
type NotFoundError struct{ Label string }

func (e NotFoundError) Error() string {
	return fmt.Sprintf("collection: no such series %q", e.Label)
}

func (c *Collection) lookup(ctx context.Context, label string) (Meta, error) {
	k := frame.Key{label}
	f, err := c.index.Read(ctx, series.ReadOptions{Start: k, End: k})
	if err != nil {
		return Meta{}, fmt.Errorf("collection: lookup(%q): %w", label, err)
	}
	if f.Len() == 0 {
		return Meta{}, NotFoundError{Label: label}
	}
	raw := f.At("meta", f.Len()-1).([]byte)
	return decodeMeta(raw)
}

// Ls lists every label with an index row. Unlike registry.Ls, this
// performs no tombstone filtering: a collection's index has no delete
// operation of its own, so every row named here reifies successfully
// through Series.
func (c *Collection) Ls(ctx context.Context) ([]string, error) {
	f, err := c.index.Read(ctx, series.ReadOptions{})
	if err != nil {
		return nil, fmt.Errorf("collection: Ls: %w", err)
	}
	labels := make([]string, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		labels = append(labels, f.At("label", i).(string))
	}
	return labels, nil
}

// Digests returns every digest reachable from this collection: the
// index series' own revisions/payloads, plus every listed sub-series'.
func (c *Collection) Digests(ctx context.Context) ([]digest.Digest, error) {
	out, err := c.index.Digests(ctx)
	if err != nil {
		return nil, fmt.Errorf("collection: digests: %w", err)
	}
	labels, err := c.Ls(ctx)
	if err != nil {
		return nil, fmt.Errorf("collection: digests: %w", err)
	}
	for _, label := range labels {
		s, err := c.Series(ctx, label)
		if err != nil {
			return nil, fmt.Errorf("collection: digests(%q): %w", label, err)
		}
		ds, err := s.Digests(ctx)
		if err != nil {
			return nil, fmt.Errorf("collection: digests(%q): %w", label, err)
		}
		out = append(out, ds...)
	}
	return out, nil
}

// Squash collapses the index series and every sub-series' history to a
// single summary revision each.
func (c *Collection) Squash(ctx context.Context) error {
	if _, err := c.index.Squash(ctx, "squash"); err != nil {
		return fmt.Errorf("collection: squash: index: %w", err)
	}
	labels, err := c.Ls(ctx)
	if err != nil {
		return fmt.Errorf("collection: squash: %w", err)
	}
	for _, label := range labels {
		s, err := c.Series(ctx, label)
		if err != nil {
			return fmt.Errorf("collection: squash(%q): %w", label, err)
		}
		if _, err := s.Squash(ctx, "squash"); err != nil {
			return fmt.Errorf("collection: squash(%q): %w", label, err)
		}
	}
	return nil
}

// Merge packs the index series and every sub-series' history into a
// single linear summary while leaving prior revisions reachable.
func (c *Collection) Merge(ctx context.Context) error {
	if _, err := c.index.Pack(ctx, "merge"); err != nil {
		return fmt.Errorf("collection: merge: index: %w", err)
	}
	labels, err := c.Ls(ctx)
	if err != nil {
		return fmt.Errorf("collection: merge: %w", err)
	}
	for _, label := range labels {
		s, err := c.Series(ctx, label)
		if err != nil {
			return fmt.Errorf("collection: merge(%q): %w", label, err)
		}
		if _, err := s.Pack(ctx, "merge"); err != nil {
			return fmt.Errorf("collection: merge(%q): %w", label, err)
		}
	}
	return nil
}

// Index exposes the collection's index series, used by sync to copy it
// blob-then-revision the same way any other series is copied.
func (c *Collection) Index() *series.Series { return c.index }

// POD exposes the collection's own backing store.
func (c *Collection) POD() pod.POD { return c.pod }
