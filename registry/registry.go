// Package registry implements the bootstrap collection every repo
// stores at hashed_path(zero digest): the directory of collections,
// split into an active series and an archive series sharing one
// label/meta schema.
package registry

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v2"

	"github.com/vistore/vistore/collection"
	"github.com/vistore/vistore/digest"
	"github.com/vistore/vistore/frame"
	"github.com/vistore/vistore/pod"
	"github.com/vistore/vistore/series"
)

// Mode selects which of the registry's two series a collection is
// filed under.
type Mode int

const (
	Active Mode = iota
	Archive
)

func (m Mode) String() string {
	if m == Archive {
		return "archive"
	}
	return "active"
}

// Meta is a registry row's payload: the collection's schema (for the
// collections it directly names — the sub-series schemas live in each
// collection's own index) and the storage path its data lives under.
type Meta struct {
	SchemaDump  []byte `yaml:"schema_dump"`
	StoragePath string `yaml:"storage_path"`
}

// Registry is the self-hosted bootstrap collection: its own index lives
// at a fixed, content-derived path rather than inside some enclosing
// registry.
type Registry struct {
	pod            pod.POD
	collectionSrs  *series.Series
	archiveSrs     *series.Series
}

// bootstrapPath is where the registry stores itself: the hashed path of
// the zero digest, the one location that never depends on any prior
// registry lookup.
var bootstrapPath = digest.HashedPath(digest.Zero)

// Open opens the registry rooted at root (the repo's top-level POD).
func Open(root pod.POD) *Registry {
	self := root.Cd(bootstrapPath)
	return &Registry{
		pod:           self,
		collectionSrs: series.New(frame.KVSchema(), self.Cd("collection")),
		archiveSrs:    series.New(frame.KVSchema(), self.Cd("archive")),
	}
}

func (r *Registry) seriesFor(mode Mode) *series.Series {
	if mode == Archive {
		return r.archiveSrs
	}
	return r.collectionSrs
}

// CollectionSeries and ArchiveSeries expose the two index series, used
// by sync to copy the registry blob-then-revision like any series.
func (r *Registry) CollectionSeries() *series.Series { return r.collectionSrs }
func (r *Registry) ArchiveSeries() *series.Series    { return r.archiveSrs }

// POD exposes the registry's own backing store.
func (r *Registry) POD() pod.POD { return r.pod }

func folderFor(label string, mode Mode) string {
	labelDigest := digest.FromBytes([]byte(label))
	if mode == Archive {
		return digest.HashedPath(digest.Concat([]byte(labelDigest.Hex()), []byte("archive")))
	}
	return digest.HashedPath(labelDigest)
}

// CreateCollection appends a registry row for label under mode and
// returns the reified collection. Creating the same label twice is
// allowed; no existence check is performed, matching the "last row
// wins" lookup semantics.
func (r *Registry) CreateCollection(ctx context.Context, schema frame.Schema, label string, mode Mode) (*collection.Collection, error) {
	if label == "" {
		return nil, fmt.Errorf("registry: CreateCollection: empty label")
	}
	schemaDump, err := schema.Dump()
	if err != nil {
		return nil, fmt.Errorf("registry: CreateCollection: %w", err)
	}
	folder := folderFor(label, mode)
	meta := Meta{SchemaDump: schemaDump, StoragePath: folder}
	encoded, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("registry: CreateCollection: %w", err)
	}
	f, err := frame.New(frame.KVSchema(), map[string]any{
		"label": []string{label},
		"meta":  [][]byte{encoded},
	})
	if err != nil {
		return nil, fmt.Errorf("registry: CreateCollection: %w", err)
	}
	if _, err := r.seriesFor(mode).Write(ctx, f, "registry"); err != nil {
		return nil, fmt.Errorf("registry: CreateCollection: %w", err)
	}
	return collection.New(label, r.pod.Cd(folder)), nil
}

// NotFoundError reports that no live registry row names label.
type NotFoundError struct {
	Label string
	Mode  Mode
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("registry: no such collection %q (mode %s)", e.Label, e.Mode)
}

// Collection reifies the collection named label under mode, or a
// NotFoundError. A later lookup always sees the most recently written
// row for that label (at-most-one-visible semantics from the index
// series' last-writer-wins merge) — including a tombstone left by
// Delete, which this treats as not found.
func (r *Registry) Collection(ctx context.Context, label string, mode Mode) (*collection.Collection, error) {
	k := frame.Key{label}
	f, err := r.seriesFor(mode).Read(ctx, series.ReadOptions{Start: k, End: k})
	if err != nil {
		return nil, fmt.Errorf("registry: Collection(%q): %w", label, err)
	}
	if f.Len() == 0 {
		return nil, NotFoundError{Label: label, Mode: mode}
	}
	raw := f.At("meta", f.Len()-1).([]byte)
	if len(raw) == 0 {
		return nil, NotFoundError{Label: label, Mode: mode}
	}
	var meta Meta
	if err := yaml.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("registry: Collection(%q): %w", label, err)
	}
	if meta.StoragePath == "" {
		return nil, NotFoundError{Label: label, Mode: mode}
	}
	return collection.New(label, r.pod.Cd(meta.StoragePath)), nil
}

// Ls lists every live label under mode.
func (r *Registry) Ls(ctx context.Context, mode Mode) ([]string, error) {
	f, err := r.seriesFor(mode).Read(ctx, series.ReadOptions{})
	if err != nil {
		return nil, fmt.Errorf("registry: Ls: %w", err)
	}
	var labels []string
	for i := 0; i < f.Len(); i++ {
		meta := f.At("meta", i).([]byte)
		if len(meta) == 0 {
			continue
		}
		labels = append(labels, f.At("label", i).(string))
	}
	return labels, nil
}

// Archive idempotently ensures label has an archive-mode entry, sharing
// schema with its active collection.
func (r *Registry) Archive(ctx context.Context, label string) (*collection.Collection, error) {
	if c, err := r.Collection(ctx, label, Archive); err == nil {
		return c, nil
	} else if _, ok := err.(NotFoundError); !ok {
		return nil, fmt.Errorf("registry: Archive(%q): %w", label, err)
	}
	schema, err := r.Schema(ctx, label, Active)
	if err != nil {
		return nil, fmt.Errorf("registry: Archive(%q): %w", label, err)
	}
	return r.CreateCollection(ctx, schema, label, Archive)
}

// Schema returns the schema recorded in label's registry row under mode,
// the same schema CreateCollection stored there — the one place a
// collection's own schema (as opposed to its sub-series schemas) is
// tracked.
func (r *Registry) Schema(ctx context.Context, label string, mode Mode) (frame.Schema, error) {
	k := frame.Key{label}
	f, err := r.seriesFor(mode).Read(ctx, series.ReadOptions{Start: k, End: k})
	if err != nil {
		return frame.Schema{}, fmt.Errorf("registry: Schema(%q): %w", label, err)
	}
	if f.Len() == 0 {
		return frame.Schema{}, NotFoundError{Label: label, Mode: mode}
	}
	raw := f.At("meta", f.Len()-1).([]byte)
	if len(raw) == 0 {
		return frame.Schema{}, NotFoundError{Label: label, Mode: mode}
	}
	var meta Meta
	if err := yaml.Unmarshal(raw, &meta); err != nil {
		return frame.Schema{}, fmt.Errorf("registry: Schema(%q): %w", label, err)
	}
	return frame.LoadSchema(meta.SchemaDump)
}

// Delete appends a tombstone row (empty meta) for each label to the
// active series, then recursively removes the collection's POD
// subtree, swallowing NotFound the way the original's delete does.
func (r *Registry) Delete(ctx context.Context, labels ...string) error {
	var folders []string
	for _, label := range labels {
		_, err := r.Collection(ctx, label, Active)
		if err == nil {
			folders = append(folders, folderFor(label, Active))
		} else if _, ok := err.(NotFoundError); !ok {
			return fmt.Errorf("registry: Delete(%q): %w", label, err)
		}

		f, err := frame.New(frame.KVSchema(), map[string]any{
			"label": []string{label},
			"meta":  [][]byte{{}},
		})
		if err != nil {
			return fmt.Errorf("registry: Delete(%q): %w", label, err)
		}
		if _, err := r.collectionSrs.Write(ctx, f, "registry"); err != nil {
			return fmt.Errorf("registry: Delete(%q): %w", label, err)
		}
	}
	for _, folder := range folders {
		if err := r.pod.Cd(folder).Rm(ctx, "", true, true); err != nil && !pod.IsNotFound(err) {
			return fmt.Errorf("registry: Delete: removing %q: %w", folder, err)
		}
	}
	return nil
}
