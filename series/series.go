// Package series implements a content-addressed, append-only column
// store for one ordered stream of rows: writes are chunked, encoded,
// and committed through a changelog; reads walk that changelog and
// merge overlapping revisions, last writer wins.
package series

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/vistore/vistore/changelog"
	"github.com/vistore/vistore/digest"
	"github.com/vistore/vistore/frame"
	"github.com/vistore/vistore/pod"
)

// Series is one column store. Blobs live under the "blobs" child of the
// backing POD, revisions under "log" — sibling folders of the same
// content-addressed store, kept apart only so GC's candidate
// recomposition never confuses a frame blob with a revision record.
type Series struct {
	schema    frame.Schema
	codec     frame.Codec
	blobs     pod.POD
	cl        *changelog.Changelog
	chunkRows int
}

// Option configures a Series at construction.
type Option func(*Series)

// WithChunkRows splits writes wider than n rows into multiple chunks
// instead of the default one-chunk-per-write. Read semantics are
// unaffected either way.
func WithChunkRows(n int) Option {
	return func(s *Series) { s.chunkRows = n }
}

// WithCodec overrides the default frame.SimpleCodec.
func WithCodec(c frame.Codec) Option {
	return func(s *Series) { s.codec = c }
}

// New opens a Series over p, a POD scoped to this series' own directory.
func New(schema frame.Schema, p pod.POD, opts ...Option) *Series {
	s := &Series{
		schema: schema,
		codec:  frame.SimpleCodec{},
		blobs:  p.Cd("blobs"),
		cl:     changelog.New(p.Cd("log")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ErrUnsorted is returned by Write when the frame is not sorted by its
// index columns; Write assumes pre-sorted input (§4.C).
var ErrUnsorted = fmt.Errorf("series: frame is not sorted by index")

// Write commits f as zero or more new chunks. An empty frame is a no-op
// (returns digest.Zero). Writing byte-identical content a second time
// reuses the same revision key and creates no new head.
func (s *Series) Write(ctx context.Context, f *frame.Frame, author string) (digest.Digest, error) {
	if f.Len() == 0 {
		return digest.Zero, nil
	}
	if !s.schema.Equal(f.Schema) {
		return "", fmt.Errorf("series: write: frame schema does not match series schema")
	}
	if !f.IsSorted() {
		return "", ErrUnsorted
	}

	w, err := s.cl.NewWriter(ctx)
	if err != nil {
		return "", fmt.Errorf("series: write: %w", err)
	}

	chunks := s.chunk(f)
	payloads := make([]digest.Digest, 0, len(chunks))
	for _, chunk := range chunks {
		data, err := s.codec.Encode(chunk)
		if err != nil {
			return "", fmt.Errorf("series: write: encode chunk: %w", err)
		}
		d := digest.FromBytes(data)
		if err := s.blobs.Put(ctx, digest.HashedPath(d), data); err != nil {
			return "", fmt.Errorf("series: write: put chunk: %w", err)
		}
		payloads = append(payloads, d)
	}

	if err := w.Stage(payloads); err != nil {
		return "", fmt.Errorf("series: write: %w", err)
	}
	if err := w.MarkWritten(); err != nil {
		return "", fmt.Errorf("series: write: %w", err)
	}

	startKey := frame.EncodeKey(s.schema, f.MinKey())
	endKey := frame.EncodeKey(s.schema, f.MaxKey())
	rev, err := w.Commit(ctx, startKey, endKey, author, time.Now().Unix())
	if err != nil {
		return "", fmt.Errorf("series: write: %w", err)
	}
	return rev, nil
}

func (s *Series) chunk(f *frame.Frame) []*frame.Frame {
	if s.chunkRows <= 0 || f.Len() <= s.chunkRows {
		return []*frame.Frame{f}
	}
	var chunks []*frame.Frame
	for start := 0; start < f.Len(); start += s.chunkRows {
		end := start + s.chunkRows
		if end > f.Len() {
			end = f.Len()
		}
		chunks = append(chunks, f.Slice(start, end))
	}
	return chunks
}

// ReadOptions narrows a Read to a key range and/or a revision window.
// The zero value reads everything.
type ReadOptions struct {
	Start, End   frame.Key
	Before, After digest.Digest
}

// Read merges every revision that overlaps Start/End (after applying
// the Before/After revision filters) and returns the rows in
// [Start, End], inclusive. Before keeps only the revisions that precede
// it in changelog walk order; After keeps it and every revision that
// follows it. A Before or After that names no revision of this series is
// ignored. Revisions are merged oldest to newest so a later write shadows
// an earlier one only in their overlap.
func (s *Series) Read(ctx context.Context, opts ReadOptions) (*frame.Frame, error) {
	nodes, err := s.cl.Walk(ctx)
	if err != nil {
		return nil, fmt.Errorf("series: read: %w", err)
	}

	hasStart := opts.Start != nil
	hasEnd := opts.End != nil
	var startBytes, endBytes []byte
	if hasStart {
		startBytes = frame.EncodeKey(s.schema, opts.Start)
	}
	if hasEnd {
		endBytes = frame.EncodeKey(s.schema, opts.End)
	}

	pos := make(map[digest.Digest]int, len(nodes))
	for i, n := range nodes {
		pos[n.Digest] = i
	}

	var frames []*frame.Frame
	for i, n := range nodes {
		if b, ok := pos[opts.Before]; ok && i >= b {
			continue
		}
		if a, ok := pos[opts.After]; ok && i < a {
			continue
		}
		if hasEnd && bytes.Compare(n.Revision.StartKey, endBytes) > 0 {
			continue
		}
		if hasStart && bytes.Compare(n.Revision.EndKey, startBytes) < 0 {
			continue
		}
		for _, p := range n.Revision.Payloads {
			data, err := s.blobs.Get(ctx, digest.HashedPath(p))
			if err != nil {
				return nil, fmt.Errorf("series: read: fetching payload %s: %w", p, err)
			}
			chunk, err := s.codec.Decode(s.schema, data)
			if err != nil {
				return nil, fmt.Errorf("series: read: decoding payload %s: %w", p, err)
			}
			frames = append(frames, chunk)
		}
	}

	merged, err := frame.Merge(s.schema, frames)
	if err != nil {
		return nil, fmt.Errorf("series: read: %w", err)
	}
	if merged.Len() == 0 || (!hasStart && !hasEnd) {
		return merged, nil
	}

	lo, hi := merged.RowRange(rangeLo(opts, merged), rangeHi(opts, merged))
	return merged.Slice(lo, hi), nil
}

func rangeLo(opts ReadOptions, merged *frame.Frame) frame.Key {
	if opts.Start != nil {
		return opts.Start
	}
	return merged.MinKey()
}

func rangeHi(opts ReadOptions, merged *frame.Frame) frame.Key {
	if opts.End != nil {
		return opts.End
	}
	return merged.MaxKey()
}

// Digests returns every blob digest reachable from this series'
// changelog: payload chunks plus, implicitly via changelog.Walk, the
// revisions themselves (by their storage path). gc's mark phase uses
// this to build its retained set.
func (s *Series) Digests(ctx context.Context) ([]digest.Digest, error) {
	nodes, err := s.cl.Walk(ctx)
	if err != nil {
		return nil, fmt.Errorf("series: digests: %w", err)
	}
	var out []digest.Digest
	for _, n := range nodes {
		out = append(out, n.Digest)
		out = append(out, n.Revision.Payloads...)
	}
	return out, nil
}

// Heads exposes the underlying changelog's heads.
func (s *Series) Heads(ctx context.Context) ([]digest.Digest, error) {
	return s.cl.Heads(ctx)
}

// Squash replaces the series' entire history with one revision holding
// one blob: the fully merged, last-writer-wins view of everything ever
// written. Every prior revision and every prior payload blob is pruned
// by Squash itself, so a read after Squash is unaffected and the old
// history leaves nothing behind for a gc sweep to reclaim.
func (s *Series) Squash(ctx context.Context, author string) (digest.Digest, error) {
	merged, err := s.Read(ctx, ReadOptions{})
	if err != nil {
		return "", fmt.Errorf("series: squash: %w", err)
	}
	if merged.Len() == 0 {
		return s.cl.Replace(ctx, nil, nil, nil, author, time.Now().Unix())
	}

	data, err := s.codec.Encode(merged)
	if err != nil {
		return "", fmt.Errorf("series: squash: encode: %w", err)
	}
	d := digest.FromBytes(data)
	if err := s.blobs.Put(ctx, digest.HashedPath(d), data); err != nil {
		return "", fmt.Errorf("series: squash: put: %w", err)
	}

	startKey := frame.EncodeKey(s.schema, merged.MinKey())
	endKey := frame.EncodeKey(s.schema, merged.MaxKey())
	summary, err := s.cl.Replace(ctx, []digest.Digest{d}, startKey, endKey, author, time.Now().Unix())
	if err != nil {
		return "", fmt.Errorf("series: squash: %w", err)
	}

	if err := s.pruneOrphanBlobs(ctx, d); err != nil {
		return "", fmt.Errorf("series: squash: %w", err)
	}
	return summary, nil
}

// pruneOrphanBlobs removes every payload blob except keep, now that
// Squash has collapsed the changelog down to the one revision naming
// keep; every other payload blob was reachable only from the revisions
// Replace just deleted.
func (s *Series) pruneOrphanBlobs(ctx context.Context, keep digest.Digest) error {
	var stale []string
	err := s.blobs.Walk(ctx, "", 0, func(path string, isDir bool) error {
		if isDir {
			return nil
		}
		if path == digest.HashedPath(keep) {
			return nil
		}
		stale = append(stale, path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("listing blobs: %w", err)
	}
	for _, path := range stale {
		if err := s.blobs.Rm(ctx, path, false, true); err != nil {
			return fmt.Errorf("removing blob %s: %w", path, err)
		}
	}
	return nil
}

// Pack collapses history into a single summary revision while leaving
// prior revisions in place; see changelog.Pack.
func (s *Series) Pack(ctx context.Context, author string) (digest.Digest, error) {
	return s.cl.Pack(ctx, author, time.Now().Unix())
}

// Schema returns the series' column schema.
func (s *Series) Schema() frame.Schema { return s.schema }

// BlobsPOD returns the backing store for this series' payload chunks.
// sync uses it to copy blobs between two series without decoding them.
func (s *Series) BlobsPOD() pod.POD { return s.blobs }

// LogPOD returns the backing store for this series' revision records.
func (s *Series) LogPOD() pod.POD { return s.cl.POD() }
