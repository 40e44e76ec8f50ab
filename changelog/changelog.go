package changelog

import (
	"context"
	"fmt"
	"sort"

	"github.com/vistore/vistore/digest"
	"github.com/vistore/vistore/pod"
)

// Changelog is the append-only revision DAG for one series, backed by a
// POD already scoped (via Cd) to that series' changelog directory.
type Changelog struct {
	pod pod.POD
}

// New wraps p as a Changelog. p must already be scoped to the series'
// changelog prefix.
func New(p pod.POD) *Changelog {
	return &Changelog{pod: p}
}

// Commit serializes a revision and writes it under its content-addressed
// key. If that key already exists the commit is a no-op, and if parent
// itself records the same payloads, key range and author the commit
// returns parent without writing: replaying an identical write never
// creates a new head (§4.B, §4.C idempotence).
// timestamp is bookkeeping only; it plays no part in the key.
func (c *Changelog) Commit(ctx context.Context, parent digest.Digest, payloads []digest.Digest, startKey, endKey []byte, author string, timestamp int64) (digest.Digest, error) {
	rev := Revision{
		Parent:    parent,
		Payloads:  payloads,
		StartKey:  startKey,
		EndKey:    endKey,
		Timestamp: timestamp,
		Author:    author,
	}
	k, err := key(rev)
	if err != nil {
		return "", fmt.Errorf("changelog: commit: %w", err)
	}
	path := digest.HashedPath(k)
	if parent != digest.Zero {
		if data, err := c.pod.Get(ctx, digest.HashedPath(parent)); err == nil {
			if prev, err := decode(data); err == nil {
				prev.Parent = parent
				if pk, err := key(prev); err == nil && pk == k {
					return parent, nil
				}
			}
		}
	}
	if _, err := c.pod.Get(ctx, path); err == nil {
		return k, nil
	} else if !pod.IsNotFound(err) {
		return "", fmt.Errorf("changelog: commit: checking existing revision: %w", err)
	}
	data, err := encode(rev)
	if err != nil {
		return "", fmt.Errorf("changelog: commit: %w", err)
	}
	if err := c.pod.Put(ctx, path, data); err != nil {
		return "", fmt.Errorf("changelog: commit: %w", err)
	}
	return k, nil
}

// Node pairs a Revision with the identity digest it was stored under.
type Node struct {
	Digest   digest.Digest
	Revision Revision
}

func (c *Changelog) readAll(ctx context.Context) (map[digest.Digest]Revision, error) {
	out := make(map[digest.Digest]Revision)
	err := c.pod.Walk(ctx, "", 2, func(path string, isDir bool) error {
		if isDir {
			return nil
		}
		d, err := digest.FromHashedPath(path)
		if err != nil {
			return fmt.Errorf("changelog: walk: %w", err)
		}
		data, err := c.pod.Get(ctx, path)
		if err != nil {
			return fmt.Errorf("changelog: walk: reading %s: %w", path, err)
		}
		rev, err := decode(data)
		if err != nil {
			return fmt.Errorf("changelog: walk: decoding %s: %w", path, err)
		}
		out[d] = rev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Walk enumerates every revision in topological order, parents before
// children, from the zero-root outward. Siblings (revisions sharing a
// parent) are ordered by lexicographic digest, the deterministic
// tie-break the concurrency model calls for.
func (c *Changelog) Walk(ctx context.Context) ([]Node, error) {
	revisions, err := c.readAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("changelog: walk: %w", err)
	}
	children := make(map[digest.Digest][]digest.Digest)
	for d, rev := range revisions {
		children[rev.Parent] = append(children[rev.Parent], d)
	}
	for _, ds := range children {
		sort.Slice(ds, func(i, j int) bool { return ds[i] < ds[j] })
	}

	var out []Node
	var visit func(parent digest.Digest)
	visited := make(map[digest.Digest]bool)
	visit = func(parent digest.Digest) {
		for _, d := range children[parent] {
			if visited[d] {
				continue
			}
			visited[d] = true
			out = append(out, Node{Digest: d, Revision: revisions[d]})
			visit(d)
		}
	}
	visit(digest.Zero)
	return out, nil
}

// Heads returns the DAG's leaves: revisions no other revision names as
// parent. Two concurrent writers against the same parent both appear as
// heads until a later pack/squash or a subsequent write reconciles them.
func (c *Changelog) Heads(ctx context.Context) ([]digest.Digest, error) {
	revisions, err := c.readAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("changelog: heads: %w", err)
	}
	hasChild := make(map[digest.Digest]bool)
	for _, rev := range revisions {
		hasChild[rev.Parent] = true
	}
	var heads []digest.Digest
	for d := range revisions {
		if !hasChild[d] {
			heads = append(heads, d)
		}
	}
	sort.Slice(heads, func(i, j int) bool { return heads[i] < heads[j] })
	return heads, nil
}

// Pack computes one linear serialization of current history — every
// reachable payload digest in walk order, root first — and commits it as a
// single summary revision whose parent is the zero digest. Prior
// revisions remain on disk and reachable, kept around for audit, so
// Walk after a Pack still enumerates them alongside the new summary.
func (c *Changelog) Pack(ctx context.Context, author string, timestamp int64) (digest.Digest, error) {
	nodes, err := c.Walk(ctx)
	if err != nil {
		return "", fmt.Errorf("changelog: pack: %w", err)
	}
	return c.summarize(ctx, nodes, author, timestamp)
}

// Replace commits a single revision carrying payloads (parent
// zero-digest) and deletes every other revision record, so the new
// commit becomes the sole entry a subsequent Walk/Heads finds. This is
// the changelog half of squash: the caller (series) decides what the
// one remaining payload should contain; Replace just makes it the only
// history left, pruning everything else down to ordinary gc territory.
func (c *Changelog) Replace(ctx context.Context, payloads []digest.Digest, startKey, endKey []byte, author string, timestamp int64) (digest.Digest, error) {
	nodes, err := c.Walk(ctx)
	if err != nil {
		return "", fmt.Errorf("changelog: replace: %w", err)
	}
	summary, err := c.Commit(ctx, digest.Zero, payloads, startKey, endKey, author, timestamp)
	if err != nil {
		return "", fmt.Errorf("changelog: replace: %w", err)
	}
	for _, n := range nodes {
		if n.Digest == summary {
			continue
		}
		if err := c.pod.Rm(ctx, digest.HashedPath(n.Digest), false, true); err != nil {
			return "", fmt.Errorf("changelog: replace: pruning %s: %w", n.Digest, err)
		}
	}
	return summary, nil
}

func (c *Changelog) summarize(ctx context.Context, nodes []Node, author string, timestamp int64) (digest.Digest, error) {
	if len(nodes) == 0 {
		return digest.Zero, nil
	}
	var payloads []digest.Digest
	start, end := nodes[0].Revision.StartKey, nodes[0].Revision.EndKey
	for _, n := range nodes {
		payloads = append(payloads, n.Revision.Payloads...)
		if less(n.Revision.StartKey, start) {
			start = n.Revision.StartKey
		}
		if less(end, n.Revision.EndKey) {
			end = n.Revision.EndKey
		}
	}
	return c.Commit(ctx, digest.Zero, payloads, start, end, author, timestamp)
}

func less(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// POD returns the backing store revisions are written to, scoped to this
// changelog's own prefix. sync uses this to copy revision records
// between two changelogs without decoding them.
func (c *Changelog) POD() pod.POD { return c.pod }

// Active reports whether the changelog has committed any revisions yet.
func (c *Changelog) Active(ctx context.Context) (bool, error) {
	heads, err := c.Heads(ctx)
	if err != nil {
		return false, err
	}
	return len(heads) > 0, nil
}
