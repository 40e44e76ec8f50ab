package pod

import "context"

// CachePOD is a cache-in-front-of-backing composition (§4.A). Get checks
// the cache first and populates it on miss; Put writes through to both; Rm
// forwards to the backing store and invalidates the cache entry; Ls and
// Walk always delegate to the backing store, since the cache is never
// authoritative for enumeration. Grounded on the teacher's
// cachedBlobStatter, which prefers a cache and falls back to a backend;
// generalized here from stat results to whole blobs. Content addressing
// means cached entries never go stale, so no TTL bookkeeping is needed.
type CachePOD struct {
	cache   POD
	backing POD
}

var _ POD = (*CachePOD)(nil)

// NewCache composes cache in front of backing.
func NewCache(cache, backing POD) *CachePOD {
	return &CachePOD{cache: cache, backing: backing}
}

func (p *CachePOD) Get(ctx context.Context, path string) ([]byte, error) {
	data, err := p.cache.Get(ctx, path)
	if err == nil {
		return data, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	data, err = p.backing.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	// Best-effort population; a cache write failure must not fail the read.
	_ = p.cache.Put(ctx, path, data)
	return data, nil
}

func (p *CachePOD) Put(ctx context.Context, path string, data []byte) error {
	if err := p.backing.Put(ctx, path, data); err != nil {
		return err
	}
	_ = p.cache.Put(ctx, path, data)
	return nil
}

func (p *CachePOD) Rm(ctx context.Context, path string, recursive, missingOK bool) error {
	if err := p.backing.Rm(ctx, path, recursive, missingOK); err != nil {
		return err
	}
	_ = p.cache.Rm(ctx, path, recursive, true)
	return nil
}

func (p *CachePOD) Ls(ctx context.Context, prefix string) ([]string, error) {
	return p.backing.Ls(ctx, prefix)
}

func (p *CachePOD) Walk(ctx context.Context, root string, maxDepth int, f WalkFunc) error {
	return p.backing.Walk(ctx, root, maxDepth, f)
}

func (p *CachePOD) Cd(subdir string) POD {
	return &CachePOD{cache: p.cache.Cd(subdir), backing: p.backing.Cd(subdir)}
}
