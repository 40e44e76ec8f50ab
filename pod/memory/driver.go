// Package memory implements a pod.POD backed by a map held in process
// memory. Its life equals the life of the process; intended for tests and
// as the default cache-tier backend.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vistore/vistore/pod"
)

const driverName = "memory"

func init() {
	pod.Register(driverName, driverFactory{})
}

type driverFactory struct{}

func (driverFactory) Create(ctx context.Context, params map[string]string) (pod.POD, error) {
	return New(), nil
}

// Driver is a pod.POD backed by an in-memory map from path to bytes.
type Driver struct {
	mu   *sync.RWMutex
	data map[string][]byte
	root string
}

var _ pod.POD = (*Driver)(nil)

// New constructs an empty in-memory POD.
func New() *Driver {
	return &Driver{
		mu:   &sync.RWMutex{},
		data: make(map[string][]byte),
	}
}

func (d *Driver) full(p string) string {
	if d.root == "" {
		return strings.TrimPrefix(p, "/")
	}
	if p == "" {
		return d.root
	}
	return d.root + "/" + strings.TrimPrefix(p, "/")
}

func (d *Driver) Get(ctx context.Context, path string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	full := d.full(path)
	v, ok := d.data[full]
	if !ok {
		return nil, pod.NotFoundError{Path: path}
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (d *Driver) Put(ctx context.Context, path string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	d.data[d.full(path)] = cp
	return nil
}

func (d *Driver) Rm(ctx context.Context, path string, recursive, missingOK bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	full := d.full(path)
	_, exact := d.data[full]
	prefix := full + "/"

	if !recursive {
		if !exact {
			if missingOK {
				return nil
			}
			return pod.NotFoundError{Path: path}
		}
		delete(d.data, full)
		return nil
	}

	found := exact
	for k := range d.data {
		if k == full || strings.HasPrefix(k, prefix) {
			delete(d.data, k)
			found = true
		}
	}
	if !found && !missingOK {
		return pod.NotFoundError{Path: path}
	}
	return nil
}

func (d *Driver) Ls(ctx context.Context, prefix string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	full := d.full(prefix)
	base := full
	if base != "" {
		base += "/"
	}

	seen := make(map[string]struct{})
	for k := range d.data {
		if base != "" && !strings.HasPrefix(k, base) {
			continue
		}
		rest := strings.TrimPrefix(k, base)
		if rest == "" {
			continue
		}
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i]
		}
		seen[rest] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (d *Driver) Walk(ctx context.Context, root string, maxDepth int, f pod.WalkFunc) error {
	entries, err := d.Ls(ctx, root)
	if err != nil {
		return err
	}
	sort.Strings(entries)

	for _, name := range entries {
		childRel := name
		full := d.full(joinRel(root, name))
		isDir := d.hasChildren(full)

		err := f(childRel, isDir)
		if err == pod.ErrSkipDir {
			continue
		}
		if err != nil {
			return err
		}

		if isDir && maxDepth != 1 {
			nextDepth := maxDepth
			if nextDepth > 0 {
				nextDepth--
			}
			sub := joinRel(root, name)
			err := d.Walk(ctx, sub, nextDepth, func(p string, isDir bool) error {
				return f(joinRel(name, p), isDir)
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Driver) hasChildren(full string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if _, ok := d.data[full]; ok {
		return false
	}
	prefix := full + "/"
	for k := range d.data {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

func (d *Driver) Cd(subdir string) pod.POD {
	return &Driver{
		mu:   d.mu,
		data: d.data,
		root: d.full(subdir),
	}
}

func joinRel(base, name string) string {
	base = strings.Trim(base, "/")
	if base == "" {
		return name
	}
	return base + "/" + name
}
