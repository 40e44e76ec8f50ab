// Package pod defines the pluggable object store contract: a uniform
// content-addressed blob interface over heterogeneous backends, composable
// through caching.
package pod

import (
	"context"
	"errors"
	"fmt"
)

// POD is a content-addressed, path-keyed object store. Paths are
// forward-slash separated. A POD is not required to be transactional;
// Put is atomic per key.
type POD interface {
	// Get retrieves the bytes stored at path, or a NotFound error.
	Get(ctx context.Context, path string) ([]byte, error)

	// Put stores data at path. It is the commit point: once Put returns
	// nil, the data is durable.
	Put(ctx context.Context, path string, data []byte) error

	// Rm removes path. If recursive, it also removes everything under
	// path. If missingOK, a NotFound error is swallowed.
	Rm(ctx context.Context, path string, recursive, missingOK bool) error

	// Ls lists the direct descendants of prefix.
	Ls(ctx context.Context, prefix string) ([]string, error)

	// Walk enumerates every path under root, depth-first, stopping
	// descent at maxDepth (0 means unlimited). It calls f with each
	// path relative to root.
	Walk(ctx context.Context, root string, maxDepth int, f WalkFunc) error

	// Cd returns a POD rooted at subdir, a view onto the same backing
	// store with every path prefixed by subdir.
	Cd(subdir string) POD
}

// WalkFunc is called once per entry during a Walk. Returning ErrSkipDir
// when the entry is a directory skips its descendants.
type WalkFunc func(path string, isDir bool) error

// ErrSkipDir signals Walk to not descend into the directory just visited.
var ErrSkipDir = fmt.Errorf("pod: skip this directory")

// NotFoundError is returned when operating on a path that does not exist.
type NotFoundError struct {
	Path string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("pod: not found: %s", e.Path)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// IOError wraps a transport-level failure from a POD backend. Backends may
// retry transient IOErrors internally before surfacing them.
type IOError struct {
	Path string
	Err  error
}

func (e IOError) Error() string {
	return fmt.Sprintf("pod: io error on %s: %v", e.Path, e.Err)
}

func (e IOError) Unwrap() error {
	return e.Err
}
