// Package file implements a pod.POD backed by a local directory. Put is
// made atomic via a temp-file-then-rename sequence, the same technique the
// teacher's filesystem storage driver uses.
package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/vistore/vistore/pod"
)

const driverName = "file"

func init() {
	pod.Register(driverName, driverFactory{})
}

type driverFactory struct{}

func (driverFactory) Create(ctx context.Context, params map[string]string) (pod.POD, error) {
	root, ok := params["path"]
	if !ok || root == "" {
		return nil, fmt.Errorf("file: missing root path parameter")
	}
	return New(root), nil
}

// Driver is a pod.POD backed by RootDirectory on the local filesystem.
type Driver struct {
	RootDirectory string
}

var _ pod.POD = (*Driver)(nil)

// New constructs a Driver rooted at root. The directory is created lazily
// on first write.
func New(root string) *Driver {
	return &Driver{RootDirectory: filepath.Clean(root)}
}

func (d *Driver) fullPath(p string) string {
	return filepath.Join(d.RootDirectory, filepath.FromSlash(strings.TrimPrefix(p, "/")))
}

func (d *Driver) Get(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(d.fullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pod.NotFoundError{Path: path}
		}
		return nil, pod.IOError{Path: path, Err: err}
	}
	return data, nil
}

func (d *Driver) Put(ctx context.Context, subPath string, data []byte) error {
	full := d.fullPath(subPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o777); err != nil {
		return pod.IOError{Path: subPath, Err: err}
	}

	tmp := full + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o666); err != nil {
		return pod.IOError{Path: subPath, Err: err}
	}

	// Atomically replace the target with the temp file.
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return pod.IOError{Path: subPath, Err: err}
	}
	return nil
}

func (d *Driver) Rm(ctx context.Context, path string, recursive, missingOK bool) error {
	full := d.fullPath(path)

	var err error
	if recursive {
		err = os.RemoveAll(full)
	} else {
		err = os.Remove(full)
	}
	if err != nil {
		if os.IsNotExist(err) {
			if missingOK {
				return nil
			}
			return pod.NotFoundError{Path: path}
		}
		return pod.IOError{Path: path, Err: err}
	}
	return nil
}

func (d *Driver) Ls(ctx context.Context, prefix string) ([]string, error) {
	full := d.fullPath(prefix)
	entries, err := os.ReadDir(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pod.NotFoundError{Path: prefix}
		}
		return nil, pod.IOError{Path: prefix, Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (d *Driver) Walk(ctx context.Context, root string, maxDepth int, f pod.WalkFunc) error {
	full := d.fullPath(root)
	rootDepth := strings.Count(filepath.ToSlash(full), "/")

	return filepath.WalkDir(full, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return pod.IOError{Path: path, Err: err}
		}
		if path == full {
			return nil
		}

		rel := strings.TrimPrefix(filepath.ToSlash(path), filepath.ToSlash(full)+"/")
		depth := strings.Count(filepath.ToSlash(path), "/") - rootDepth

		if maxDepth > 0 && depth > maxDepth {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		werr := f(rel, entry.IsDir())
		if werr == pod.ErrSkipDir {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		return werr
	})
}

func (d *Driver) Cd(subdir string) pod.POD {
	return &Driver{RootDirectory: d.fullPath(subdir)}
}
