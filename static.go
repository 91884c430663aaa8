package bserve

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// FileSource provides the files for the static fallback. Names are slash separated, relative and have already
// been checked by [StaticName].
type FileSource interface {
	ReadFile(ctx context.Context, name string) ([]byte, error)
}

// StaticName turns a request path into a file name for a [FileSource]. Paths containing ".." segments or NUL
// bytes are rejected before any storage is touched, as is the document root itself.
func StaticName(path string) (string, error) {
	if strings.IndexByte(path, 0) >= 0 {
		return "", errors.Mark(errors.Newf("path %q contains a NUL byte", path), ErrStaticFile)
	}

	for seg := range strings.FieldsFuncSeq(path, isPathSeparator) {
		if seg == ".." {
			return "", errors.Mark(errors.Newf("path %q escapes the document root", path), ErrStaticFile)
		}
	}

	name := strings.TrimLeft(path, "/")
	if name == "" {
		return "", errors.Mark(errors.Newf("path %q names the document root", path), ErrStaticFile)
	}

	return name, nil
}

func isPathSeparator(r rune) bool { return r == '/' || r == '\\' }

// DirSource serves files from a directory on the local filesystem. Lookups go through an [os.Root] so symlinks
// cannot be used to leave the directory either.
type DirSource struct {
	root *os.Root
}

// OpenDir opens dir as a document root.
func OpenDir(dir string) (*DirSource, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "open document root %q", dir)
	}

	return &DirSource{root: root}, nil
}

// Name returns the directory the source was opened on.
func (d *DirSource) Name() string { return d.root.Name() }

// ReadFile reads a regular file below the document root.
func (d *DirSource) ReadFile(_ context.Context, name string) ([]byte, error) {
	f, err := d.root.Open(filepath.FromSlash(name))
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "open %q", name), ErrStaticFile)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "stat %q", name), ErrStaticFile)
	}

	if fi.IsDir() {
		return nil, errors.Mark(errors.Newf("%q is a directory", name), ErrStaticFile)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "read %q", name), ErrStaticFile)
	}

	return data, nil
}

// Close releases the underlying directory handle.
func (d *DirSource) Close() error { return d.root.Close() }

var _ FileSource = (*DirSource)(nil)
