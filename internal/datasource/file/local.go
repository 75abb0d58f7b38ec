// Package file implements the local filesystem data source and the manifest
// list format used to ingest several files in one run.
package file

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/som4n/DataLake/internal/datasource"
)

// Local opens a file from the local disk.
type Local struct{ path string }

var _ datasource.Source = (*Local)(nil)

// NewLocal returns a Local bound to path. It is safe for concurrent use.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the bound path.
func (l *Local) Path() string { return l.path }

// Open returns the file as an io.ReadCloser. A context that is already done
// short-circuits before the filesystem is touched. Filesystem errors are
// wrapped with the path and stay matchable with errors.Is (os.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}
