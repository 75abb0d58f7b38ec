// Package datasource abstracts where raw source bytes come from.
package datasource

import (
	"context"
	"fmt"
	"io"
)

// Source opens a byte stream for a parser. Callers close the returned reader.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// ReadAll opens s and returns its full contents. Columnar formats need
// random access, so they are decoded from memory.
func ReadAll(ctx context.Context, s Source) ([]byte, error) {
	rc, err := s.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return b, nil
}
