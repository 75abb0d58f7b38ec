package file

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/som4n/DataLake/internal/datasource"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))
	return p
}

// TestLocalOpen covers success, a missing file, and a pre-canceled context.
func TestLocalOpen(t *testing.T) {
	t.Parallel()

	t.Run("success_reads_content", func(t *testing.T) {
		p := writeFile(t, "data.txt", "hello\nworld")
		rc, err := NewLocal(p).Open(context.Background())
		require.NoError(t, err)
		defer rc.Close()
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "hello\nworld", string(b))
	})

	t.Run("missing_file_keeps_cause", func(t *testing.T) {
		_, err := NewLocal(filepath.Join(t.TempDir(), "missing.csv")).Open(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Contains(t, err.Error(), "open ")
	})

	t.Run("pre_canceled_context_short_circuits", func(t *testing.T) {
		p := writeFile(t, "data.txt", "ignored")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewLocal(p).Open(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLocalReadAll(t *testing.T) {
	p := writeFile(t, "blob.bin", "abc")
	b, err := datasource.ReadAll(context.Background(), NewLocal(p))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), b)
	assert.Equal(t, p, NewLocal(p).Path())
}

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "inputs.txt")
	content := `
# january exports
sales_01.csv
   # indented comment
/abs/sales_02.csv

`
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))

	got, err := ReadManifest(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "sales_01.csv"), "/abs/sales_02.csv"}, got)

	_, err = ReadManifest(context.Background(), filepath.Join(dir, "nope.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
