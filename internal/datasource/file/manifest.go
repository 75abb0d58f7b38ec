package file

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// ReadManifest reads a text file listing one source path per line. Blank
// lines and lines starting with '#' are skipped. Relative entries resolve
// against the manifest's directory. Order is preserved.
func ReadManifest(ctx context.Context, path string) ([]string, error) {
	rc, err := NewLocal(path).Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	base := filepath.Dir(path)
	var out []string
	sc := bufio.NewScanner(rc)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return out, nil
}
