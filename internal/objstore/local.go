package objstore

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// Local stores objects as files below Root. Metadata is not persisted.
type Local struct {
	Root string
}

// NewLocal returns a store rooted at root. An empty root resolves keys
// relative to the working directory.
func NewLocal(root string) *Local { return &Local{Root: root} }

func (l *Local) path(key string) string {
	return filepath.Join(l.Root, filepath.FromSlash(key))
}

// Put writes to a temporary file in the target directory and renames it into
// place, so readers never observe a partial object.
func (l *Local) Put(ctx context.Context, key string, body []byte, _ map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst := l.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %v", dst)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-"+filepath.Base(dst)+"-*")
	if err != nil {
		return errors.Wrapf(err, "creating temp file for %v", dst)
	}
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrapf(err, "writing %v", dst)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrapf(err, "closing %v", dst)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrapf(err, "renaming into %v", dst)
	}
	return nil
}

func (l *Local) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(l.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "reading file %v", l.path(key))
		}
		return nil, errors.Wrapf(err, "reading file %v", l.path(key))
	}
	return b, nil
}

// List walks the directory named by prefix. A missing directory lists as
// empty. Temporary files from in-flight Puts are skipped.
func (l *Local) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base := l.path(prefix)
	var keys []string
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == base {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || filepath.Base(p)[0] == '.' {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		if rel == "." {
			keys = append(keys, prefix)
			return nil
		}
		keys = append(keys, JoinKey(prefix, filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing %v", base)
	}
	sort.Strings(keys)
	return keys, nil
}
