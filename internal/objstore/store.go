// Package objstore is the object-store abstraction the lake is written to:
// S3 in production, a local directory tree for development, and an
// in-memory store for tests and dry runs.
package objstore

import (
	"context"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrNotFound is returned (wrapped) when an object or bucket does not exist.
var ErrNotFound = errors.New("object not found")

// Store is a flat key/value object store. Keys use '/' separators.
type Store interface {
	// Put creates or replaces the object at key.
	Put(ctx context.Context, key string, body []byte, meta map[string]string) error
	// Get returns the object body.
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns the keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Options configures stores opened from URLs.
type Options struct {
	// Region, Endpoint and PathStyle configure the S3 client. Endpoint and
	// PathStyle are for S3-compatible services such as MinIO or LocalStack.
	Region    string
	Endpoint  string
	PathStyle bool
}

// Open resolves rawURL into a store and the key prefix inside it.
//
//	s3://bucket/raw/sales   -> S3 bucket, prefix "raw/sales"
//	file:///srv/lake/raw    -> Local rooted at "/", prefix "srv/lake/raw"
//	mem://name/raw          -> shared Memory store "name", prefix "raw"
//	./lake/raw              -> Local relative to the working directory
func Open(ctx context.Context, rawURL string, opt Options) (Store, string, error) {
	if !strings.Contains(rawURL, "://") {
		return NewLocal(""), cleanKey(filepath.ToSlash(rawURL)), nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", errors.Wrapf(err, "parsing store URL %v", rawURL)
	}
	switch u.Scheme {
	case "s3", "s3a":
		if u.Host == "" {
			return nil, "", errors.Errorf("store URL %v has no bucket", rawURL)
		}
		s, err := NewS3(opt, u.Host)
		if err != nil {
			return nil, "", err
		}
		return s, cleanKey(u.Path), nil
	case "file":
		return NewLocal("/"), cleanKey(u.Path), nil
	case "mem":
		return MemoryNamed(u.Host), cleanKey(u.Path), nil
	}
	return nil, "", errors.Errorf("unsupported store scheme %q", u.Scheme)
}

// JoinKey joins key segments with '/', skipping empty ones.
func JoinKey(parts ...string) string {
	keep := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			keep = append(keep, p)
		}
	}
	return strings.Join(keep, "/")
}

func cleanKey(k string) string {
	k = strings.Trim(k, "/")
	if k == "" {
		return ""
	}
	k = path.Clean(k)
	if k == "." {
		return ""
	}
	return k
}
