package objstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Object is a stored body plus its metadata.
type Object struct {
	Body []byte
	Meta map[string]string
}

// Memory is a concurrency-safe in-memory store.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]Object
	puts    int
}

// NewMemory returns an empty store.
func NewMemory() *Memory { return &Memory{objects: map[string]Object{}} }

var (
	namedMu  sync.Mutex
	namedMem = map[string]*Memory{}
)

// MemoryNamed returns the process-wide Memory store registered under name,
// creating it on first use. mem:// URLs resolve through it.
func MemoryNamed(name string) *Memory {
	namedMu.Lock()
	defer namedMu.Unlock()
	m, ok := namedMem[name]
	if !ok {
		m = NewMemory()
		namedMem[name] = m
	}
	return m
}

func (m *Memory) Put(ctx context.Context, key string, body []byte, meta map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	obj := Object{Body: append([]byte(nil), body...), Meta: map[string]string{}}
	for k, v := range meta {
		obj.Meta[k] = v
	}
	m.mu.Lock()
	m.objects[key] = obj
	m.puts++
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "memory object %v", key)
	}
	return append([]byte(nil), obj.Body...), nil
}

func (m *Memory) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.objects {
		if prefix == "" || strings.HasPrefix(k, prefix+"/") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Object returns a stored object.
func (m *Memory) Object(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Keys lists every key in lexical order.
func (m *Memory) Keys() []string {
	keys, _ := m.List(context.Background(), "")
	return keys
}

// Puts counts Put calls, including overwrites.
func (m *Memory) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}
