// Package memory implements storage.ObjectStore in process memory.
// It backs tests and local development; committed multipart sessions are
// materialized atomically so partial uploads are never observable.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/crawllie/crawllie/internal/storage"
)

// Store keeps objects in a map keyed by object key.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object

	// FailPartAfter, when > 0, makes the Nth UploadPart call fail. Used by
	// tests to exercise abort paths.
	FailPartAfter int
	partCalls     int
}

type object struct {
	data []byte
	opts storage.PutOptions
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{objects: make(map[string]object)}
}

// Put stores the object under key.
func (s *Store) Put(_ context.Context, key string, opts storage.PutOptions, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{data: append([]byte(nil), data...), opts: opts}
	return nil
}

// Get returns the object stored at key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), obj.data...), nil
}

// Exists reports whether an object is visible at key.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

// List returns all keys under prefix in lexical order.
func (s *Store) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// BeginUpload opens a multipart session. Parts are held on the session and
// only concatenated into the object map on Complete.
func (s *Store) BeginUpload(_ context.Context, key string, opts storage.PutOptions) (storage.Upload, error) {
	return &upload{store: s, key: key, opts: opts, parts: make(map[int][]byte)}, nil
}

type upload struct {
	store *Store
	key   string
	opts  storage.PutOptions
	parts map[int][]byte
	done  bool
}

func (u *upload) UploadPart(_ context.Context, number int, data []byte) (storage.Part, error) {
	if u.done {
		return storage.Part{}, fmt.Errorf("upload session for %s already closed", u.key)
	}
	u.store.mu.Lock()
	u.store.partCalls++
	fail := u.store.FailPartAfter > 0 && u.store.partCalls >= u.store.FailPartAfter
	u.store.mu.Unlock()
	if fail {
		return storage.Part{}, storage.NewError("upload part", u.key, fmt.Errorf("injected part failure"))
	}
	u.parts[number] = append([]byte(nil), data...)
	return storage.Part{Number: number, ETag: fmt.Sprintf("etag-%d-%d", number, len(data))}, nil
}

func (u *upload) Complete(ctx context.Context, parts []storage.Part) error {
	if u.done {
		return fmt.Errorf("upload session for %s already closed", u.key)
	}
	if err := storage.ValidateParts(parts); err != nil {
		return storage.NewError("complete", u.key, err)
	}
	var combined []byte
	for _, p := range parts {
		data, ok := u.parts[p.Number]
		if !ok {
			return storage.NewError("complete", u.key, fmt.Errorf("unknown part %d", p.Number))
		}
		combined = append(combined, data...)
	}
	u.done = true
	u.parts = nil
	return u.store.Put(ctx, u.key, u.opts, combined)
}

func (u *upload) Abort(context.Context) error {
	u.done = true
	u.parts = nil
	return nil
}
