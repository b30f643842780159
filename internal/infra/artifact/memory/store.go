// Package memory implements an in-memory artifact Store for tests and dry runs.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"dormcore/internal/infra/artifact"
)

type entry struct {
	info artifact.Info
	data []byte
}

// Store implements artifact.Store backed by process memory.
type Store struct {
	mu   sync.RWMutex
	objs map[string]entry
}

// New returns an empty store.
func New() *Store { return &Store{objs: make(map[string]entry)} }

func (s *Store) Driver() artifact.Driver { return artifact.DriverMemory }

// Location returns a memory:// address for key.
func (s *Store) Location(key string) string { return "memory://" + key }

// Put stores a copy of r's content, replacing any previous value.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts artifact.PutOptions) (artifact.Info, error) {
	if strings.TrimSpace(key) == "" {
		return artifact.Info{}, fmt.Errorf("empty key")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return artifact.Info{}, err
	}
	info := artifact.Info{
		Key:          key,
		Size:         int64(len(b)),
		ContentType:  opts.ContentType,
		Metadata:     artifact.CloneMetadata(opts.Metadata),
		LastModified: time.Now().UTC(),
		Location:     s.Location(key),
	}
	s.mu.Lock()
	s.objs[key] = entry{info: info, data: b}
	s.mu.Unlock()
	return info, nil
}

// Get returns a copy of the stored content.
func (s *Store) Get(_ context.Context, key string) (artifact.Info, io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return artifact.Info{}, nil, fmt.Errorf("%s: %w", key, artifact.ErrNotFound)
	}
	data := bytes.Clone(obj.data)
	info := obj.info
	info.Metadata = artifact.CloneMetadata(info.Metadata)
	return info, io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes key, reporting whether it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objs[key]
	delete(s.objs, key)
	return ok, nil
}

// List returns entries matching prefix ordered by key.
func (s *Store) List(_ context.Context, prefix string) ([]artifact.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]artifact.Info, 0, len(s.objs))
	for k, v := range s.objs {
		if strings.HasPrefix(k, prefix) {
			inf := v.info
			inf.Metadata = artifact.CloneMetadata(inf.Metadata)
			out = append(out, inf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
