package core

import (
	"context"
	"sync"

	"dormcore/pkg/domain"
)

// Handle constructs the repository once and shares it with every caller.
// Concurrent first callers block until the single load-and-seed completes.
type Handle struct {
	once    sync.Once
	backend func(ctx context.Context) (domain.Backend, error)
	opts    []Option
	repo    *Repository
	err     error
}

// NewHandle returns a handle that opens the backend and repository on first use.
func NewHandle(backend func(ctx context.Context) (domain.Backend, error), opts ...Option) *Handle {
	return &Handle{backend: backend, opts: opts}
}

// Get returns the shared repository, opening it on the first call. A failed
// open is remembered and returned to every later caller.
func (h *Handle) Get(ctx context.Context) (*Repository, error) {
	h.once.Do(func() {
		b, err := h.backend(ctx)
		if err != nil {
			h.err = err
			return
		}
		h.repo, h.err = Open(ctx, b, h.opts...)
	})
	return h.repo, h.err
}
