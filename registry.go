package formstate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-formstate/pkg/store"
)

// ErrUnknownForm indicates a lookup or deregistration for a key with no live
// cache.
var ErrUnknownForm = errors.New("formstate: no cache registered for key")

// Registry owns one cache per live form. Global concerns (error handler,
// notifier, activity hooks) are attached once during construction and applied
// to every registered cache; Close tears everything down so a host can be
// reinitialized without leaking timers.
type Registry struct {
	store    store.Store[Snapshot]
	defaults []CacheOption

	mu     sync.Mutex
	caches map[string]*Cache
	closed bool
}

// RegistryOption configures registry construction.
type RegistryOption func(*Registry)

// WithCacheDefaults applies opts to every cache the registry registers.
// Per-form options passed at Register time take precedence.
func WithCacheDefaults(opts ...CacheOption) RegistryOption {
	return func(r *Registry) {
		r.defaults = append(r.defaults, opts...)
	}
}

// NewRegistry constructs a registry persisting into st.
func NewRegistry(st store.Store[Snapshot], opts ...RegistryOption) (*Registry, error) {
	if st == nil {
		return nil, ErrNoStore
	}
	registry := &Registry{
		store:  st,
		caches: map[string]*Cache{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(registry)
		}
	}
	return registry, nil
}

// Register builds a cache for form and runs its restore pass. Two live forms
// deriving the same storage key would corrupt each other's snapshots, so the
// second registration fails with ErrDuplicateKey.
func (r *Registry) Register(ctx context.Context, form *Form, opts ...CacheOption) (*Cache, error) {
	combined := make([]CacheOption, 0, len(r.defaults)+len(opts))
	combined = append(combined, r.defaults...)
	combined = append(combined, opts...)

	cache, err := NewCache(form, r.store, combined...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	if _, exists := r.caches[cache.Key()]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, cache.Key())
	}
	r.caches[cache.Key()] = cache
	r.mu.Unlock()

	if !cache.cfg.skipRestore {
		if _, err := cache.Restore(ctx); err != nil {
			r.mu.Lock()
			delete(r.caches, cache.Key())
			r.mu.Unlock()
			_ = cache.Close()
			return nil, err
		}
	}
	return cache, nil
}

// Lookup returns the live cache registered under key.
func (r *Registry) Lookup(key string) (*Cache, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cache, ok := r.caches[key]
	return cache, ok
}

// Len reports the number of live caches.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.caches)
}

// Deregister closes the cache registered under key and releases the key for
// reuse. Persisted state is left untouched.
func (r *Registry) Deregister(key string) error {
	r.mu.Lock()
	cache, ok := r.caches[key]
	if ok {
		delete(r.caches, key)
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownForm, key)
	}
	return cache.Close()
}

// Close tears down every live cache. The registry cannot be reused after
// Close.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	caches := make([]*Cache, 0, len(r.caches))
	for _, cache := range r.caches {
		caches = append(caches, cache)
	}
	r.caches = map[string]*Cache{}
	r.mu.Unlock()

	var errs []error
	for _, cache := range caches {
		if err := cache.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
