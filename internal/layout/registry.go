package layout

import (
	"context"
	"errors"

	"github.com/debemdeboas/the-kennel/internal/cache"
	"github.com/debemdeboas/the-kennel/internal/gateway"
	"github.com/debemdeboas/the-kennel/internal/model"
)

// Registry hands out one Store per owner, so the landing page, every editor session and the
// change watcher of an owner observe the same cache.
type Registry struct {
	source gateway.Source
	stores *cache.Cache[model.OwnerID, *Store]
}

func NewRegistry(source gateway.Source) *Registry {
	return &Registry{
		source: source,
		stores: cache.NewCache[model.OwnerID, *Store](),
	}
}

// Store returns the store of owner, creating it unfetched if needed.
func (r *Registry) Store(owner model.OwnerID) *Store {
	s, _ := r.stores.GetOrCreate(owner, func() *Store {
		s := NewStore(r.source)
		s.SetOwner(owner)
		return s
	})
	return s
}

// Ensure returns the store of owner, fetching it when nothing has been cached yet.
func (r *Registry) Ensure(ctx context.Context, owner model.OwnerID) (*Store, error) {
	s := r.Store(owner)
	if s.Fetched() {
		return s, nil
	}
	if err := s.Fetch(ctx, owner); err != nil && !errors.Is(err, ErrSuperseded) {
		return s, err
	}
	return s, nil
}

// Lookup returns the store of owner for read-only viewers such as the public landing page.
// Unlike Ensure it only keeps stores for owners the backend knows: an owner without a site
// yields ErrUnknownOwner and a failed fetch leaves nothing cached.
func (r *Registry) Lookup(ctx context.Context, owner model.OwnerID) (*Store, error) {
	if s, ok := r.stores.Get(owner); ok && s.Fetched() {
		if s.Missing() {
			return nil, ErrUnknownOwner
		}
		return s, nil
	}

	fresh := NewStore(r.source)
	if err := fresh.Fetch(ctx, owner); err != nil {
		fresh.Close()
		return nil, err
	}
	if fresh.Missing() {
		fresh.Close()
		return nil, ErrUnknownOwner
	}

	s, existed := r.stores.GetOrCreate(owner, func() *Store { return fresh })
	if !existed {
		return fresh, nil
	}
	if !s.Fetched() {
		// The cached store has not loaded yet; answer from this fetch.
		return fresh, nil
	}
	fresh.Close()
	return s, nil
}

// Len is the number of cached owners.
func (r *Registry) Len() int {
	return r.stores.Len()
}

// Refresh refetches owner if a store for it exists. Owners nobody looked at stay uncached.
func (r *Registry) Refresh(ctx context.Context, owner model.OwnerID) error {
	s, ok := r.stores.Get(owner)
	if !ok {
		return nil
	}
	return s.Refresh(ctx)
}

// Evict closes and forgets the store of owner.
func (r *Registry) Evict(owner model.OwnerID) {
	if s, ok := r.stores.Take(owner); ok {
		s.Close()
	}
}

func (r *Registry) Close() {
	for owner := range r.stores.Snapshot() {
		r.Evict(owner)
	}
}
