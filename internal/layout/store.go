// Package layout caches the layout config of a site owner and publishes its per-section views.
package layout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/debemdeboas/the-kennel/internal/gateway"
	"github.com/debemdeboas/the-kennel/internal/model"
	"github.com/rs/zerolog"
)

var (
	ErrClosed = errors.New("layout store closed")
	// ErrSuperseded is returned by a fetch whose response arrived after a newer fetch was issued.
	ErrSuperseded = errors.New("layout fetch superseded by a newer fetch")
	ErrNoOwner    = errors.New("layout store has no owner")
	// ErrUnknownOwner is returned by Registry.Lookup for owners the backend has no site for.
	ErrUnknownOwner = errors.New("owner has no site")
)

var layoutLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	layoutLogger = l
}

// Store holds the last fetched layout config of one owner. Subscribers are told about every
// replacement of the cached config, in the order the replacements happened.
type Store struct {
	source gateway.Source

	// notifyMu serializes apply+notify so subscribers never see views out of order.
	notifyMu sync.Mutex

	mu      sync.RWMutex
	owner   model.OwnerID
	config  *model.LayoutConfig
	views   model.Views
	err     error
	seq     uint64
	loading bool
	fetched bool
	missing bool
	closed  bool
	subs    map[int]func(model.Views)
	nextSub int
}

func NewStore(source gateway.Source) *Store {
	return &Store{
		source: source,
		subs:   make(map[int]func(model.Views)),
	}
}

// SetOwner scopes later refreshes to owner. The cached config is kept until the next fetch
// replaces it.
func (s *Store) SetOwner(owner model.OwnerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = owner
}

func (s *Store) Owner() model.OwnerID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

// Fetch makes owner active and reads its config. On failure the previous cache is kept and
// the error, wrapping gateway.ErrFetchFailed, is both returned and exposed through Err.
func (s *Store) Fetch(ctx context.Context, owner model.OwnerID) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.owner = owner
	s.seq++
	seq := s.seq
	s.loading = true
	s.mu.Unlock()

	cfg, fetchErr := s.source.GetLayout(ctx, owner)
	missing := errors.Is(fetchErr, gateway.ErrNotFound)
	if missing {
		// An owner that never saved has an empty layout.
		cfg, fetchErr = nil, nil
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if seq != s.seq {
		s.mu.Unlock()
		layoutLogger.Debug().Str("owner", string(owner)).Uint64("seq", seq).Msg("Discarding superseded layout response")
		return ErrSuperseded
	}
	s.loading = false

	if fetchErr != nil {
		s.err = fmt.Errorf("%w: %w", gateway.ErrFetchFailed, fetchErr)
		err := s.err
		s.mu.Unlock()
		layoutLogger.Warn().Err(fetchErr).Str("owner", string(owner)).Msg("Layout fetch failed")
		return err
	}

	if cfg == nil {
		cfg = &model.LayoutConfig{}
	}
	s.config = cfg
	s.views = cfg.Views()
	s.err = nil
	s.fetched = true
	s.missing = missing
	views := s.views
	subs := make([]func(model.Views), 0, len(s.subs))
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	layoutLogger.Debug().Str("owner", string(owner)).Int("sections", len(cfg.Sections)).Msg("Layout cached")

	for _, fn := range subs {
		fn(views)
	}
	return nil
}

// Refresh fetches the active owner again.
func (s *Store) Refresh(ctx context.Context) error {
	owner := s.Owner()
	if owner == "" {
		return ErrNoOwner
	}
	return s.Fetch(ctx, owner)
}

// Subscribe registers fn for every cache replacement and returns the function that removes
// it. fn runs on the fetching goroutine and must not call Fetch or Refresh synchronously.
func (s *Store) Subscribe(fn func(model.Views)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err is the error of the last completed fetch, or nil if it succeeded.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Fetched reports whether any fetch has succeeded.
func (s *Store) Fetched() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetched
}

// Missing reports whether the last successful fetch found no site for the owner.
func (s *Store) Missing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.missing
}

// Config returns a copy of the cached config, or nil before the first successful fetch.
func (s *Store) Config() *model.LayoutConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Clone()
}

// Views returns the cached per-section views. The sections are shared and must be treated
// as read-only.
func (s *Store) Views() model.Views {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.views
}

func (s *Store) Header() *model.HeaderSection   { return s.Views().Header }
func (s *Store) Hero() *model.HeroSection       { return s.Views().Hero }
func (s *Store) PetList() *model.PetListSection { return s.Views().PetList }
func (s *Store) About() *model.AboutSection     { return s.Views().About }
func (s *Store) Footer() *model.FooterSection   { return s.Views().Footer }

// Close drops every subscriber. Fetches in flight are discarded when they return.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.loading = false
	s.subs = make(map[int]func(model.Views))
}
