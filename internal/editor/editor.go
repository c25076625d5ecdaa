// Package editor holds the uncommitted state of the site appearance editor and commits it.
package editor

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/debemdeboas/the-kennel/internal/layout"
	"github.com/debemdeboas/the-kennel/internal/model"
	"github.com/debemdeboas/the-kennel/internal/staging"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrClosed          = errors.New("editor closed")
	ErrSaveInProgress  = errors.New("save already in progress")
)

var editorLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	editorLogger = l
}

// Editor is the draft of one editing session. Every update of its store overwrites all draft
// fields with the persisted values, discarding unsaved edits; staged images are kept.
type Editor struct {
	store     *layout.Store
	previewer staging.Previewer

	mu     sync.Mutex
	draft  Draft
	synced Draft
	logo   *staging.Asset
	hero   []*staging.Asset
	closed bool

	unsubscribe func()
}

func New(store *layout.Store, previewer staging.Previewer) *Editor {
	e := &Editor{
		store:     store,
		previewer: previewer,
	}

	// Subscribed before the seed is read, so an update landing in between waits on e.mu and
	// is applied after it.
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unsubscribe = store.Subscribe(e.resync)
	e.synced = DraftFromViews(store.Views())
	e.draft = e.synced.clone()
	return e
}

func (e *Editor) resync(v model.Views) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	if e.dirtyLocked() {
		editorLogger.Debug().Str("owner", string(e.store.Owner())).Msg("Discarding unsaved draft edits on resync")
	}
	e.synced = DraftFromViews(v)
	e.draft = e.synced.clone()
}

func (e *Editor) Store() *layout.Store {
	return e.store
}

// Draft returns a copy of the current draft.
func (e *Editor) Draft() Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft.clone()
}

// StagedLogo returns the preview of the staged logo, if one is selected.
func (e *Editor) StagedLogo() (staging.Handle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.logo == nil {
		return staging.Handle{}, false
	}
	return e.logo.Handle, true
}

// StagedHero returns the previews of the staged hero images in selection order.
func (e *Editor) StagedHero() []staging.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]staging.Handle, len(e.hero))
	for i, a := range e.hero {
		out[i] = a.Handle
	}
	return out
}

// Dirty reports unsaved field edits or staged images.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirtyLocked()
}

func (e *Editor) dirtyLocked() bool {
	return e.logo != nil || len(e.hero) > 0 || !e.draft.Equal(e.synced)
}

func (e *Editor) SetField(section model.SectionType, field, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	ref, err := e.draft.fieldRef(section, field)
	if err != nil {
		return err
	}
	*ref = value
	return nil
}

// SelectLogo stages f as the new logo. A previously staged logo is revoked before the new
// preview is created, so at most one logo preview exists at a time.
func (e *Editor) SelectLogo(f staging.File) (staging.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return staging.Handle{}, ErrClosed
	}

	if e.logo != nil {
		e.release(e.logo)
		e.logo = nil
	}
	e.logo = staging.Stage(e.previewer, f)
	return e.logo.Handle, nil
}

// SelectHeroImage appends f to the staged hero images.
func (e *Editor) SelectHeroImage(f staging.File) (staging.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return staging.Handle{}, ErrClosed
	}

	a := staging.Stage(e.previewer, f)
	e.hero = append(e.hero, a)
	return a.Handle, nil
}

// RemoveStagedHeroImage drops and revokes the staged image at index. Indexes outside
// [0, staged count) fail with ErrInvalidArgument and change nothing.
func (e *Editor) RemoveStagedHeroImage(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if index < 0 || index >= len(e.hero) {
		return fmt.Errorf("%w: staged hero index %d out of range [0, %d)", ErrInvalidArgument, index, len(e.hero))
	}

	e.release(e.hero[index])
	e.hero = slices.Delete(e.hero, index, index+1)
	return nil
}

// RemovePersistedHeroImage drops a persisted hero URL from the draft. The remote image is
// left alone.
func (e *Editor) RemovePersistedHeroImage(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if index < 0 || index >= len(e.draft.HeroImages) {
		return fmt.Errorf("%w: hero image index %d out of range [0, %d)", ErrInvalidArgument, index, len(e.draft.HeroImages))
	}

	e.draft.HeroImages = slices.Delete(slices.Clone(e.draft.HeroImages), index, index+1)
	return nil
}

// RemoveLogo clears both the staged logo and the persisted logo URL of the draft.
func (e *Editor) RemoveLogo() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	if e.logo != nil {
		e.release(e.logo)
		e.logo = nil
	}
	e.draft.LogoURL = ""
	return nil
}

// Reset reverts the draft to the last synced values and revokes every staged image.
func (e *Editor) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	e.draft = e.synced.clone()
	e.releaseAllLocked()
	return nil
}

// Close tears the editor down: it stops following the store and revokes every preview it
// still holds. Calling Close again does nothing.
func (e *Editor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.releaseAllLocked()
	e.mu.Unlock()

	e.unsubscribe()
}

func (e *Editor) releaseAllLocked() {
	if err := staging.ReleaseAll(append([]*staging.Asset{e.logo}, e.hero...)...); err != nil {
		editorLogger.Error().Err(err).Msg("Failed to revoke previews")
	}
	e.logo = nil
	e.hero = nil
}

func (e *Editor) release(a *staging.Asset) {
	if err := a.Release(); err != nil {
		editorLogger.Error().Err(err).Str("handle", a.Handle.ID).Msg("Failed to revoke preview")
	}
}

// commit is what a save works from: the draft and the staged assets at the time it started.
type commit struct {
	owner model.OwnerID
	draft Draft
	logo  *staging.Asset
	hero  []*staging.Asset
	carry []model.Section
}

func (e *Editor) snapshot() (commit, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return commit{}, ErrClosed
	}

	owner := e.store.Owner()
	if owner == "" {
		return commit{}, layout.ErrNoOwner
	}

	var carry []model.Section
	if cfg := e.store.Config(); cfg != nil {
		carry = cfg.Sections
	}

	return commit{
		owner: owner,
		draft: e.draft.clone(),
		logo:  e.logo,
		hero:  slices.Clone(e.hero),
		carry: carry,
	}, nil
}

// finish releases the staged assets a successful save uploaded. Assets staged or removed
// while the save ran are left to their current owner.
func (e *Editor) finish(c commit) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	if c.logo != nil && e.logo == c.logo {
		e.release(e.logo)
		e.logo = nil
	}

	kept := e.hero[:0]
	for _, a := range e.hero {
		if slices.Contains(c.hero, a) {
			e.release(a)
			continue
		}
		kept = append(kept, a)
	}
	clear(e.hero[len(kept):])
	e.hero = kept
}
