package editor

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/debemdeboas/the-kennel/internal/gateway"
)

type State int

const (
	Idle State = iota
	Saving
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Saving:
		return "saving"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Saver commits the draft of one editor: it uploads the staged images, writes the full
// layout and refetches the store.
type Saver struct {
	editor   *Editor
	sink     gateway.Sink
	uploader gateway.Uploader

	mu      sync.Mutex
	state   State
	lastErr error
}

func NewSaver(e *Editor, sink gateway.Sink, uploader gateway.Uploader) *Saver {
	return &Saver{
		editor:   e,
		sink:     sink,
		uploader: uploader,
	}
}

func (s *Saver) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Observe reports the current state and the cause of a failure. A terminal state is reported
// once; afterwards the saver is Idle again.
func (s *Saver) Observe() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.state, s.lastErr
	if st == Succeeded || st == Failed {
		s.state = Idle
		s.lastErr = nil
	}
	return st, err
}

func (s *Saver) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Saving {
		return ErrSaveInProgress
	}
	s.state = Saving
	s.lastErr = nil
	return nil
}

func (s *Saver) end(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = Failed
		s.lastErr = err
		return
	}
	s.state = Succeeded
}

// Save uploads the staged logo, then all staged hero images concurrently, and writes a layout
// whose hero images are the kept persisted URLs followed by the new uploads in selection
// order. Nothing is written if any upload fails; uploads that did succeed are left on the
// image host. On failure the draft and the staged images are untouched.
func (s *Saver) Save(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}

	err := s.save(ctx)
	s.end(err)
	return err
}

func (s *Saver) save(ctx context.Context) error {
	c, err := s.editor.snapshot()
	if err != nil {
		return err
	}

	l := editorLogger.With().Str("owner", string(c.owner)).Logger()

	logoURL := c.draft.LogoURL
	if c.logo != nil {
		url, err := s.uploader.Upload(ctx, c.owner, c.logo.File)
		if err != nil {
			l.Error().Err(err).Str("file", c.logo.File.Name).Msg("Logo upload failed")
			return fmt.Errorf("%w: logo: %w", gateway.ErrUploadFailed, err)
		}
		logoURL = url
	}

	uploaded := make([]string, len(c.hero))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range c.hero {
		g.Go(func() error {
			url, err := s.uploader.Upload(gctx, c.owner, a.File)
			if err != nil {
				return fmt.Errorf("hero image %s: %w", a.File.Name, err)
			}
			uploaded[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.Error().Err(err).Msg("Hero upload failed")
		return fmt.Errorf("%w: %w", gateway.ErrUploadFailed, err)
	}

	images := make([]string, 0, len(c.draft.HeroImages)+len(uploaded))
	images = append(images, c.draft.HeroImages...)
	images = append(images, uploaded...)

	cfg := Compose(c.draft, logoURL, images, c.carry...)
	if _, err := s.sink.PutLayout(ctx, c.owner, cfg); err != nil {
		l.Error().Err(err).Msg("Layout write failed")
		return fmt.Errorf("%w: %w", gateway.ErrSaveFailed, err)
	}

	l.Info().Int("hero_images", len(images)).Int("uploaded", len(uploaded)).Msg("Layout saved")

	// The write already landed; a failed refetch is recorded by the store only.
	if err := s.editor.store.Refresh(ctx); err != nil {
		l.Warn().Err(err).Msg("Refetch after save failed")
	}

	s.editor.finish(c)
	return nil
}
