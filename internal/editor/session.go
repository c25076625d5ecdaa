package editor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/debemdeboas/the-kennel/internal/model"
)

var ErrSessionNotFound = errors.New("editor session not found")

type SessionID string

// Session is one open editor page: its draft and the saver that commits it.
type Session struct {
	ID    SessionID
	Owner model.OwnerID

	Editor *Editor
	Saver  *Saver

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// SessionRepository keeps editor sessions in memory. Removing a session, explicitly or by
// expiry, closes its editor.
type SessionRepository struct {
	sessions sync.Map
	now      func() time.Time
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{now: time.Now}
}

func (r *SessionRepository) Create(owner model.OwnerID, e *Editor, s *Saver) *Session {
	session := &Session{
		ID:       SessionID(uuid.New().String()),
		Owner:    owner,
		Editor:   e,
		Saver:    s,
		lastSeen: r.now(),
	}
	r.sessions.Store(session.ID, session)

	editorLogger.Debug().Str("session", string(session.ID)).Str("owner", string(owner)).Msg("Editor session created")
	return session
}

// Get returns the session and marks it as used.
func (r *SessionRepository) Get(id SessionID) (*Session, error) {
	if v, ok := r.sessions.Load(id); ok {
		session := v.(*Session)
		session.touch(r.now())
		return session, nil
	}
	return nil, ErrSessionNotFound
}

func (r *SessionRepository) Delete(id SessionID) {
	if v, ok := r.sessions.LoadAndDelete(id); ok {
		v.(*Session).Editor.Close()
		editorLogger.Debug().Str("session", string(id)).Msg("Editor session closed")
	}
}

func (r *SessionRepository) Len() int {
	n := 0
	r.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Expire closes every session unused for longer than idle and returns how many it closed.
func (r *SessionRepository) Expire(idle time.Duration) int {
	now := r.now()
	var expired []SessionID
	r.sessions.Range(func(k, v any) bool {
		if v.(*Session).idleSince(now) > idle {
			expired = append(expired, k.(SessionID))
		}
		return true
	})

	for _, id := range expired {
		r.Delete(id)
	}
	if len(expired) > 0 {
		editorLogger.Info().Int("count", len(expired)).Msg("Expired idle editor sessions")
	}
	return len(expired)
}

// Janitor expires idle sessions every interval until ctx is done, then closes the rest.
func (r *SessionRepository) Janitor(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.CloseAll()
			return
		case <-ticker.C:
			r.Expire(idle)
		}
	}
}

func (r *SessionRepository) CloseAll() {
	r.sessions.Range(func(k, _ any) bool {
		r.Delete(k.(SessionID))
		return true
	})
}
