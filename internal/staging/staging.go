// Package staging keeps locally selected images, and the preview handles that show them, until
// a save uploads them.
package staging

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrRevoked  = errors.New("preview handle already revoked")
	ErrReleased = errors.New("staged asset already released")
	ErrTooLarge = errors.New("file exceeds the upload limit")
	ErrNotImage = errors.New("file is not an image")
	ErrEmpty    = errors.New("file is empty")
)

var stagingLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	stagingLogger = l
}

// File is an image selected by the user that has not been uploaded yet.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// NewFile validates a selected file against maxBytes and sniffs its content type when the
// client did not send one.
func NewFile(name, contentType string, data []byte, maxBytes int64) (File, error) {
	if len(data) == 0 {
		return File{}, ErrEmpty
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return File{}, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(data), maxBytes)
	}

	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return File{}, fmt.Errorf("%w: %s", ErrNotImage, contentType)
	}

	return File{Name: name, ContentType: contentType, Data: data}, nil
}

// Handle references a preview of a staged file. It is only meaningful to the Previewer that
// created it.
type Handle struct {
	ID  string
	URL string
}

// Previewer creates and revokes preview handles.
type Previewer interface {
	Create(f File) Handle
	Revoke(h Handle) error
}

// Registry is the in-memory Previewer behind /preview/{id}.
type Registry struct {
	mu      sync.RWMutex
	baseURL string
	files   map[string]File
}

func NewRegistry(baseURL string) *Registry {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Registry{
		baseURL: baseURL,
		files:   make(map[string]File),
	}
}

func (r *Registry) Create(f File) Handle {
	id := uuid.New().String()

	r.mu.Lock()
	r.files[id] = f
	r.mu.Unlock()

	stagingLogger.Debug().Str("handle", id).Str("name", f.Name).Int("size", len(f.Data)).Msg("Preview created")
	return Handle{ID: id, URL: r.baseURL + id}
}

func (r *Registry) Revoke(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[h.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrRevoked, h.ID)
	}
	delete(r.files, h.ID)

	stagingLogger.Debug().Str("handle", h.ID).Msg("Preview revoked")
	return nil
}

// Open returns the staged file behind a preview id.
func (r *Registry) Open(id string) (File, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.files[id]
	return f, ok
}

// Outstanding is the number of previews created and not yet revoked.
func (r *Registry) Outstanding() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.files)
}
