// Package gateway talks to the layout REST backend and to the image host.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/debemdeboas/the-kennel/internal/model"
	"github.com/debemdeboas/the-kennel/internal/staging"
	"github.com/rs/zerolog"
)

var (
	// ErrFetchFailed wraps every failure to read a layout config.
	ErrFetchFailed = errors.New("layout fetch failed")
	// ErrUploadFailed wraps every failure to upload a staged image.
	ErrUploadFailed = errors.New("image upload failed")
	// ErrSaveFailed wraps every failure to write a layout config.
	ErrSaveFailed = errors.New("layout save failed")
	// ErrNotFound is returned when the backend has no layout for the owner.
	ErrNotFound = errors.New("layout not found")
)

var gatewayLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	gatewayLogger = l
}

// Source reads layout configs.
type Source interface {
	GetLayout(ctx context.Context, owner model.OwnerID) (*model.LayoutConfig, error)
}

// Sink replaces layout configs. The config sent is the full new state, not a patch.
type Sink interface {
	PutLayout(ctx context.Context, owner model.OwnerID, cfg *model.LayoutConfig) (*model.LayoutConfig, error)
}

type Backend interface {
	Source
	Sink
}

// Uploader stores one image and returns its durable public URL.
type Uploader interface {
	Upload(ctx context.Context, owner model.OwnerID, f staging.File) (string, error)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: http %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Op, e.Status, e.Body)
}

// envelope is the body of both layout endpoints.
type envelope struct {
	LayoutConfig *model.LayoutConfig `json:"layoutConfig"`
}
