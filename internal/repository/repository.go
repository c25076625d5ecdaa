// Package repository stores layout configs and pet listings for the embedded backend.
package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/the-kennel/internal/model"
)

var repoLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}

type LayoutRepository interface {
	GetLayout(ctx context.Context, owner model.OwnerID) (*model.LayoutConfig, error)
	PutLayout(ctx context.Context, owner model.OwnerID, cfg *model.LayoutConfig) (*model.LayoutConfig, error)

	PutPet(ctx context.Context, owner model.OwnerID, pet model.PetRef) error
	ReplacePets(ctx context.Context, owner model.OwnerID, pets []model.PetRef) error
	Owners(ctx context.Context) ([]model.OwnerID, error)

	// Watch polls for layout changes every interval and calls notify for each owner whose
	// stored layout changed, until ctx is done.
	Watch(ctx context.Context, interval time.Duration, notify func(model.OwnerID))
}
