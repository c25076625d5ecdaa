package staging

import (
	"errors"
	"sync"
)

// Asset pairs a staged file with its preview handle. The asset owns the handle: Release
// revokes it exactly once, and every later call reports ErrReleased.
type Asset struct {
	File   File
	Handle Handle

	previewer Previewer

	mu       sync.Mutex
	released bool
}

// Stage creates the preview handle for f.
func Stage(p Previewer, f File) *Asset {
	return &Asset{
		File:      f,
		Handle:    p.Create(f),
		previewer: p,
	}
}

func (a *Asset) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.released {
		return ErrReleased
	}
	a.released = true
	return a.previewer.Revoke(a.Handle)
}

func (a *Asset) Released() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.released
}

// ReleaseAll releases every asset that is still held. A failed revoke does not stop the
// others; all failures are joined.
func ReleaseAll(assets ...*Asset) error {
	var errs []error
	for _, a := range assets {
		if a == nil || a.Released() {
			continue
		}
		if err := a.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
