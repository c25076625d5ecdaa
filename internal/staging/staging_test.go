package staging

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

const errUnexpected = "Unexpected error: %v"

func TestNewFile(t *testing.T) {
	testCases := []struct {
		name        string
		contentType string
		data        []byte
		maxBytes    int64
		wantType    string
		wantErr     error
	}{
		{name: "Declared image type", contentType: "image/jpeg", data: []byte("jpeg"), wantType: "image/jpeg"},
		{name: "Sniffed png", data: pngHeader, wantType: "image/png"},
		{name: "Octet stream is sniffed", contentType: "application/octet-stream", data: pngHeader, wantType: "image/png"},
		{name: "Text is rejected", data: []byte("hello world"), wantErr: ErrNotImage},
		{name: "Declared non-image", contentType: "application/pdf", data: pngHeader, wantErr: ErrNotImage},
		{name: "Empty", contentType: "image/png", wantErr: ErrEmpty},
		{name: "Too large", contentType: "image/png", data: pngHeader, maxBytes: 4, wantErr: ErrTooLarge},
		{name: "No limit", contentType: "image/png", data: pngHeader, maxBytes: 0, wantType: "image/png"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := NewFile("pic", tc.contentType, tc.data, tc.maxBytes)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf(errUnexpected, err)
			}
			if f.ContentType != tc.wantType {
				t.Errorf("Expected content type %s, got %s", tc.wantType, f.ContentType)
			}
			if f.Name != "pic" {
				t.Errorf("Expected name pic, got %s", f.Name)
			}
		})
	}
}

func TestRegistry_CreateOpenRevoke(t *testing.T) {
	r := NewRegistry("/preview")
	f := File{Name: "a.png", ContentType: "image/png", Data: pngHeader}

	h := r.Create(f)
	if !strings.HasPrefix(h.URL, "/preview/") || !strings.HasSuffix(h.URL, h.ID) {
		t.Errorf("Unexpected preview URL %s for id %s", h.URL, h.ID)
	}
	if r.Outstanding() != 1 {
		t.Errorf("Expected 1 outstanding preview, got %d", r.Outstanding())
	}

	got, ok := r.Open(h.ID)
	if !ok || got.Name != "a.png" {
		t.Fatalf("Expected to open the staged file, got %+v %v", got, ok)
	}

	if err := r.Revoke(h); err != nil {
		t.Fatalf(errUnexpected, err)
	}
	if _, ok := r.Open(h.ID); ok {
		t.Error("Expected revoked preview to be gone")
	}
	if err := r.Revoke(h); !errors.Is(err, ErrRevoked) {
		t.Errorf("Expected ErrRevoked on second revoke, got %v", err)
	}
	if r.Outstanding() != 0 {
		t.Errorf("Expected no outstanding previews, got %d", r.Outstanding())
	}
}

func TestRegistry_UniqueHandles(t *testing.T) {
	r := NewRegistry("/preview/")
	f := File{Name: "a.png", ContentType: "image/png", Data: pngHeader}

	seen := make(map[string]bool)
	for range 50 {
		h := r.Create(f)
		if seen[h.ID] {
			t.Fatalf("Duplicate handle %s", h.ID)
		}
		seen[h.ID] = true
	}
}

func TestAsset_ReleaseExactlyOnce(t *testing.T) {
	r := NewRegistry("/preview/")
	a := Stage(r, File{Name: "a.png", ContentType: "image/png", Data: pngHeader})

	if a.Released() {
		t.Fatal("Expected fresh asset to be held")
	}
	if err := a.Release(); err != nil {
		t.Fatalf(errUnexpected, err)
	}
	if !a.Released() {
		t.Error("Expected asset to be released")
	}
	if err := a.Release(); !errors.Is(err, ErrReleased) {
		t.Errorf("Expected ErrReleased, got %v", err)
	}
	if r.Outstanding() != 0 {
		t.Errorf("Expected no outstanding previews, got %d", r.Outstanding())
	}
}

func TestAsset_ConcurrentRelease(t *testing.T) {
	r := NewRegistry("/preview/")
	a := Stage(r, File{Name: "a.png", ContentType: "image/png", Data: pngHeader})

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if a.Release() == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("Expected exactly one successful release, got %d", succeeded)
	}
}

func TestReleaseAll(t *testing.T) {
	r := NewRegistry("/preview/")
	f := File{Name: "a.png", ContentType: "image/png", Data: pngHeader}

	a, b, c := Stage(r, f), Stage(r, f), Stage(r, f)
	if err := b.Release(); err != nil {
		t.Fatalf(errUnexpected, err)
	}

	if err := ReleaseAll(a, nil, b, c); err != nil {
		t.Fatalf(errUnexpected, err)
	}
	if r.Outstanding() != 0 {
		t.Errorf("Expected no outstanding previews, got %d", r.Outstanding())
	}
}

// flakyPreviewer fails to revoke the handles listed in fail.
type flakyPreviewer struct {
	*Registry
	fail map[string]bool
}

func (p flakyPreviewer) Revoke(h Handle) error {
	if p.fail[h.ID] {
		return fmt.Errorf("revoke %s: %w", h.ID, ErrRevoked)
	}
	return p.Registry.Revoke(h)
}

func TestReleaseAll_JoinsFailures(t *testing.T) {
	p := flakyPreviewer{Registry: NewRegistry("/preview/"), fail: make(map[string]bool)}
	f := File{Name: "a.png", ContentType: "image/png", Data: pngHeader}

	a, b, c := Stage(p, f), Stage(p, f), Stage(p, f)
	p.fail[a.Handle.ID] = true
	p.fail[c.Handle.ID] = true

	err := ReleaseAll(a, b, c)
	if !errors.Is(err, ErrRevoked) {
		t.Fatalf("Expected %v, got %v", ErrRevoked, err)
	}
	for _, h := range []Handle{a.Handle, c.Handle} {
		if !strings.Contains(err.Error(), h.ID) {
			t.Errorf("Expected the error to name handle %s, got %v", h.ID, err)
		}
	}
	if !b.Released() || !c.Released() {
		t.Error("Expected every asset to be released despite the failures")
	}
	if _, ok := p.Open(b.Handle.ID); ok {
		t.Error("Expected the healthy handle to be revoked")
	}
}
