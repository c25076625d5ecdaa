package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/debemdeboas/the-kennel/internal/config"
	"github.com/debemdeboas/the-kennel/internal/model"
	"github.com/rs/zerolog"
)

var ErrNoOwner = errors.New("no site owner in context")

// Ed25519AuthProvider implements AuthProvider with one Ed25519 key per site owner. Every owner
// signs the same server challenge; refreshing it invalidates all issued cookies.
type Ed25519AuthProvider struct {
	keys       map[model.OwnerID]ed25519.PublicKey
	headerName string
	cookieName string

	mu        sync.RWMutex
	challenge []byte
}

// ParsePublicKey decodes a PEM-encoded PKIX Ed25519 public key.
func ParsePublicKey(publicKeyPEM string) (ed25519.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing the public key")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	publicKey, ok := pub.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("key is not an Ed25519 public key")
	}
	return publicKey, nil
}

// NewEd25519AuthProvider creates a provider from a map of owner ID to PEM public key.
func NewEd25519AuthProvider(ownerKeys map[string]string, headerName string) (*Ed25519AuthProvider, error) {
	keys := make(map[model.OwnerID]ed25519.PublicKey, len(ownerKeys))
	for owner, keyPEM := range ownerKeys {
		if owner == "" {
			return nil, errors.New("owner key with empty owner id")
		}
		key, err := ParsePublicKey(keyPEM)
		if err != nil {
			return nil, fmt.Errorf("owner %s: %w", owner, err)
		}
		keys[model.OwnerID(owner)] = key
	}

	p := &Ed25519AuthProvider{
		keys:       keys,
		headerName: headerName,
		cookieName: config.CookieAuthToken,
	}
	if err := p.RefreshChallenge(); err != nil {
		return nil, err
	}
	return p, nil
}

// Owners returns the owners that have a registered key.
func (p *Ed25519AuthProvider) Owners() []model.OwnerID {
	owners := make([]model.OwnerID, 0, len(p.keys))
	for o := range p.keys {
		owners = append(owners, o)
	}
	return owners
}

// verify reports whether signature is owner's signature of the current challenge.
func (p *Ed25519AuthProvider) verify(owner model.OwnerID, signature []byte) bool {
	key, ok := p.keys[owner]
	if !ok || len(signature) != ed25519.SignatureSize {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return ed25519.Verify(key, p.challenge, signature)
}

// requestOwner reads the claimed owner from the owner header or cookie.
func requestOwner(r *http.Request) model.OwnerID {
	if owner := strings.TrimSpace(r.Header.Get(config.HOwner)); owner != "" {
		return model.OwnerID(owner)
	}
	if cookie, err := r.Cookie(config.CookieAuthOwner); err == nil {
		if owner, err := url.QueryUnescape(cookie.Value); err == nil {
			return model.OwnerID(owner)
		}
	}
	return ""
}

// WithHeaderAuthorization returns middleware that validates Ed25519-signed challenges
func (p *Ed25519AuthProvider) WithHeaderAuthorization() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := zerolog.Ctx(r.Context())

			owner := requestOwner(r)
			if owner == "" {
				next.ServeHTTP(w, r)
				return
			}

			var signature []byte
			var err error

			// Try header first
			if authHeader := r.Header.Get(p.headerName); authHeader != "" {
				signature, err = base64.StdEncoding.DecodeString(strings.TrimSpace(authHeader))
				if err != nil {
					l.Error().Err(err).Msg("Failed to decode signature from header")
				}
			}

			// If header auth failed, try cookie
			if len(signature) == 0 {
				if cookie, err := r.Cookie(p.cookieName); err == nil && cookie.Value != "" {
					signature, err = base64.StdEncoding.DecodeString(cookie.Value)
					if err != nil {
						l.Error().Err(err).Msg("Failed to decode signature from cookie")
					}
				}
			}

			if len(signature) > 0 && p.verify(owner, signature) {
				next.ServeHTTP(w, r.WithContext(ContextWithOwner(r.Context(), owner)))
				return
			}

			// No valid signature (or none provided), proceed without an owner
			next.ServeHTTP(w, r)
		})
	}
}

// GetOwnerFromSession returns the owner authenticated by the middleware
func (p *Ed25519AuthProvider) GetOwnerFromSession(r *http.Request) (model.OwnerID, error) {
	return ownerFromSession(r)
}

// EnforceOwner writes a 401 with a login redirect when the request is not authenticated
func (p *Ed25519AuthProvider) EnforceOwner(w http.ResponseWriter, r *http.Request) (model.OwnerID, error) {
	return enforceOwner(p, w, r)
}

// GetChallenge returns a copy of the current challenge that needs to be signed
func (p *Ed25519AuthProvider) GetChallenge() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]byte(nil), p.challenge...)
}

// RefreshChallenge generates a new random challenge
func (p *Ed25519AuthProvider) RefreshChallenge() error {
	challenge := make([]byte, 32)
	if _, err := rand.Read(challenge); err != nil {
		authLogger.Error().Err(err).Msg("Failed to generate challenge")
		return fmt.Errorf("failed to generate challenge: %w", err)
	}

	p.mu.Lock()
	p.challenge = challenge
	p.mu.Unlock()
	return nil
}

func ownerFromSession(r *http.Request) (model.OwnerID, error) {
	owner, ok := OwnerFromContext(r.Context())
	if !ok {
		zerolog.Ctx(r.Context()).Debug().Msg("No site owner found in context")
		return "", ErrNoOwner
	}
	return owner, nil
}

func enforceOwner(p AuthProvider, w http.ResponseWriter, r *http.Request) (model.OwnerID, error) {
	owner, err := p.GetOwnerFromSession(r)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("Unauthorized access attempt")

		w.Header().Add(config.HHxRedirect, LoginPath+"?redirect="+url.QueryEscape(r.URL.RequestURI()))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return "", err
	}
	return owner, nil
}
