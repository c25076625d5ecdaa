package auth

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/debemdeboas/the-kennel/internal/config"
	"github.com/debemdeboas/the-kennel/internal/model"
	"github.com/rs/zerolog"
)

const authCookieMaxAge = 3600 * 24 // 24 hours

func writeChallenge(w http.ResponseWriter, challenge []byte) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	json.NewEncoder(w).Encode(map[string]string{
		"challenge": base64.StdEncoding.EncodeToString(challenge),
	})
}

// Ed25519ChallengeHandler serves the current challenge on GET and replaces it on POST
func Ed25519ChallengeHandler(provider *Ed25519AuthProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := zerolog.Ctx(r.Context())
		switch r.Method {
		case http.MethodGet:
			writeChallenge(w, provider.GetChallenge())

		case http.MethodPost:
			if err := provider.RefreshChallenge(); err != nil {
				l.Error().Err(err).Msg("Failed to refresh challenge")
				http.Error(w, config.ErrRefreshChallenge, http.StatusInternalServerError)
				return
			}
			writeChallenge(w, provider.GetChallenge())

		default:
			http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		}
	}
}

// Ed25519VerifyHandler checks the owner's signature of the challenge and sets the auth cookies
func Ed25519VerifyHandler(provider *Ed25519AuthProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := zerolog.Ctx(r.Context())
		if r.Method != http.MethodPost {
			http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
			return
		}

		authHeader := r.Header.Get(provider.headerName)
		if authHeader == "" {
			http.Error(w, config.ErrAuthHeaderRequired, http.StatusUnauthorized)
			return
		}

		owner := model.OwnerID(strings.TrimSpace(r.Header.Get(config.HOwner)))
		if owner == "" {
			owner = model.OwnerID(strings.TrimSpace(r.FormValue("owner")))
		}
		key, ok := provider.keys[owner]
		if !ok {
			l.Warn().Str("owner", string(owner)).Msg("Verification for unknown owner")
			http.Error(w, config.ErrUnknownOwner, http.StatusUnauthorized)
			return
		}

		signature, err := base64.StdEncoding.DecodeString(strings.TrimSpace(authHeader))
		if err != nil {
			l.Error().Err(err).Msg("Failed to decode signature")
			http.Error(w, config.ErrInvalidSignatureFormat, http.StatusUnauthorized)
			return
		}

		if !ed25519.Verify(key, provider.GetChallenge(), signature) {
			l.Warn().Str("owner", string(owner)).Msg("Signature verification failed")
			http.Error(w, config.ErrInvalidSignature, http.StatusUnauthorized)
			return
		}

		for name, value := range map[string]string{
			config.CookieAuthToken: base64.StdEncoding.EncodeToString(signature),
			config.CookieAuthOwner: url.QueryEscape(string(owner)),
		} {
			http.SetCookie(w, &http.Cookie{
				Name:     name,
				Value:    value,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteStrictMode,
				Secure:   r.TLS != nil,
				MaxAge:   authCookieMaxAge,
			})
		}

		l.Info().Str("owner", string(owner)).Msg("Site owner signed in")
		w.WriteHeader(http.StatusOK)
	}
}

// Ed25519AuthPageHandler serves the authentication page
func Ed25519AuthPageHandler(siteName string, tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := zerolog.Ctx(r.Context())

		redirectURL := r.URL.Query().Get("redirect")
		// Only local redirects are followed after sign-in.
		if redirectURL == "" || !strings.HasPrefix(redirectURL, "/") || strings.HasPrefix(redirectURL, "//") {
			redirectURL = config.AdminSitePath
		}

		data := struct {
			*model.PageData
			RedirectURL string
		}{
			PageData:    model.NewPageData(r, siteName, ""),
			RedirectURL: redirectURL,
		}

		w.Header().Set(config.HCType, config.CTypeHTML)
		if r.URL.Query().Get("refresh") == "true" {
			w.Header().Set(config.HHxRedirect, LoginPath)
		}

		if err := tmpl.ExecuteTemplate(w, config.TemplateNameLayout, data); err != nil {
			l.Error().Err(err).Msg("Failed to render auth template")
			http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		}
	}
}
