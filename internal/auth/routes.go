package auth

import (
	"html/template"
	"io/fs"
	"net/http"

	"github.com/debemdeboas/the-kennel/internal/config"
)

const (
	ChallengePath = "/auth/challenge"
	VerifyPath    = "/auth/verify"
	LoginPath     = "/auth/login"
)

// RegisterEd25519AuthRoutes registers all the routes needed for owner signature authentication
func RegisterEd25519AuthRoutes(mux *http.ServeMux, provider *Ed25519AuthProvider, siteName string, templates fs.FS) error {
	tmpl, err := template.ParseFS(
		templates,
		config.TemplatesLocalDir+"/"+config.TemplateLayout,
		config.TemplatesLocalDir+"/"+config.TemplateAuth,
	)
	if err != nil {
		authLogger.Error().Err(err).Msg("Error loading auth template")
		return err
	}

	mux.HandleFunc(ChallengePath, Ed25519ChallengeHandler(provider))
	mux.HandleFunc(VerifyPath, Ed25519VerifyHandler(provider))
	mux.HandleFunc(LoginPath, Ed25519AuthPageHandler(siteName, tmpl))
	return nil
}
