package auth

import (
	"net/http"

	"github.com/debemdeboas/the-kennel/internal/model"
	"github.com/rs/zerolog"
)

var authLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	authLogger = l
}

type AuthProvider interface {
	WithHeaderAuthorization() func(http.Handler) http.Handler

	GetOwnerFromSession(r *http.Request) (model.OwnerID, error)

	EnforceOwner(w http.ResponseWriter, r *http.Request) (model.OwnerID, error)
}
