package model

import (
	"net/http"
	"strings"

	"github.com/debemdeboas/the-kennel/internal/config"
)

// PageData is the chrome shared by every page: site name, current path and the owner the
// page belongs to.
type PageData struct {
	SiteName string

	PageURL string

	Owner OwnerID

	IsEditorPage *bool
}

func NewPageData(r *http.Request, siteName string, owner OwnerID) *PageData {
	return &PageData{
		SiteName: siteName,
		PageURL:  r.URL.Path,
		Owner:    owner,
	}
}

func (pd *PageData) IsEditor() bool {
	if pd.IsEditorPage == nil {
		return strings.HasPrefix(pd.PageURL, config.AdminSitePath)
	}
	return *pd.IsEditorPage
}
