// Package routes defines HTTP route constants for the application.
package routes

// Public routes
const (
	RobotsPath  = "/robots.txt"
	RootPath    = "/{$}"
	SitePath    = "GET /sites/{owner}"
	SSEPath     = "GET /sse"
	PreviewPath = "GET /preview/{id}"
)

// Editor routes, served under config.AdminSitePath
const (
	AdminSite          = "GET /admin/site"
	AdminFields        = "POST /admin/site/fields"
	AdminLogo          = "POST /admin/site/logo"
	AdminLogoRemove    = "DELETE /admin/site/logo"
	AdminHero          = "POST /admin/site/hero"
	AdminHeroStaged    = "DELETE /admin/site/hero/staged/{index}"
	AdminHeroPersisted = "DELETE /admin/site/hero/persisted/{index}"
	AdminReset         = "POST /admin/site/reset"
	AdminSave          = "POST /admin/site/save"
	AdminClose         = "POST /admin/site/close"
	AdminRefresh       = "POST /admin/site/refresh"
)

// Embedded backend API
const (
	APILayoutGet = "GET /api/sites/{owner}/layout"
	APILayoutPut = "PUT /api/sites/{owner}/layout"
)
