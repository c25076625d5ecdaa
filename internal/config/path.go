package config

const (
	//? These paths must match the paths in the embed directive

	StaticLocalDir = "static"
	StaticUrlPath  = "/" + StaticLocalDir + "/"

	SitesUrlPath   = "/sites/"
	PreviewUrlPath = "/preview/"
	AdminSitePath  = "/admin/site"

	TemplatesLocalDir = "templates"

	TemplateLayout  = "layout.html"
	TemplateLanding = "landing.html"
	TemplateEditor  = "editor.html"
	TemplateAuth    = "auth.html"

	// TemplateNameLayout is the root template every page executes.
	TemplateNameLayout = "layout"
)
