// Package render builds the public landing page of a breeder site from its layout views.
package render

import (
	"html/template"
	"sync"

	"github.com/gomarkdown/markdown"
	md_html "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/the-kennel/internal/cache"
	"github.com/debemdeboas/the-kennel/internal/util"
)

var renderLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	renderLogger = l
}

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy

	rendered = cache.NewCache[string, template.HTML]()
)

func sanitizer() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.UGCPolicy()
		policy.RequireNoFollowOnLinks(true)
		policy.AddTargetBlankToFullyQualifiedLinks(true)
	})
	return policy
}

// RenderMarkdown turns owner-written Markdown into sanitized HTML. Raw HTML in the input is
// filtered by the UGC policy.
func RenderMarkdown(md []byte) template.HTML {
	doc := parser.NewWithExtensions(
		parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock,
	).Parse(markdown.NormalizeNewlines(md))

	opts := md_html.RendererOptions{
		Flags: md_html.CommonFlags | md_html.HrefTargetBlank,
	}
	out := markdown.Render(doc, md_html.NewRenderer(opts))

	return template.HTML(sanitizer().SanitizeBytes(out))
}

// RenderMarkdownCached memoizes RenderMarkdown by content hash.
func RenderMarkdownCached(md []byte) template.HTML {
	if len(md) == 0 {
		return ""
	}

	key := util.ContentHash(md)
	if html, ok := rendered.Get(key); ok {
		renderLogger.Debug().Str("contentHash", key).Msg("Cache hit for rendered markdown")
		return html
	}

	renderLogger.Debug().Str("contentHash", key).Msg("Cache miss for rendered markdown")
	html := RenderMarkdown(md)
	rendered.Set(key, html)
	return html
}

// ClearCache drops every memoized rendering.
func ClearCache() {
	rendered.Clear()
}
