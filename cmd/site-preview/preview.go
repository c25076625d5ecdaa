package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/debemdeboas/the-kennel/internal/model"
	"github.com/debemdeboas/the-kennel/internal/render"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	sectionStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
)

// renderPreview draws the landing page as terminal boxes, one per present section.
func renderPreview(page render.LandingPage) string {
	var blocks []string

	if h := page.Header; h != nil {
		line := titleStyle.Render(h.BusinessName)
		if h.LogoURL != "" {
			line += "\n" + labelStyle.Render("logo ") + h.LogoURL
		}
		blocks = append(blocks, sectionStyle.Render(line))
	}

	blocks = append(blocks, sectionStyle.Render(renderHero(page.Hero)))

	if len(page.Pets) > 0 {
		var lines []string
		for _, p := range page.Pets {
			line := p.Name
			if p.Breed != "" {
				line += labelStyle.Render(" · " + p.Breed)
			}
			if p.Price > 0 {
				line += labelStyle.Render(fmt.Sprintf(" · %.2f", p.Price))
			}
			lines = append(lines, line)
		}
		blocks = append(blocks, sectionStyle.Render(strings.Join(lines, "\n")))
	}

	if a := page.About; a != nil {
		blocks = append(blocks, sectionStyle.Render(titleStyle.Render(a.Title)+"\n"+string(a.Content)))
	}

	if f := page.Footer; f != nil {
		var parts []string
		for _, p := range []struct{ label, value string }{{"phone", f.Phone}, {"email", f.Email}, {"address", f.Address}} {
			if p.value != "" {
				parts = append(parts, labelStyle.Render(p.label+" ")+p.value)
			}
		}
		blocks = append(blocks, sectionStyle.Render(strings.Join(parts, "\n")))
	}

	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func renderHero(h render.HeroView) string {
	var sb strings.Builder
	if h.Title != "" {
		sb.WriteString(titleStyle.Render(h.Title) + "\n")
	}
	if h.Subtitle != "" {
		sb.WriteString(h.Subtitle + "\n")
	}

	if !h.Slideshow() {
		sb.WriteString(labelStyle.Render("background ") + h.Background)
		return sb.String()
	}

	for _, s := range h.Slides {
		if s.Active {
			sb.WriteString(activeStyle.Render("● " + s.URL))
		} else {
			sb.WriteString(labelStyle.Render("○ " + s.URL))
		}
		sb.WriteString("\n")
	}
	if h.ShowControls {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("‹ %d  %d/%d  %d ›", h.Prev+1, h.Current+1, len(h.Slides), h.Next+1)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// highlightJSON writes the indented layout config with terminal syntax colors.
func highlightJSON(w io.Writer, cfg *model.LayoutConfig, style string) error {
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	lexer := lexers.Get("json")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, string(raw))
	if err != nil {
		return err
	}
	return formatters.Get("terminal256").Format(w, styles.Get(style), iterator)
}
