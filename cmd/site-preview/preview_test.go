package main

import (
	"bytes"
	"html/template"
	"strings"
	"testing"

	"github.com/debemdeboas/the-kennel/internal/model"
	"github.com/debemdeboas/the-kennel/internal/render"
)

func TestRenderPreview(t *testing.T) {
	page := render.LandingPage{
		Header: &render.HeaderView{BusinessName: "Sunny Paws"},
		Hero: render.HeroView{
			Title:        "Welcome",
			Slides:       []render.Slide{{Index: 0, URL: "a.jpg"}, {Index: 1, URL: "b.jpg", Active: true}},
			Current:      1,
			Prev:         0,
			Next:         0,
			ShowControls: true,
		},
		Pets:   []model.PetRef{{ID: "p1", Name: "Bolt", Breed: "Golden"}},
		About:  &render.AboutView{Title: "About", Content: template.HTML("<p>Since 1998</p>")},
		Footer: &render.FooterView{Email: "hi@sunny.example"},
	}

	out := renderPreview(page)
	for _, want := range []string{"Sunny Paws", "Welcome", "a.jpg", "b.jpg", "2/2", "Bolt", "Golden", "Since 1998", "hi@sunny.example"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected preview to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRenderPreview_Background(t *testing.T) {
	out := renderPreview(render.LandingPage{Hero: render.HeroView{Background: "/static/hero-default.svg"}})
	if !strings.Contains(out, "/static/hero-default.svg") {
		t.Errorf("Expected the background in the preview, got:\n%s", out)
	}
	if strings.Contains(out, "●") {
		t.Errorf("Expected no slides, got:\n%s", out)
	}
}

func TestHighlightJSON(t *testing.T) {
	cfg := &model.LayoutConfig{Sections: []model.Section{&model.HeaderSection{BusinessName: "Sunny Paws"}}}

	var buf bytes.Buffer
	if err := highlightJSON(&buf, cfg, "monokai"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"businessName", "Sunny Paws", "header", "\x1b["} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got %q", want, out)
		}
	}
}
