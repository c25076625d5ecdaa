package render

import (
	"html/template"
	"io"
	"io/fs"
	"time"

	"github.com/debemdeboas/the-kennel/internal/config"
	"github.com/debemdeboas/the-kennel/internal/model"
)

// SlideInterval is how long each hero image is shown before the slideshow advances.
const SlideInterval = 5 * time.Second

type HeaderView struct {
	BusinessName string
	LogoURL      string
}

type Slide struct {
	Index  int
	URL    string
	Active bool
}

// HeroView is either a slideshow over Slides or, without images, a fixed Background.
type HeroView struct {
	Title    string
	Subtitle string

	Slides     []Slide
	Current    int
	Prev, Next int

	ShowControls   bool
	ShowIndicators bool
	IntervalMs     int64

	Background string
}

func (h HeroView) Slideshow() bool { return len(h.Slides) > 0 }

type AboutView struct {
	Title   string
	Content template.HTML
}

type FooterView struct {
	Phone   string
	Email   string
	Address string
}

// LandingPage is the read-only view model of a landing page. Absent sections are nil.
type LandingPage struct {
	Header *HeaderView
	Hero   HeroView
	Pets   []model.PetRef
	About  *AboutView
	Footer *FooterView
}

// BuildLanding resolves the views into a landing page showing hero image slide, wrapped
// into range.
func BuildLanding(v model.Views, slide int, defaultBackground string) LandingPage {
	var p LandingPage

	if h := v.Header; h != nil && (h.BusinessName != "" || h.LogoURL != "") {
		p.Header = &HeaderView{BusinessName: h.BusinessName, LogoURL: h.LogoURL}
	}

	p.Hero = buildHero(v.Hero, slide, defaultBackground)

	if pl := v.PetList; pl != nil {
		p.Pets = pl.Pets
	}

	if a := v.About; a != nil && (a.Title != "" || a.Content != "") {
		p.About = &AboutView{Title: a.Title, Content: RenderMarkdownCached([]byte(a.Content))}
	}

	if f := v.Footer; f != nil && (f.Phone != "" || f.Email != "" || f.Address != "") {
		p.Footer = &FooterView{Phone: f.Phone, Email: f.Email, Address: f.Address}
	}

	return p
}

func buildHero(h *model.HeroSection, slide int, defaultBackground string) HeroView {
	var hero HeroView
	if h == nil {
		hero.Background = defaultBackground
		return hero
	}

	hero.Title, hero.Subtitle = h.Title, h.Subtitle

	var images []string
	for _, img := range h.Images {
		if img != "" {
			images = append(images, img)
		}
	}
	if len(images) == 0 {
		hero.Background = defaultBackground
		return hero
	}

	n := len(images)
	hero.Current = wrap(slide, n)
	hero.Prev = wrap(hero.Current-1, n)
	hero.Next = wrap(hero.Current+1, n)
	for i, url := range images {
		hero.Slides = append(hero.Slides, Slide{Index: i, URL: url, Active: i == hero.Current})
	}

	if n > 1 {
		hero.ShowControls = true
		hero.ShowIndicators = true
		hero.IntervalMs = SlideInterval.Milliseconds()
	}
	return hero
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}

// Renderer executes the landing page templates.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer(templates fs.FS) (*Renderer, error) {
	tmpl, err := template.ParseFS(templates,
		config.TemplatesLocalDir+"/"+config.TemplateLayout,
		config.TemplatesLocalDir+"/"+config.TemplateLanding,
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl}, nil
}

func (r *Renderer) Landing(w io.Writer, pd *model.PageData, page LandingPage) error {
	data := struct {
		*model.PageData
		LandingPage
	}{pd, page}
	return r.tmpl.ExecuteTemplate(w, config.TemplateNameLayout, data)
}
