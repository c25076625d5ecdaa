package editor

import (
	"fmt"
	"slices"

	"github.com/debemdeboas/the-kennel/internal/model"
)

// Draft mirrors the editable fields of a layout. HeroImages holds the persisted hero URLs
// that are kept; newly selected images live in the editor's staging area instead.
type Draft struct {
	BusinessName string
	LogoURL      string

	HeroTitle    string
	HeroSubtitle string
	HeroImages   []string

	AboutTitle   string
	AboutContent string

	FooterPhone   string
	FooterEmail   string
	FooterAddress string
}

// DraftFromViews copies every editable field out of the persisted views. Absent sections
// yield empty fields.
func DraftFromViews(v model.Views) Draft {
	var d Draft
	if h := v.Header; h != nil {
		d.BusinessName = h.BusinessName
		d.LogoURL = h.LogoURL
	}
	if h := v.Hero; h != nil {
		d.HeroTitle = h.Title
		d.HeroSubtitle = h.Subtitle
		d.HeroImages = slices.Clone(h.Images)
	}
	if a := v.About; a != nil {
		d.AboutTitle = a.Title
		d.AboutContent = a.Content
	}
	if f := v.Footer; f != nil {
		d.FooterPhone = f.Phone
		d.FooterEmail = f.Email
		d.FooterAddress = f.Address
	}
	return d
}

func (d Draft) clone() Draft {
	d.HeroImages = slices.Clone(d.HeroImages)
	return d
}

// Equal compares every field, treating a nil and an empty image list alike.
func (d Draft) Equal(o Draft) bool {
	return d.BusinessName == o.BusinessName &&
		d.LogoURL == o.LogoURL &&
		d.HeroTitle == o.HeroTitle &&
		d.HeroSubtitle == o.HeroSubtitle &&
		slices.Equal(d.HeroImages, o.HeroImages) &&
		d.AboutTitle == o.AboutTitle &&
		d.AboutContent == o.AboutContent &&
		d.FooterPhone == o.FooterPhone &&
		d.FooterEmail == o.FooterEmail &&
		d.FooterAddress == o.FooterAddress
}

// fieldRef resolves a section/field name pair to the draft string it edits.
func (d *Draft) fieldRef(section model.SectionType, field string) (*string, error) {
	var ref *string
	switch section {
	case model.SectionHeader:
		switch field {
		case "businessName":
			ref = &d.BusinessName
		case "logoUrl":
			ref = &d.LogoURL
		}
	case model.SectionHero:
		switch field {
		case "title":
			ref = &d.HeroTitle
		case "subtitle":
			ref = &d.HeroSubtitle
		}
	case model.SectionAbout:
		switch field {
		case "title":
			ref = &d.AboutTitle
		case "content":
			ref = &d.AboutContent
		}
	case model.SectionFooter:
		switch field {
		case "phone":
			ref = &d.FooterPhone
		case "email":
			ref = &d.FooterEmail
		case "address":
			ref = &d.FooterAddress
		}
	}

	if ref == nil {
		return nil, fmt.Errorf("%w: no editable field %s.%s", ErrInvalidArgument, section, field)
	}
	return ref, nil
}

// Compose builds the full config a save writes: exactly one header, hero, about and footer
// section, in that order, followed by any sections of unknown type carried over unchanged.
// The pet list is aggregated by the backend and is never written.
func Compose(d Draft, logoURL string, heroImages []string, carry ...model.Section) *model.LayoutConfig {
	cfg := &model.LayoutConfig{
		Sections: []model.Section{
			&model.HeaderSection{LogoURL: logoURL, BusinessName: d.BusinessName},
			&model.HeroSection{Images: slices.Clone(heroImages), Title: d.HeroTitle, Subtitle: d.HeroSubtitle},
			&model.AboutSection{Title: d.AboutTitle, Content: d.AboutContent},
			&model.FooterSection{Phone: d.FooterPhone, Email: d.FooterEmail, Address: d.FooterAddress},
		},
	}
	for _, s := range carry {
		if _, ok := s.(model.RawSection); ok {
			cfg.Sections = append(cfg.Sections, s)
		}
	}
	return cfg
}
