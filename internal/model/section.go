// Package model defines the layout sections and configuration shared by the store, the editor
// and the landing renderer.
package model

type OwnerID string

type SectionType string

const (
	SectionHeader  SectionType = "header"
	SectionHero    SectionType = "hero"
	SectionPetList SectionType = "pet-list"
	SectionAbout   SectionType = "about"
	SectionFooter  SectionType = "footer"
)

// Section is one renderable block of a breeder site.
type Section interface {
	Type() SectionType
}

type HeaderSection struct {
	LogoURL      string `json:"logoUrl,omitempty"`
	BusinessName string `json:"businessName,omitempty"`
}

func (HeaderSection) Type() SectionType { return SectionHeader }

type HeroSection struct {
	Images   []string `json:"images,omitempty"`
	Title    string   `json:"title,omitempty"`
	Subtitle string   `json:"subtitle,omitempty"`
}

func (HeroSection) Type() SectionType { return SectionHero }

// PetRef is a read-only entry of the pet list. It is aggregated by the backend and never
// edited through the layout editor.
type PetRef struct {
	ID       string  `json:"id"`
	Name     string  `json:"name,omitempty"`
	Breed    string  `json:"breed,omitempty"`
	ImageURL string  `json:"imageUrl,omitempty"`
	Price    float64 `json:"price,omitempty"`
}

type PetListSection struct {
	Pets []PetRef `json:"pets,omitempty"`
}

func (PetListSection) Type() SectionType { return SectionPetList }

type AboutSection struct {
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

func (AboutSection) Type() SectionType { return SectionAbout }

type FooterSection struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

func (FooterSection) Type() SectionType { return SectionFooter }

// RawSection keeps a section whose type this version does not know, so that a
// read-modify-write cycle does not drop it.
type RawSection struct {
	Kind SectionType
	Raw  []byte
}

func (s RawSection) Type() SectionType { return s.Kind }
