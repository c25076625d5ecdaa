package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// LayoutConfig is the ordered list of sections of one breeder site. It is encoded as a JSON
// array whose elements carry their discriminator in "type".
type LayoutConfig struct {
	Sections []Section
}

// Views holds the first section of every known type, or nil when the config has none.
type Views struct {
	Header  *HeaderSection
	Hero    *HeroSection
	PetList *PetListSection
	About   *AboutSection
	Footer  *FooterSection
}

// Empty reports whether no known section is present.
func (v Views) Empty() bool {
	return v.Header == nil && v.Hero == nil && v.PetList == nil && v.About == nil && v.Footer == nil
}

// Views resolves every section type to its first occurrence in array order. Later sections of
// the same type are ignored.
func (c *LayoutConfig) Views() Views {
	var v Views
	if c == nil {
		return v
	}

	for _, s := range c.Sections {
		switch s := s.(type) {
		case *HeaderSection:
			if v.Header == nil && s != nil {
				v.Header = s
			}
		case HeaderSection:
			if v.Header == nil {
				v.Header = &s
			}
		case *HeroSection:
			if v.Hero == nil && s != nil {
				v.Hero = s
			}
		case HeroSection:
			if v.Hero == nil {
				v.Hero = &s
			}
		case *PetListSection:
			if v.PetList == nil && s != nil {
				v.PetList = s
			}
		case PetListSection:
			if v.PetList == nil {
				v.PetList = &s
			}
		case *AboutSection:
			if v.About == nil && s != nil {
				v.About = s
			}
		case AboutSection:
			if v.About == nil {
				v.About = &s
			}
		case *FooterSection:
			if v.Footer == nil && s != nil {
				v.Footer = s
			}
		case FooterSection:
			if v.Footer == nil {
				v.Footer = &s
			}
		}
	}

	return v
}

// Find returns the first section of the given type.
func (c *LayoutConfig) Find(t SectionType) (Section, bool) {
	if c == nil {
		return nil, false
	}
	for _, s := range c.Sections {
		if s != nil && s.Type() == t {
			return s, true
		}
	}
	return nil, false
}

// Clone returns a deep copy, so cached configs can be handed out without sharing slices.
func (c *LayoutConfig) Clone() *LayoutConfig {
	if c == nil {
		return nil
	}

	out := &LayoutConfig{Sections: make([]Section, 0, len(c.Sections))}
	for _, s := range c.Sections {
		switch s := s.(type) {
		case *HeaderSection:
			cp := *s
			out.Sections = append(out.Sections, &cp)
		case *HeroSection:
			cp := *s
			cp.Images = append([]string(nil), s.Images...)
			out.Sections = append(out.Sections, &cp)
		case *PetListSection:
			cp := *s
			cp.Pets = append([]PetRef(nil), s.Pets...)
			out.Sections = append(out.Sections, &cp)
		case *AboutSection:
			cp := *s
			out.Sections = append(out.Sections, &cp)
		case *FooterSection:
			cp := *s
			out.Sections = append(out.Sections, &cp)
		case RawSection:
			out.Sections = append(out.Sections, RawSection{Kind: s.Kind, Raw: bytes.Clone(s.Raw)})
		default:
			out.Sections = append(out.Sections, s)
		}
	}
	return out
}

func (c LayoutConfig) MarshalJSON() ([]byte, error) {
	parts := make([]json.RawMessage, 0, len(c.Sections))
	for i, s := range c.Sections {
		if s == nil {
			continue
		}
		b, err := marshalSection(s)
		if err != nil {
			return nil, fmt.Errorf("section %d (%s): %w", i, s.Type(), err)
		}
		parts = append(parts, b)
	}
	return json.Marshal(parts)
}

func (c *LayoutConfig) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		c.Sections = nil
		return nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("layout config must be an array of sections: %w", err)
	}

	sections := make([]Section, 0, len(raws))
	for i, raw := range raws {
		s, err := unmarshalSection(raw)
		if err != nil {
			return fmt.Errorf("section %d: %w", i, err)
		}
		sections = append(sections, s)
	}
	c.Sections = sections
	return nil
}

func marshalSection(s Section) ([]byte, error) {
	switch s := s.(type) {
	case RawSection:
		return s.Raw, nil
	case *RawSection:
		return s.Raw, nil
	}

	body, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	typ, err := json.Marshal(s.Type())
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.Write(typ)
	if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func unmarshalSection(raw json.RawMessage) (Section, error) {
	var head struct {
		Type SectionType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}

	var s Section
	switch head.Type {
	case SectionHeader:
		s = &HeaderSection{}
	case SectionHero:
		s = &HeroSection{}
	case SectionPetList:
		s = &PetListSection{}
	case SectionAbout:
		s = &AboutSection{}
	case SectionFooter:
		s = &FooterSection{}
	default:
		return RawSection{Kind: head.Type, Raw: bytes.Clone(raw)}, nil
	}

	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("decode %s section: %w", head.Type, err)
	}
	return s, nil
}
