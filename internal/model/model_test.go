package model

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const errUnmarshal = "Failed to unmarshal layout: %v"
const errMarshal = "Failed to marshal layout: %v"

const sampleLayout = `[
	{"type": "header", "logoUrl": "https://img.example/logo.png", "businessName": "Sunny Paws"},
	{"type": "hero", "images": ["https://img.example/a.jpg", "https://img.example/b.jpg"], "title": "Welcome", "subtitle": "Golden retrievers"},
	{"type": "pet-list", "pets": [{"id": "p1", "name": "Bolt", "breed": "Golden", "price": 1200}]},
	{"type": "about", "title": "About us", "content": "Family kennel since 1998."},
	{"type": "footer", "phone": "+1 555 0100", "email": "hi@sunny.example", "address": "1 Farm Rd"}
]`

func TestLayoutConfig_UnmarshalJSON(t *testing.T) {
	var cfg LayoutConfig
	if err := json.Unmarshal([]byte(sampleLayout), &cfg); err != nil {
		t.Fatalf(errUnmarshal, err)
	}

	want := []Section{
		&HeaderSection{LogoURL: "https://img.example/logo.png", BusinessName: "Sunny Paws"},
		&HeroSection{Images: []string{"https://img.example/a.jpg", "https://img.example/b.jpg"}, Title: "Welcome", Subtitle: "Golden retrievers"},
		&PetListSection{Pets: []PetRef{{ID: "p1", Name: "Bolt", Breed: "Golden", Price: 1200}}},
		&AboutSection{Title: "About us", Content: "Family kennel since 1998."},
		&FooterSection{Phone: "+1 555 0100", Email: "hi@sunny.example", Address: "1 Farm Rd"},
	}
	if diff := cmp.Diff(want, cfg.Sections); diff != "" {
		t.Errorf("Sections mismatch (-want +got):\n%s", diff)
	}
}

func TestLayoutConfig_UnmarshalJSONErrors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{name: "Object instead of array", input: `{"type": "header"}`},
		{name: "Section is not an object", input: `["header"]`},
		{name: "Wrong field type", input: `[{"type": "hero", "images": "a.jpg"}]`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var cfg LayoutConfig
			if err := json.Unmarshal([]byte(tc.input), &cfg); err == nil {
				t.Error("Expected error but got none")
			}
		})
	}
}

func TestLayoutConfig_NullIsEmpty(t *testing.T) {
	var cfg LayoutConfig
	if err := json.Unmarshal([]byte(`null`), &cfg); err != nil {
		t.Fatalf(errUnmarshal, err)
	}
	if len(cfg.Sections) != 0 {
		t.Errorf("Expected no sections, got %d", len(cfg.Sections))
	}
	if !cfg.Views().Empty() {
		t.Error("Expected empty views")
	}
}

func TestLayoutConfig_UnknownSectionSurvives(t *testing.T) {
	input := `[{"type":"testimonials","quotes":["Best pups!"]},{"type":"about","title":"Us"}]`

	var cfg LayoutConfig
	if err := json.Unmarshal([]byte(input), &cfg); err != nil {
		t.Fatalf(errUnmarshal, err)
	}

	raw, ok := cfg.Sections[0].(RawSection)
	if !ok {
		t.Fatalf("Expected RawSection, got %T", cfg.Sections[0])
	}
	if raw.Type() != "testimonials" {
		t.Errorf("Expected type testimonials, got %s", raw.Type())
	}

	out, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf(errMarshal, err)
	}
	if string(out) != input {
		t.Errorf("Expected %s, got %s", input, out)
	}
}

func TestLayoutConfig_MarshalJSON(t *testing.T) {
	cfg := LayoutConfig{Sections: []Section{
		&HeaderSection{BusinessName: "Sunny Paws"},
		HeroSection{},
		nil,
		&FooterSection{Email: "hi@sunny.example"},
	}}

	out, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf(errMarshal, err)
	}

	want := `[{"type":"header","businessName":"Sunny Paws"},{"type":"hero"},{"type":"footer","email":"hi@sunny.example"}]`
	if string(out) != want {
		t.Errorf("Expected %s, got %s", want, out)
	}

	var back LayoutConfig
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf(errUnmarshal, err)
	}
	if back.Views().Footer.Email != "hi@sunny.example" {
		t.Errorf("Expected footer email to survive, got %+v", back.Views().Footer)
	}
}

func TestLayoutConfig_EnvelopeField(t *testing.T) {
	var env struct {
		LayoutConfig *LayoutConfig `json:"layoutConfig"`
	}
	if err := json.Unmarshal([]byte(`{"layoutConfig":`+sampleLayout+`}`), &env); err != nil {
		t.Fatalf(errUnmarshal, err)
	}
	if env.LayoutConfig == nil || len(env.LayoutConfig.Sections) != 5 {
		t.Fatalf("Expected 5 sections, got %+v", env.LayoutConfig)
	}

	out, err := json.Marshal(env)
	if err != nil {
		t.Fatalf(errMarshal, err)
	}
	if !strings.HasPrefix(string(out), `{"layoutConfig":[{"type":"header"`) {
		t.Errorf("Unexpected envelope encoding: %s", out)
	}
}

func TestViews_FirstOfEachTypeWins(t *testing.T) {
	first := &HeroSection{Title: "first"}
	cfg := &LayoutConfig{Sections: []Section{
		&FooterSection{Phone: "1"},
		first,
		&HeroSection{Title: "second"},
		AboutSection{Title: "value form"},
		&AboutSection{Title: "pointer form"},
		&FooterSection{Phone: "2"},
		RawSection{Kind: "hero", Raw: []byte(`{"type":"hero"}`)},
	}}

	v := cfg.Views()
	if v.Hero != first {
		t.Errorf("Expected the first hero section, got %+v", v.Hero)
	}
	if v.About == nil || v.About.Title != "value form" {
		t.Errorf("Expected the value-form about section, got %+v", v.About)
	}
	if v.Footer == nil || v.Footer.Phone != "1" {
		t.Errorf("Expected footer phone 1, got %+v", v.Footer)
	}
	if v.Header != nil || v.PetList != nil {
		t.Errorf("Expected absent header and pet list, got %+v %+v", v.Header, v.PetList)
	}
}

func TestViews_NilConfig(t *testing.T) {
	var cfg *LayoutConfig
	if !cfg.Views().Empty() {
		t.Error("Expected empty views for nil config")
	}
	if _, ok := cfg.Find(SectionHero); ok {
		t.Error("Expected Find on nil config to report nothing")
	}
	if cfg.Clone() != nil {
		t.Error("Expected Clone of nil config to be nil")
	}
}

func TestLayoutConfig_Find(t *testing.T) {
	cfg := &LayoutConfig{Sections: []Section{
		&AboutSection{Title: "a"},
		&AboutSection{Title: "b"},
	}}

	s, ok := cfg.Find(SectionAbout)
	if !ok {
		t.Fatal("Expected about section")
	}
	if s.(*AboutSection).Title != "a" {
		t.Errorf("Expected first about section, got %+v", s)
	}
	if _, ok := cfg.Find(SectionFooter); ok {
		t.Error("Expected no footer")
	}
}

func TestLayoutConfig_CloneIsDeep(t *testing.T) {
	cfg := &LayoutConfig{Sections: []Section{
		&HeroSection{Images: []string{"a.jpg"}, Title: "t"},
		&PetListSection{Pets: []PetRef{{ID: "p1"}}},
		RawSection{Kind: "x", Raw: []byte(`{"type":"x"}`)},
	}}

	cp := cfg.Clone()
	cp.Sections[0].(*HeroSection).Images[0] = "changed.jpg"
	cp.Sections[0].(*HeroSection).Title = "changed"
	cp.Sections[1].(*PetListSection).Pets[0].ID = "changed"
	cp.Sections[2].(RawSection).Raw[0] = '['

	hero := cfg.Sections[0].(*HeroSection)
	if hero.Images[0] != "a.jpg" || hero.Title != "t" {
		t.Errorf("Clone shares hero state: %+v", hero)
	}
	if cfg.Sections[1].(*PetListSection).Pets[0].ID != "p1" {
		t.Error("Clone shares pet list")
	}
	if cfg.Sections[2].(RawSection).Raw[0] != '{' {
		t.Error("Clone shares raw bytes")
	}
}

func TestPageData_IsEditor(t *testing.T) {
	testCases := []struct {
		name     string
		path     string
		override *bool
		expected bool
	}{
		{name: "Admin page", path: "/admin/site", expected: true},
		{name: "Landing page", path: "/sites/sunny", expected: false},
		{name: "Override", path: "/sites/sunny", override: ptr(true), expected: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tc.path, nil)
			pd := NewPageData(r, "The Kennel", "sunny")
			pd.IsEditorPage = tc.override

			if pd.IsEditor() != tc.expected {
				t.Errorf("Expected IsEditor %v, got %v", tc.expected, pd.IsEditor())
			}
			if pd.SiteName != "The Kennel" || pd.Owner != "sunny" {
				t.Errorf("Unexpected page data: %+v", pd)
			}
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}
