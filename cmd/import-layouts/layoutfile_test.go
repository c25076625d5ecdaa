package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/debemdeboas/the-kennel/internal/model"
)

const yamlSite = `
sections:
  - type: header
    businessName: Sunny Paws
    logoUrl: https://img.example/logo.png
  - type: hero
    title: Welcome
    images:
      - https://img.example/a.jpg
      - https://img.example/b.jpg
  - type: testimonials
    quotes: [great]
pets:
  - id: p1
    name: Bolt
    breed: Golden
    price: 1200
`

const tomlSite = `
[[sections]]
type = "about"
title = "About us"
content = "Since **1998**"

[[sections]]
type = "footer"
email = "hi@sunny.example"

[[pets]]
id = "p2"
name = "Luna"
image_url = "https://img.example/luna.jpg"
price = 950.0
`

func TestOwnerFromFile(t *testing.T) {
	testCases := []struct {
		name  string
		owner model.OwnerID
		ok    bool
	}{
		{"sunny.yaml", "sunny", true},
		{"sunny-paws.YML", "sunny-paws", true},
		{"rival.toml", "rival", true},
		{"notes.md", "", false},
		{".hidden.yaml", "", false},
		{"noext", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			owner, ok := ownerFromFile(tc.name)
			if ok != tc.ok || owner != tc.owner {
				t.Errorf("Expected (%q, %v), got (%q, %v)", tc.owner, tc.ok, owner, ok)
			}
		})
	}
}

func TestDecodeLayoutFile_YAML(t *testing.T) {
	site, err := decodeLayoutFile("sunny.yaml", []byte(yamlSite))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if site.Owner != "sunny" {
		t.Errorf("Expected owner sunny, got %s", site.Owner)
	}

	v := site.Layout.Views()
	if diff := cmp.Diff(&model.HeaderSection{BusinessName: "Sunny Paws", LogoURL: "https://img.example/logo.png"}, v.Header); diff != "" {
		t.Errorf("Header mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"https://img.example/a.jpg", "https://img.example/b.jpg"}, v.Hero.Images); diff != "" {
		t.Errorf("Hero images mismatch (-want +got):\n%s", diff)
	}

	if len(site.Layout.Sections) != 3 {
		t.Fatalf("Expected 3 sections, got %d", len(site.Layout.Sections))
	}
	if raw, ok := site.Layout.Sections[2].(model.RawSection); !ok || raw.Kind != "testimonials" {
		t.Errorf("Expected the unknown section to be kept raw, got %#v", site.Layout.Sections[2])
	}

	want := []model.PetRef{{ID: "p1", Name: "Bolt", Breed: "Golden", Price: 1200}}
	if diff := cmp.Diff(want, site.Pets); diff != "" {
		t.Errorf("Pets mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeLayoutFile_TOML(t *testing.T) {
	site, err := decodeLayoutFile("rival.toml", []byte(tomlSite))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	v := site.Layout.Views()
	if v.About == nil || v.About.Title != "About us" || v.About.Content != "Since **1998**" {
		t.Errorf("Unexpected about section %+v", v.About)
	}
	if v.Footer == nil || v.Footer.Email != "hi@sunny.example" {
		t.Errorf("Unexpected footer section %+v", v.Footer)
	}

	want := []model.PetRef{{ID: "p2", Name: "Luna", ImageURL: "https://img.example/luna.jpg", Price: 950}}
	if diff := cmp.Diff(want, site.Pets); diff != "" {
		t.Errorf("Pets mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeLayoutFile_Errors(t *testing.T) {
	testCases := []struct {
		name string
		file string
		data string
	}{
		{"Not a layout file", "sunny.json", `[]`},
		{"Invalid YAML", "sunny.yaml", "sections: [unclosed"},
		{"Invalid TOML", "sunny.toml", "sections = ["},
		{"Section without type", "sunny.yaml", "sections:\n  - title: Orphan\n"},
		{"Pet without id", "sunny.yaml", "pets:\n  - name: Nameless\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := decodeLayoutFile(tc.file, []byte(tc.data)); err == nil {
				t.Error("Expected error but got none")
			}
		})
	}
}

func TestReadLayoutFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sunny.yml")
	if err := os.WriteFile(path, []byte(yamlSite), 0o644); err != nil {
		t.Fatalf("Failed to write layout file: %v", err)
	}

	site, err := readLayoutFile(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if site.Owner != "sunny" || len(site.Layout.Sections) != 3 {
		t.Errorf("Unexpected site %+v", site)
	}

	if _, err := readLayoutFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error but got none")
	}
}
