package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/debemdeboas/the-kennel/internal/model"
)

// layoutFile is the on-disk form of one owner's site: the section list in JSON field names
// plus the pets listed on it.
type layoutFile struct {
	Sections []map[string]any `yaml:"sections" toml:"sections"`
	Pets     []petFile        `yaml:"pets" toml:"pets"`
}

type petFile struct {
	ID       string  `yaml:"id" toml:"id"`
	Name     string  `yaml:"name" toml:"name"`
	Breed    string  `yaml:"breed" toml:"breed"`
	ImageURL string  `yaml:"image_url" toml:"image_url"`
	Price    float64 `yaml:"price" toml:"price"`
}

type importedSite struct {
	Owner  model.OwnerID
	Layout *model.LayoutConfig
	Pets   []model.PetRef
}

var extensions = map[string]bool{".yaml": true, ".yml": true, ".toml": true}

// ownerFromFile derives the owner id from the file name and reports whether the file is a
// layout file at all.
func ownerFromFile(name string) (model.OwnerID, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if !extensions[ext] {
		return "", false
	}
	owner := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if owner == "" || strings.HasPrefix(owner, ".") {
		return "", false
	}
	return model.OwnerID(owner), true
}

func decodeLayoutFile(name string, data []byte) (*importedSite, error) {
	owner, ok := ownerFromFile(name)
	if !ok {
		return nil, fmt.Errorf("%s: not a layout file", name)
	}

	var lf layoutFile
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &lf); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	default:
		if err := yaml.Unmarshal(data, &lf); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	for i, s := range lf.Sections {
		if typ, _ := s["type"].(string); typ == "" {
			return nil, fmt.Errorf("%s: section %d has no type", name, i)
		}
	}

	// Sections go through the JSON codec so unknown types are kept raw like any other write.
	raw, err := json.Marshal(lf.Sections)
	if err != nil {
		return nil, fmt.Errorf("%s: encode sections: %w", name, err)
	}
	cfg := &model.LayoutConfig{}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	site := &importedSite{Owner: owner, Layout: cfg}
	for i, p := range lf.Pets {
		if p.ID == "" {
			return nil, fmt.Errorf("%s: pet %d has no id", name, i)
		}
		site.Pets = append(site.Pets, model.PetRef(p))
	}
	return site, nil
}

func readLayoutFile(path string) (*importedSite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeLayoutFile(filepath.Base(path), data)
}
