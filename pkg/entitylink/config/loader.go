package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/entitylink/pkg/entitylink/site"
)

// Site represents an entity site definition file
type Site struct {
	Name     string        `yaml:"name"`
	Entities []site.Record `yaml:"entities"`
}

// LoadSite loads entity definitions from a YAML file
func LoadSite(path string) (*Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s Site
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}

	for i, rec := range s.Entities {
		if rec.ID == "" {
			return nil, fmt.Errorf("entity %d: id is required", i)
		}
	}

	return &s, nil
}

// Loader loads all configuration files and constructs components
type Loader struct {
	LinkerPath string
	SitePath   string
}

// Components holds all loaded configuration components
type Components struct {
	Linker   *Linker
	Mappings *TypeMappings
	SiteName string
	Entities []site.Record
}

// Load reads all configuration files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	// Load linker configuration
	if l.LinkerPath != "" {
		cfg, err := LoadLinker(l.LinkerPath)
		if err != nil {
			return nil, fmt.Errorf("load linker config: %w", err)
		}
		comp.Linker = cfg
	} else {
		comp.Linker = Default()
	}
	comp.Mappings = comp.Linker.Mappings()

	// Load entity site
	if l.SitePath != "" {
		s, err := LoadSite(l.SitePath)
		if err != nil {
			return nil, fmt.Errorf("load site: %w", err)
		}
		comp.SiteName = s.Name
		comp.Entities = s.Entities
	}

	return comp, nil
}
