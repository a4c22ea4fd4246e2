package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/entitylink/pkg/entitylink/internalerr"
	"github.com/cognicore/entitylink/pkg/entitylink/site"
)

// Well-known field URIs
const (
	RDFSLabel   = "http://www.w3.org/2000/01/rdf-schema#label"
	RDFType     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	RDFSSeeAlso = "http://www.w3.org/2000/01/rdf-schema#seeAlso"
	EntityRank  = site.EntityRankField
)

// Defaults
const (
	DefaultMinSearchTokenLength = 3
	DefaultMaxSuggestions       = 3
	DefaultMinFoundTokens       = 2
	DefaultMaxSearchTokens      = 2
	DefaultMaxNotFound          = 1
	DefaultMinTokenMatchFactor  = 0.7
	DefaultMinPosProbability    = 0.75
)

// Linker configures the entity linking process
type Linker struct {
	// Tokens shorter than this are not searched for when no POS tag decides.
	MinSearchTokenLength int `yaml:"min_search_token_length"`
	MaxSuggestions       int `yaml:"max_suggestions"`
	MinFoundTokens       int `yaml:"min_found_tokens"`
	MaxSearchTokens      int `yaml:"max_search_tokens"`

	CaseSensitive bool `yaml:"case_sensitive"`

	NameField     string `yaml:"name_field"`
	TypeField     string `yaml:"type_field"`
	RedirectField string `yaml:"redirect_field"`

	DefaultLanguage string       `yaml:"default_language"`
	RedirectMode    RedirectMode `yaml:"redirect_mode"`

	// MaxNotFound is the number of consecutive tokens without a label match
	// tolerated while aligning a label, e.g. the "." in "Dr. Richard Dogles".
	MaxNotFound         int     `yaml:"max_not_found"`
	MinTokenMatchFactor float64 `yaml:"min_token_match_factor"`

	Pos Pos `yaml:"pos"`

	// TypeMappings replaces the default table when set in a config file.
	TypeMappings map[string]string `yaml:"type_mappings"`
	DefaultType  string            `yaml:"default_type"`

	// ProcessedLanguages restricts linking to documents in these languages.
	// Empty means all languages.
	ProcessedLanguages []string `yaml:"processed_languages"`
}

// Pos decides which part-of-speech tags mark a token as linkable
type Pos struct {
	ProcessedTags         []string `yaml:"processed_tags"`
	MinProbability        float64  `yaml:"min_probability"`
	MinExcludeProbability float64  `yaml:"min_exclude_probability"`
}

// Default returns the default linker configuration
func Default() *Linker {
	return &Linker{
		MinSearchTokenLength: DefaultMinSearchTokenLength,
		MaxSuggestions:       DefaultMaxSuggestions,
		MinFoundTokens:       DefaultMinFoundTokens,
		MaxSearchTokens:      DefaultMaxSearchTokens,
		NameField:            RDFSLabel,
		TypeField:            RDFType,
		RedirectField:        RDFSSeeAlso,
		RedirectMode:         RedirectIgnore,
		MaxNotFound:          DefaultMaxNotFound,
		MinTokenMatchFactor:  DefaultMinTokenMatchFactor,
		Pos: Pos{
			ProcessedTags:         []string{"NN", "NNS", "NNP", "NNPS", "FW"},
			MinProbability:        DefaultMinPosProbability,
			MinExcludeProbability: DefaultMinPosProbability / 2,
		},
		TypeMappings: DefaultTypeMappings().Table(),
		DefaultType:  DefaultTypeMappings().Default(),
	}
}

// Validate applies the documented fallbacks and rejects malformed values
func (c *Linker) Validate() error {
	if c.MaxNotFound < 0 {
		c.MaxNotFound = DefaultMaxNotFound
	}
	if c.MinTokenMatchFactor < 0 {
		c.MinTokenMatchFactor = DefaultMinTokenMatchFactor
	} else if c.MinTokenMatchFactor == 0 || c.MinTokenMatchFactor > 1 {
		return fmt.Errorf("%w: min_token_match_factor must be in (0,1], got %v",
			internalerr.ErrInvalidConfig, c.MinTokenMatchFactor)
	}

	if c.MinSearchTokenLength < 1 {
		return fmt.Errorf("%w: min_search_token_length must be > 0", internalerr.ErrInvalidConfig)
	}
	if c.MaxSuggestions < 1 {
		return fmt.Errorf("%w: max_suggestions must be > 0", internalerr.ErrInvalidConfig)
	}
	if c.MinFoundTokens < 1 {
		return fmt.Errorf("%w: min_found_tokens must be > 0", internalerr.ErrInvalidConfig)
	}
	if c.MaxSearchTokens < 1 {
		return fmt.Errorf("%w: max_search_tokens must be > 0", internalerr.ErrInvalidConfig)
	}
	if c.NameField == "" {
		return fmt.Errorf("%w: name_field is required", internalerr.ErrInvalidConfig)
	}
	if c.Pos.MinProbability < 0 || c.Pos.MinProbability > 1 ||
		c.Pos.MinExcludeProbability < 0 || c.Pos.MinExcludeProbability > 1 {
		return fmt.Errorf("%w: pos probabilities must be in [0,1]", internalerr.ErrInvalidConfig)
	}
	switch c.RedirectMode {
	case RedirectIgnore, RedirectAddValues, RedirectFollow:
	default:
		return fmt.Errorf("%w: unknown redirect mode %d", internalerr.ErrInvalidConfig, c.RedirectMode)
	}
	return nil
}

// SelectedFields returns the fields the linker needs from entity representations
func (c *Linker) SelectedFields() []string {
	fields := []string{c.NameField}
	for _, f := range []string{c.TypeField, c.RedirectField, EntityRank} {
		if f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// Fields returns the representation fields used when importing records
func (c *Linker) Fields() site.Fields {
	return site.Fields{Name: c.NameField, Type: c.TypeField, Redirect: c.RedirectField}
}

// ProcessesLanguage reports whether documents in lang are linked. A
// configured language also accepts its regional variants, "en" accepts "en-GB".
func (c *Linker) ProcessesLanguage(lang string) bool {
	if len(c.ProcessedLanguages) == 0 {
		return true
	}
	lang = strings.ToLower(strings.TrimSpace(lang))
	for _, l := range c.ProcessedLanguages {
		l = strings.ToLower(strings.TrimSpace(l))
		if lang == l || strings.HasPrefix(lang, l+"-") || strings.HasPrefix(lang, l+"_") {
			return true
		}
	}
	return false
}

// Mappings builds the immutable type mapping table from the configuration
func (c *Linker) Mappings() *TypeMappings {
	return NewTypeMappings(c.TypeMappings, c.DefaultType)
}

// LoadLinker loads a linker configuration from a YAML file. Keys missing from
// the file keep their default values; type_mappings replaces the default
// table instead of extending it.
func LoadLinker(path string) (*Linker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var keys map[string]yaml.Node
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return nil, err
	}

	cfg := Default()
	if _, ok := keys["type_mappings"]; ok {
		cfg.TypeMappings = nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
