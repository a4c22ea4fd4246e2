package enhance

import (
	"crypto/rand"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/entitylink/pkg/entitylink/linking"
)

// Builder converts linking results into enhancement records
type Builder struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New creates a new enhancement builder
func New() *Builder {
	return &Builder{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// TextAnnotation marks one occurrence of a linked text
type TextAnnotation struct {
	ID           string   `json:"id"`
	Start        int      `json:"start"`
	End          int      `json:"end"`
	SelectedText string   `json:"selected_text"`
	Context      string   `json:"context"`
	Language     string   `json:"lang,omitempty"`
	Confidence   float64  `json:"confidence"`
	Types        []string `json:"types,omitempty"`
}

// EntityAnnotation suggests an entity for the text annotations it relates to
type EntityAnnotation struct {
	ID            string   `json:"id"`
	Label         string   `json:"label"`
	LabelLanguage string   `json:"label_lang,omitempty"`
	Reference     string   `json:"reference"`
	EntityTypes   []string `json:"entity_types,omitempty"`
	Confidence    float64  `json:"confidence"`
	Relations     []string `json:"relations"`
	Site          string   `json:"site,omitempty"`
}

// Set holds the enhancements of one document
type Set struct {
	TextAnnotations   []TextAnnotation   `json:"text_annotations"`
	EntityAnnotations []EntityAnnotation `json:"entity_annotations"`
}

// BuildOptions describes where the linked entities came from
type BuildOptions struct {
	Language  string
	NameField string
	TypeField string
	Site      string
}

// Build creates one text annotation per occurrence and one entity
// annotation per suggestion of each linked entity.
func (b *Builder) Build(entities []*linking.LinkedEntity, opts BuildOptions) Set {
	set := Set{
		TextAnnotations:   []TextAnnotation{},
		EntityAnnotations: []EntityAnnotation{},
	}

	for _, entity := range entities {
		relations := make([]string, 0, len(entity.Occurrences))
		for _, occ := range entity.Occurrences {
			ta := TextAnnotation{
				ID:           b.newID(),
				Start:        occ.Start,
				End:          occ.End,
				SelectedText: occ.SelectedText,
				Context:      occ.Context,
				Language:     opts.Language,
				Confidence:   entity.Score(),
				Types:        entity.Types,
			}
			set.TextAnnotations = append(set.TextAnnotations, ta)
			relations = append(relations, ta.ID)
		}

		for _, s := range entity.Suggestions {
			rep := s.Representation()
			label := s.BestLabel(opts.NameField, opts.Language)
			ea := EntityAnnotation{
				ID:            b.newID(),
				Label:         label.Value,
				LabelLanguage: label.Language,
				Reference:     rep.ID,
				Confidence:    s.Score(),
				Relations:     relations,
				Site:          opts.Site,
			}
			if opts.TypeField != "" {
				ea.EntityTypes = rep.References(opts.TypeField)
			}
			set.EntityAnnotations = append(set.EntityAnnotations, ea)
		}
	}

	return set
}

func (b *Builder) newID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ulid.MustNew(ulid.Now(), b.entropy).String()
}
