package config

import "sort"

// Output types used for linked entities
const (
	TypeOrganisation = "http://dbpedia.org/ontology/Organisation"
	TypePerson       = "http://dbpedia.org/ontology/Person"
	TypePlace        = "http://dbpedia.org/ontology/Place"
	TypeConcept      = "http://www.w3.org/2004/02/skos/core#Concept"
)

// TypeMappings maps entity (concept) types to the types assigned to linked
// entities. The table is immutable once built and safe to share.
type TypeMappings struct {
	table       map[string]string
	defaultType string
}

// NewTypeMappings copies table into an immutable mapping. defaultType is
// used when no type of an entity is mapped; it may be empty.
func NewTypeMappings(table map[string]string, defaultType string) *TypeMappings {
	copied := make(map[string]string, len(table))
	for k, v := range table {
		if k == "" || v == "" {
			continue
		}
		copied[k] = v
	}
	return &TypeMappings{table: copied, defaultType: defaultType}
}

var defaultTypeMappings = NewTypeMappings(map[string]string{
	TypeOrganisation:                       TypeOrganisation,
	"http://dbpedia.org/ontology/Newspaper": TypeOrganisation,
	"http://schema.org/Organization":        TypeOrganisation,

	TypePerson:                         TypePerson,
	"http://xmlns.com/foaf/0.1/Person": TypePerson,
	"http://schema.org/Person":         TypePerson,

	TypePlace:                            TypePlace,
	"http://schema.org/Place":            TypePlace,
	"http://www.opengis.net/gml/_Feature": TypePlace,

	TypeConcept: TypeConcept,
}, "")

// DefaultTypeMappings returns the standard mappings for DBpedia, schema.org,
// FOAF and SKOS types.
func DefaultTypeMappings() *TypeMappings {
	return defaultTypeMappings
}

// Lookup returns the output type for conceptType
func (m *TypeMappings) Lookup(conceptType string) (string, bool) {
	t, ok := m.table[conceptType]
	return t, ok
}

// Default returns the fallback type (may be empty)
func (m *TypeMappings) Default() string {
	return m.defaultType
}

// Len returns the number of mapped concept types
func (m *TypeMappings) Len() int {
	return len(m.table)
}

// Table returns a copy of the mapping table
func (m *TypeMappings) Table() map[string]string {
	out := make(map[string]string, len(m.table))
	for k, v := range m.table {
		out[k] = v
	}
	return out
}

// Map maps concept types to output types. If none is mapped the default type
// is returned (when configured). The result is sorted and free of duplicates.
func (m *TypeMappings) Map(conceptTypes []string) []string {
	set := make(map[string]struct{})
	for _, ct := range conceptTypes {
		if t, ok := m.table[ct]; ok {
			set[t] = struct{}{}
		}
	}
	if len(set) == 0 && m.defaultType != "" {
		return []string{m.defaultType}
	}

	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
