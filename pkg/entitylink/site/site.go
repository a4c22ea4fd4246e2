package site

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cognicore/entitylink/pkg/entitylink/internalerr"
)

// Well-known fields set by searchers on returned representations
const (
	ResultScoreField = "http://stanbol.apache.org/ontology/entityhub/query#score"
	EntityRankField  = "http://stanbol.apache.org/ontology/entityhub/query#entityRank"
)

// DefaultLimit is used when a query does not set a limit
const DefaultLimit = 10

// Searcher is the capability to look up entities by label tokens.
// Implementations must be safe for concurrent use.
type Searcher interface {
	// Lookup returns the entities with a label in Query.Field containing at
	// least one of the terms, best matches first.
	Lookup(ctx context.Context, q Query) ([]*Representation, error)
	// Get returns the entity with the given id, or nil if it does not exist.
	Get(ctx context.Context, id string, selected []string) (*Representation, error)
	// Name identifies the site in enhancement results.
	Name() string
}

// Query describes a label lookup
type Query struct {
	Field           string
	Selected        []string
	Terms           []string
	Language        string
	DefaultLanguage string
	Limit           int
}

// Validate checks the query has a field and at least one term
func (q Query) Validate() error {
	if q.Field == "" {
		return fmt.Errorf("%w: query field is required", internalerr.ErrInvalidInput)
	}
	for _, t := range q.Terms {
		if strings.TrimSpace(t) != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: query has no terms", internalerr.ErrInvalidInput)
}

// EffectiveLimit returns the limit, falling back to DefaultLimit
func (q Query) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

// AcceptsLanguage reports whether a label in lang may match the query.
// Labels without language always match; with no language constraint any
// label matches.
func (q Query) AcceptsLanguage(lang string) bool {
	if lang == "" || (q.Language == "" && q.DefaultLanguage == "") {
		return true
	}
	lang = strings.ToLower(lang)
	if q.Language != "" && strings.HasPrefix(lang, strings.ToLower(q.Language)) {
		return true
	}
	return q.DefaultLanguage != "" && strings.HasPrefix(lang, strings.ToLower(q.DefaultLanguage))
}

// ValueKind distinguishes the values of a representation field
type ValueKind int

const (
	KindText ValueKind = iota
	KindReference
	KindNumber
)

// Value is a single field value
type Value struct {
	Kind     ValueKind
	Text     string
	Language string
	Number   float64
}

// Text is a natural language value
type Text struct {
	Value    string
	Language string
}

// TextValue builds a text value
func TextValue(text, lang string) Value {
	return Value{Kind: KindText, Text: text, Language: lang}
}

// ReferenceValue builds a reference (URI) value
func ReferenceValue(uri string) Value {
	return Value{Kind: KindReference, Text: uri}
}

// NumberValue builds a numeric value
func NumberValue(f float64) Value {
	return Value{Kind: KindNumber, Number: f}
}

func (v Value) String() string {
	if v.Kind == KindNumber {
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	}
	return v.Text
}

// Representation is an entity as returned by a site: an id plus ordered,
// multi-valued fields.
type Representation struct {
	ID     string
	fields map[string][]Value
	order  []string
}

// NewRepresentation creates an empty representation
func NewRepresentation(id string) *Representation {
	return &Representation{ID: id, fields: make(map[string][]Value)}
}

// Add appends values to a field
func (r *Representation) Add(field string, values ...Value) {
	if len(values) == 0 {
		return
	}
	if _, ok := r.fields[field]; !ok {
		r.order = append(r.order, field)
	}
	r.fields[field] = append(r.fields[field], values...)
}

// Set replaces the values of a field
func (r *Representation) Set(field string, values ...Value) {
	if _, ok := r.fields[field]; !ok {
		if len(values) == 0 {
			return
		}
		r.order = append(r.order, field)
	}
	r.fields[field] = append([]Value(nil), values...)
}

// Get returns a copy of the values of a field
func (r *Representation) Get(field string) []Value {
	return append([]Value(nil), r.fields[field]...)
}

// FieldNames returns the fields in insertion order
func (r *Representation) FieldNames() []string {
	out := make([]string, 0, len(r.order))
	for _, f := range r.order {
		if len(r.fields[f]) > 0 {
			out = append(out, f)
		}
	}
	return out
}

// Text returns the text values of a field
func (r *Representation) Text(field string) []Text {
	var out []Text
	for _, v := range r.fields[field] {
		if v.Kind == KindText {
			out = append(out, Text{Value: v.Text, Language: v.Language})
		}
	}
	return out
}

// References returns the reference values of a field
func (r *Representation) References(field string) []string {
	var out []string
	for _, v := range r.fields[field] {
		if v.Kind == KindReference {
			out = append(out, v.Text)
		}
	}
	return out
}

// Float returns the first numeric value of a field. Text values that parse
// as numbers are accepted.
func (r *Representation) Float(field string) (float64, bool) {
	for _, v := range r.fields[field] {
		switch v.Kind {
		case KindNumber:
			return v.Number, true
		case KindText:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// Clone returns a deep copy
func (r *Representation) Clone() *Representation {
	c := &Representation{
		ID:     r.ID,
		fields: make(map[string][]Value, len(r.fields)),
		order:  append([]string(nil), r.order...),
	}
	for f, vs := range r.fields {
		c.fields[f] = append([]Value(nil), vs...)
	}
	return c
}

// Select returns a copy restricted to the given fields. An empty selection
// keeps all fields.
func (r *Representation) Select(fields []string) *Representation {
	if len(fields) == 0 {
		return r.Clone()
	}
	c := NewRepresentation(r.ID)
	for _, f := range fields {
		if vs, ok := r.fields[f]; ok {
			c.Set(f, vs...)
		}
	}
	return c
}

// Label is a language tagged entity label
type Label struct {
	Text string `yaml:"text" json:"text"`
	Lang string `yaml:"lang,omitempty" json:"lang,omitempty"`
}

// Record is a serialisable entity definition
type Record struct {
	ID        string   `yaml:"id" json:"id"`
	Labels    []Label  `yaml:"labels" json:"labels"`
	Types     []string `yaml:"types,omitempty" json:"types,omitempty"`
	Redirects []string `yaml:"redirects,omitempty" json:"redirects,omitempty"`
	Rank      float64  `yaml:"rank,omitempty" json:"rank,omitempty"`
}

// Fields names the representation fields a record is mapped to
type Fields struct {
	Name     string
	Type     string
	Redirect string
}

// Validate checks the record has an id and at least one label
func (rec Record) Validate() error {
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("%w: entity id is required", internalerr.ErrInvalidInput)
	}
	for _, l := range rec.Labels {
		if strings.TrimSpace(l.Text) != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: entity %s has no label", internalerr.ErrInvalidInput, rec.ID)
}

// Representation converts the record using the given field names
func (rec Record) Representation(f Fields) *Representation {
	r := NewRepresentation(rec.ID)
	for _, l := range rec.Labels {
		if strings.TrimSpace(l.Text) == "" {
			continue
		}
		r.Add(f.Name, TextValue(l.Text, l.Lang))
	}
	if f.Type != "" {
		for _, t := range rec.Types {
			r.Add(f.Type, ReferenceValue(t))
		}
	}
	if f.Redirect != "" {
		for _, t := range rec.Redirects {
			r.Add(f.Redirect, ReferenceValue(t))
		}
	}
	if rec.Rank != 0 {
		r.Set(EntityRankField, NumberValue(rec.Rank))
	}
	return r
}
