package memsite

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cognicore/entitylink/pkg/entitylink/analysis"
	"github.com/cognicore/entitylink/pkg/entitylink/site"
)

// Site is an in-memory implementation of site.Searcher. Labels are indexed
// by their lowercased tokens.
type Site struct {
	mu       sync.RWMutex
	name     string
	tokenize func(string) []string
	entities map[string]*site.Representation
	// field -> token -> entity ids
	index map[string]map[string]map[string]struct{}
}

// Option configures a Site
type Option func(*Site)

// WithTokenizer sets the tokenizer used to index labels
func WithTokenizer(fn func(string) []string) Option {
	return func(s *Site) {
		if fn != nil {
			s.tokenize = fn
		}
	}
}

// New creates a new in-memory site.
func New(name string, opts ...Option) *Site {
	s := &Site{
		name:     name,
		tokenize: analysis.NewAnalyzer(analysis.AnalyzerOptions{}).Tokenize,
		entities: make(map[string]*site.Representation),
		index:    make(map[string]map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements site.Searcher.
func (s *Site) Name() string { return s.name }

// Close implements io.Closer.
func (s *Site) Close() error { return nil }

// Put adds or replaces an entity.
func (s *Site) Put(rep *site.Representation) {
	if rep == nil || rep.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entities[rep.ID]; ok {
		s.unindex(old)
	}
	c := rep.Clone()
	s.entities[c.ID] = c
	s.reindex(c)
}

// PutRecords converts and adds records, skipping invalid ones. It returns
// the number of entities added.
func (s *Site) PutRecords(records []site.Record, fields site.Fields) int {
	n := 0
	for _, rec := range records {
		if rec.Validate() != nil {
			continue
		}
		s.Put(rec.Representation(fields))
		n++
	}
	return n
}

// Count returns the number of entities.
func (s *Site) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// Get implements site.Searcher.
func (s *Site) Get(ctx context.Context, id string, selected []string) (*site.Representation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rep, ok := s.entities[id]; ok {
		return rep.Select(selected), nil
	}
	return nil, nil
}

// Lookup implements site.Searcher. Entities are scored by the number of
// distinct terms found in their accepted labels; ties are broken by entity
// rank, then id.
func (s *Site) Lookup(ctx context.Context, q site.Query) ([]*site.Representation, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	fieldIndex := s.index[q.Field]
	if fieldIndex == nil {
		return nil, nil
	}

	terms := uniqueTerms(q.Terms)
	candidates := make(map[string]struct{})
	for _, term := range terms {
		for id := range fieldIndex[term] {
			candidates[id] = struct{}{}
		}
	}

	type scored struct {
		rep   *site.Representation
		score int
		rank  float64
	}

	var results []scored
	for id := range candidates {
		rep := s.entities[id]
		hits := s.countHits(rep, q, terms)
		if hits == 0 {
			continue
		}
		rank, _ := rep.Float(site.EntityRankField)
		results = append(results, scored{rep: rep, score: hits, rank: rank})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		if results[i].rank != results[j].rank {
			return results[i].rank > results[j].rank
		}
		return results[i].rep.ID < results[j].rep.ID
	})

	limit := q.EffectiveLimit()
	if len(results) > limit {
		results = results[:limit]
	}

	out := make([]*site.Representation, len(results))
	for i, r := range results {
		rep := r.rep.Select(q.Selected)
		rep.Set(site.ResultScoreField, site.NumberValue(float64(r.score)))
		out[i] = rep
	}
	return out, nil
}

// countHits returns the number of terms contained in labels with an
// accepted language.
func (s *Site) countHits(rep *site.Representation, q site.Query, terms []string) int {
	found := make(map[string]struct{})
	for _, label := range rep.Text(q.Field) {
		if !q.AcceptsLanguage(label.Language) {
			continue
		}
		for _, tok := range s.tokenize(label.Value) {
			found[strings.ToLower(tok)] = struct{}{}
		}
	}
	hits := 0
	for _, term := range terms {
		if _, ok := found[term]; ok {
			hits++
		}
	}
	return hits
}

func (s *Site) reindex(rep *site.Representation) {
	for _, field := range rep.FieldNames() {
		for _, label := range rep.Text(field) {
			for _, tok := range s.tokenize(label.Value) {
				tok = strings.ToLower(tok)
				byToken := s.index[field]
				if byToken == nil {
					byToken = make(map[string]map[string]struct{})
					s.index[field] = byToken
				}
				ids := byToken[tok]
				if ids == nil {
					ids = make(map[string]struct{})
					byToken[tok] = ids
				}
				ids[rep.ID] = struct{}{}
			}
		}
	}
}

func (s *Site) unindex(rep *site.Representation) {
	for _, field := range rep.FieldNames() {
		byToken := s.index[field]
		for _, label := range rep.Text(field) {
			for _, tok := range s.tokenize(label.Value) {
				tok = strings.ToLower(tok)
				delete(byToken[tok], rep.ID)
				if len(byToken[tok]) == 0 {
					delete(byToken, tok)
				}
			}
		}
	}
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
