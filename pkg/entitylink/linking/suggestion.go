package linking

import (
	"fmt"
	"strings"

	"github.com/cognicore/entitylink/pkg/entitylink/internalerr"
	"github.com/cognicore/entitylink/pkg/entitylink/site"
)

// Match classifies how well a label matches a token span
type Match int

const (
	// MatchNone means too few tokens matched
	MatchNone Match = iota
	// MatchPartial means some, but not all, label tokens matched
	MatchPartial
	// MatchFull means all label tokens matched, but the text differs
	MatchFull
	// MatchExact means the label equals the covered text
	MatchExact
)

func (m Match) String() string {
	switch m {
	case MatchNone:
		return "none"
	case MatchPartial:
		return "partial"
	case MatchFull:
		return "full"
	case MatchExact:
		return "exact"
	}
	return fmt.Sprintf("Match(%d)", int(m))
}

// Suggestion is a scored match between a token span and an entity
type Suggestion struct {
	match           Match
	start           int
	span            int
	matchCount      int
	matchScore      float64
	label           site.Text
	labelTokenCount int
	score           float64

	result            *site.Representation
	redirect          *site.Representation
	redirectProcessed bool
}

func newSuggestion(result *site.Representation) *Suggestion {
	return &Suggestion{result: result}
}

// updateMatch records a better match for the suggestion
func (s *Suggestion) updateMatch(m Match, start, span, count int, matchScore float64, label site.Text, labelTokenCount int) error {
	if m == MatchNone {
		s.match = MatchNone
		s.span, s.matchCount, s.matchScore = 0, 0, 0
		s.label = site.Text{}
		return nil
	}
	if span < 1 || count < 1 {
		return fmt.Errorf("%w: %s match needs span and count > 0 (span %d, count %d)",
			internalerr.ErrInvalidInput, m, span, count)
	}
	if m != MatchExact && matchScore > 1 {
		return fmt.Errorf("%w: match score %v > 1", internalerr.ErrInvalidInput, matchScore)
	}

	s.match = m
	s.start = start
	s.span = span
	s.label = label
	if m == MatchExact {
		s.matchScore = 1
		s.matchCount = span
		s.labelTokenCount = span
	} else {
		s.matchScore = matchScore
		s.matchCount = count
		s.labelTokenCount = labelTokenCount
	}
	return nil
}

// Match returns the match classification
func (s *Suggestion) Match() Match { return s.match }

// Start returns the index of the first matched token in its sentence
func (s *Suggestion) Start() int { return s.start }

// Span returns the number of tokens covered by the match
func (s *Suggestion) Span() int { return s.span }

// MatchCount returns the number of matched tokens
func (s *Suggestion) MatchCount() int { return s.matchCount }

// MatchScore returns the average similarity of the matched tokens
func (s *Suggestion) MatchScore() float64 { return s.matchScore }

// LabelTokenCount returns the number of content tokens of the matched label
func (s *Suggestion) LabelTokenCount() int { return s.labelTokenCount }

// MatchedLabel returns the label that produced the match
func (s *Suggestion) MatchedLabel() site.Text { return s.label }

// Score returns the composite score computed during aggregation
func (s *Suggestion) Score() float64 { return s.score }

// Result returns the representation returned by the searcher
func (s *Suggestion) Result() *site.Representation { return s.result }

// Redirect returns the entity the result redirects to, if any
func (s *Suggestion) Redirect() *site.Representation { return s.redirect }

// IsRedirect reports whether a redirect was followed
func (s *Suggestion) IsRedirect() bool { return s.redirect != nil }

// Representation returns the redirected entity if present, else the result
func (s *Suggestion) Representation() *site.Representation {
	if s.redirect != nil {
		return s.redirect
	}
	return s.result
}

// EntityRank returns the rank of Representation(), 0 if unknown
func (s *Suggestion) EntityRank() float64 {
	rank, _ := s.Representation().Float(site.EntityRankField)
	return rank
}

func (s *Suggestion) setRedirect(rep *site.Representation) {
	s.redirect = rep
	s.redirectProcessed = true
}

// BestLabel returns the label to present for language: a label in that
// language equal to the matched one, else the last label in that language,
// else the matched label.
func (s *Suggestion) BestLabel(nameField, language string) site.Text {
	label := s.label
	hasLabel := label.Value != ""
	for _, l := range s.Representation().Text(nameField) {
		if !hasLabel {
			label = l
			hasLabel = true
		}
		if l.Language != "" && language != "" && strings.HasPrefix(l.Language, language) {
			label = l
			if strings.EqualFold(s.label.Value, l.Value) {
				break
			}
		}
	}
	return label
}

func (s *Suggestion) String() string {
	if s.match == MatchNone {
		return fmt.Sprintf("%s[m=%s]", s.label.Value, s.match)
	}
	return fmt.Sprintf("%s[m=%s,c=%d,s=%d]", s.label.Value, s.match, s.matchCount, s.span)
}

// compareMatchType orders by match kind, then entity rank (both descending)
func compareMatchType(a, b *Suggestion) int {
	if a.match != b.match {
		return int(b.match) - int(a.match)
	}
	if a.match == MatchNone {
		return 0
	}
	ra, rb := a.EntityRank(), b.EntityRank()
	switch {
	case ra > rb:
		return -1
	case ra < rb:
		return 1
	}
	return 0
}

// compareDefault orders by match count descending. Equal counts, or a
// NONE match on either side, fall back to compareMatchType.
func compareDefault(a, b *Suggestion) int {
	if a.match == MatchNone || b.match == MatchNone || a.matchCount == b.matchCount {
		return compareMatchType(a, b)
	}
	return b.matchCount - a.matchCount
}

// compareScore orders by score descending, then compareDefault
func compareScore(a, b *Suggestion) int {
	switch {
	case a.score > b.score:
		return -1
	case a.score < b.score:
		return 1
	}
	return compareDefault(a, b)
}
