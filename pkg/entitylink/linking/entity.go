package linking

// Occurrence is one place in the document where a linked entity was found.
// Start and End are byte offsets into the document text.
type Occurrence struct {
	Start        int
	End          int
	SelectedText string
	Context      string
}

// LinkedEntity groups the suggestions for a selected text and all places the
// text occurs. Occurrences of the same text share one LinkedEntity, even if
// they would refer to different entities.
type LinkedEntity struct {
	SelectedText string
	Suggestions  []*Suggestion
	Types        []string
	Occurrences  []Occurrence
}

// Score returns the score of the best suggestion
func (e *LinkedEntity) Score() float64 {
	if len(e.Suggestions) == 0 {
		return 0
	}
	return e.Suggestions[0].Score()
}

func (e *LinkedEntity) addOccurrence(o Occurrence) {
	e.Occurrences = append(e.Occurrences, o)
}
