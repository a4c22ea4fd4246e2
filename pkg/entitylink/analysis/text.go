package analysis

import "unicode"

// PosTag is a part-of-speech annotation with the probability the tagger
// assigned to it.
type PosTag struct {
	Tag         string  `json:"tag"`
	Probability float64 `json:"prob"`
}

// Token is a lexical unit of a sentence. Start and End are byte offsets
// into the sentence text.
type Token struct {
	Text  string   `json:"text"`
	Start int      `json:"start"`
	End   int      `json:"end"`
	Pos   []PosTag `json:"pos,omitempty"`
}

// HasAlphaNumeric reports whether the token contains at least one letter or digit.
func (t Token) HasAlphaNumeric() bool {
	return hasAlphaNumeric(t.Text)
}

// Chunk is a contiguous run of tokens (inclusive indices) grouped by a
// shallow parser, e.g. a noun phrase.
type Chunk struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of tokens covered by the chunk.
func (c Chunk) Len() int {
	return c.End - c.Start + 1
}

// Sentence holds the tokens of one sentence. Offset is the byte offset of
// the sentence within the document text.
//
// A sentence is walked chunk by chunk when Chunked is set or Chunks is not
// empty. A chunked sentence without chunks contains nothing to link.
type Sentence struct {
	Text     string  `json:"text"`
	Offset   int     `json:"offset"`
	Language string  `json:"lang,omitempty"`
	Tokens   []Token `json:"tokens"`
	Chunks   []Chunk `json:"chunks,omitempty"`
	Chunked  bool    `json:"chunked,omitempty"`
}

// HasChunks reports whether the sentence was processed by a chunker.
func (s *Sentence) HasChunks() bool {
	return s.Chunked || len(s.Chunks) > 0
}

// AnalysedText is the output of the upstream analysis of one document.
type AnalysedText struct {
	Text      string     `json:"text"`
	Language  string     `json:"lang,omitempty"`
	Sentences []Sentence `json:"sentences"`
}

// EffectiveLanguage returns the language of the sentence, falling back to
// the language of the document.
func (at *AnalysedText) EffectiveLanguage(s *Sentence) string {
	if s != nil && s.Language != "" {
		return s.Language
	}
	return at.Language
}

// TokenCount returns the number of tokens over all sentences.
func (at *AnalysedText) TokenCount() int {
	n := 0
	for i := range at.Sentences {
		n += len(at.Sentences[i].Tokens)
	}
	return n
}

func hasAlphaNumeric(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
