package analysis

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cognicore/entitylink/pkg/entitylink/internalerr"
)

// DecodeJSON reads an AnalysedText produced by an external NLP pipeline
// (tokens with POS tags, optional chunks) and checks its structure.
func DecodeJSON(r io.Reader) (*AnalysedText, error) {
	var at AnalysedText
	if err := json.NewDecoder(r).Decode(&at); err != nil {
		return nil, fmt.Errorf("decode analysed text: %w", err)
	}
	if err := at.Validate(); err != nil {
		return nil, err
	}
	return &at, nil
}

// Validate checks that sentence, token and chunk ranges are consistent.
func (at *AnalysedText) Validate() error {
	if err := at.ValidateChunks(); err != nil {
		return err
	}
	for si := range at.Sentences {
		for ti, t := range at.Sentences[si].Tokens {
			if !at.Sentences[si].ValidToken(t) {
				return fmt.Errorf("%w: sentence %d token %d has invalid span [%d,%d)",
					internalerr.ErrInvalidInput, si, ti, t.Start, t.End)
			}
		}
	}
	return nil
}

// ValidateChunks checks sentence bounds and that chunks are ordered, do not
// overlap and refer to existing tokens. Token spans are not checked.
func (at *AnalysedText) ValidateChunks() error {
	for si := range at.Sentences {
		s := &at.Sentences[si]
		if s.Offset < 0 || (at.Text != "" && s.Offset+len(s.Text) > len(at.Text)) {
			return fmt.Errorf("%w: sentence %d outside of document text", internalerr.ErrInvalidInput, si)
		}
		last := -1
		for ci, c := range s.Chunks {
			if c.Start < 0 || c.End < c.Start || c.End >= len(s.Tokens) {
				return fmt.Errorf("%w: sentence %d chunk %d has invalid range [%d,%d]",
					internalerr.ErrInvalidInput, si, ci, c.Start, c.End)
			}
			if c.Start <= last {
				return fmt.Errorf("%w: sentence %d chunk %d overlaps its predecessor",
					internalerr.ErrInvalidInput, si, ci)
			}
			last = c.End
		}
	}
	return nil
}

// ValidToken reports whether the token span lies within the sentence text.
func (s *Sentence) ValidToken(t Token) bool {
	return t.Start >= 0 && t.End >= t.Start && t.End <= len(s.Text)
}
