package linking

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cognicore/entitylink/pkg/entitylink/analysis"
	"github.com/cognicore/entitylink/pkg/entitylink/internalerr"
)

// textCacheSize bounds the per-sentence window text cache
const textCacheSize = 32

type cursorMode int

const (
	modeBeforeFirst cursorMode = iota
	modeSentence
	modeChunk
	modeExhausted
)

func (m cursorMode) String() string {
	switch m {
	case modeBeforeFirst:
		return "before-first"
	case modeSentence:
		return "sentence"
	case modeChunk:
		return "chunk"
	case modeExhausted:
		return "exhausted"
	}
	return fmt.Sprintf("cursorMode(%d)", int(m))
}

// chunkCursor is only meaningful in modeChunk
type chunkCursor struct {
	chunks []analysis.Chunk
	index  int
}

func (c chunkCursor) current() analysis.Chunk {
	return c.chunks[c.index]
}

type spanKey struct {
	start, count int
}

// processingState walks the tokens of all sentences. In chunked sentences
// only tokens inside chunks are visited. Tokens up to consumedIndex are
// never visited again.
type processingState struct {
	text *analysis.AnalysedText

	mode          cursorMode
	sentenceIndex int
	sentence      *analysis.Sentence
	language      string
	chunk         chunkCursor

	tokenIndex    int
	consumedIndex int

	cache *lru.Cache[spanKey, string]
}

func newProcessingState(text *analysis.AnalysedText) *processingState {
	// lru.New only fails for a non-positive size
	cache, _ := lru.New[spanKey, string](textCacheSize)
	return &processingState{
		text:          text,
		mode:          modeBeforeFirst,
		sentenceIndex: -1,
		tokenIndex:    -1,
		consumedIndex: -1,
		cache:         cache,
	}
}

// advance moves to the next token to process. It returns false once all
// sentences are exhausted.
func (s *processingState) advance() bool {
	switch s.mode {
	case modeExhausted:
		return false
	case modeBeforeFirst:
		return s.nextSentence()
	}

	next := s.tokenIndex + 1
	if s.consumedIndex+1 > next {
		next = s.consumedIndex + 1
	}

	if s.mode == modeChunk {
		for ; s.chunk.index < len(s.chunk.chunks); s.chunk.index++ {
			c := s.chunk.current()
			if c.End < next {
				continue
			}
			if next < c.Start {
				next = c.Start
			}
			s.tokenIndex = next
			return true
		}
		return s.nextSentence()
	}

	if next < len(s.sentence.Tokens) {
		s.tokenIndex = next
		return true
	}
	return s.nextSentence()
}

// nextSentence moves to the first token of the next sentence with something
// to process.
func (s *processingState) nextSentence() bool {
	s.cache.Purge()
	for s.sentenceIndex+1 < len(s.text.Sentences) {
		s.sentenceIndex++
		sent := &s.text.Sentences[s.sentenceIndex]
		if len(sent.Tokens) == 0 {
			continue
		}
		if sent.HasChunks() {
			if len(sent.Chunks) == 0 {
				continue
			}
			s.mode = modeChunk
			s.chunk = chunkCursor{chunks: sent.Chunks}
			s.tokenIndex = sent.Chunks[0].Start
		} else {
			s.mode = modeSentence
			s.chunk = chunkCursor{}
			s.tokenIndex = 0
		}
		s.sentence = sent
		s.language = s.text.EffectiveLanguage(sent)
		s.consumedIndex = -1
		return true
	}

	s.mode = modeExhausted
	s.sentence = nil
	s.chunk = chunkCursor{}
	return false
}

// markConsumed marks all tokens up to pos as consumed. The next call to
// advance continues after pos.
func (s *processingState) markConsumed(pos int) error {
	if s.sentence == nil {
		return fmt.Errorf("%w: cursor is %s", internalerr.ErrInvalidInput, s.mode)
	}
	if pos < s.tokenIndex || pos >= len(s.sentence.Tokens) {
		return fmt.Errorf("%w: consumed position %d outside [%d,%d)",
			internalerr.ErrInvalidInput, pos, s.tokenIndex, len(s.sentence.Tokens))
	}
	s.consumedIndex = pos
	return nil
}

func (s *processingState) token() analysis.Token {
	return s.sentence.Tokens[s.tokenIndex]
}

// windowEnd returns the last token index a search window may include
func (s *processingState) windowEnd() int {
	if s.mode == modeChunk {
		return s.chunk.current().End
	}
	return len(s.sentence.Tokens) - 1
}

// windowText returns the sentence text covered by count tokens starting at
// start, or "" if the range is invalid.
func (s *processingState) windowText(start, count int) string {
	if s.sentence == nil || start < 0 || count < 1 || start+count > len(s.sentence.Tokens) {
		return ""
	}
	key := spanKey{start: start, count: count}
	if text, ok := s.cache.Get(key); ok {
		return text
	}

	first := s.sentence.Tokens[start]
	last := s.sentence.Tokens[start+count-1]
	if !s.sentence.ValidToken(first) || !s.sentence.ValidToken(last) || last.End < first.Start {
		return ""
	}
	text := s.sentence.Text[first.Start:last.End]
	s.cache.Add(key, text)
	return text
}
