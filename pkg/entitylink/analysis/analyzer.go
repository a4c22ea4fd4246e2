package analysis

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var defaultAbbreviations = []string{
	"dr", "mr", "mrs", "ms", "prof", "st", "jr", "sr", "vs", "etc", "inc", "ltd", "co", "no",
}

// AnalyzerOptions configures the default analyzer
type AnalyzerOptions struct {
	// Abbreviations are words that do not end a sentence when followed by a
	// full stop. Matching is case-insensitive. Nil uses the built-in list.
	Abbreviations []string
}

// Analyzer splits plain text into sentences and positioned tokens. It does
// not tag parts of speech or chunks; tokens produced by it are classified by
// their length only.
type Analyzer struct {
	abbreviations map[string]struct{}
}

// NewAnalyzer creates an analyzer with the given options
func NewAnalyzer(opts AnalyzerOptions) *Analyzer {
	abbrevs := opts.Abbreviations
	if abbrevs == nil {
		abbrevs = defaultAbbreviations
	}
	set := make(map[string]struct{}, len(abbrevs))
	for _, a := range abbrevs {
		set[strings.ToLower(strings.TrimSuffix(a, "."))] = struct{}{}
	}
	return &Analyzer{abbreviations: set}
}

// Analyze normalizes text to NFC and splits it into sentences and tokens.
// Offsets refer to the normalized text, which is returned as AnalysedText.Text.
func (a *Analyzer) Analyze(text, language string) *AnalysedText {
	text = norm.NFC.String(text)
	at := &AnalysedText{Text: text, Language: language}

	tokens := scan(text)
	begin := 0
	for i := range tokens {
		if i+1 < len(tokens) && !a.endsSentence(tokens, i) {
			continue
		}
		at.Sentences = append(at.Sentences, newSentence(text, tokens[begin:i+1]))
		begin = i + 1
	}
	return at
}

// Tokenize splits text into token strings, including punctuation tokens.
// It is used to tokenize entity labels the same way as the analysed text.
func (a *Analyzer) Tokenize(text string) []string {
	tokens := scan(norm.NFC.String(text))
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Text
	}
	return out
}

func (a *Analyzer) endsSentence(tokens []Token, i int) bool {
	t := tokens[i]
	switch t.Text {
	case ".", "!", "?", "…":
	default:
		return false
	}

	next := tokens[i+1]
	if next.Start == t.End {
		// "?!" or "..." sequences end at their last mark
		return false
	}
	if r, _ := utf8.DecodeRuneInString(next.Text); unicode.IsLower(r) {
		return false
	}

	if t.Text == "." && i > 0 {
		prev := tokens[i-1]
		if prev.End == t.Start && a.isAbbreviation(prev.Text) {
			return false
		}
	}
	return true
}

func (a *Analyzer) isAbbreviation(word string) bool {
	if utf8.RuneCountInString(word) == 1 {
		r, _ := utf8.DecodeRuneInString(word)
		return unicode.IsLetter(r)
	}
	_, ok := a.abbreviations[strings.ToLower(word)]
	return ok
}

func newSentence(text string, tokens []Token) Sentence {
	offset := tokens[0].Start
	end := tokens[len(tokens)-1].End

	rel := make([]Token, len(tokens))
	for i, t := range tokens {
		rel[i] = Token{Text: t.Text, Start: t.Start - offset, End: t.End - offset}
	}
	return Sentence{
		Text:   text[offset:end],
		Offset: offset,
		Tokens: rel,
	}
}

// scan produces word and punctuation tokens with document offsets. Words are
// runs of letters and digits; hyphens and apostrophes may join two word
// characters and full stops or commas may join two digits. Every other
// non-space rune becomes a token of its own.
func scan(text string) []Token {
	var tokens []Token
	wordStart := -1
	var prev rune

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		next, _ := utf8.DecodeRuneInString(text[i+size:])

		switch {
		case isWordRune(r):
			if wordStart < 0 {
				wordStart = i
			}
		case wordStart >= 0 && isJoiner(prev, r, next):
			// stays inside the current word
		default:
			if wordStart >= 0 {
				tokens = append(tokens, Token{Text: text[wordStart:i], Start: wordStart, End: i})
				wordStart = -1
			}
			if !unicode.IsSpace(r) {
				tokens = append(tokens, Token{Text: text[i : i+size], Start: i, End: i + size})
			}
		}

		prev = r
		i += size
	}

	if wordStart >= 0 {
		tokens = append(tokens, Token{Text: text[wordStart:], Start: wordStart, End: len(text)})
	}
	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.Mn, r)
}

func isJoiner(prev, r, next rune) bool {
	switch r {
	case '-', '\'', '’', '_':
		return isWordRune(prev) && isWordRune(next)
	case '.', ',':
		return unicode.IsDigit(prev) && unicode.IsDigit(next)
	}
	return false
}
