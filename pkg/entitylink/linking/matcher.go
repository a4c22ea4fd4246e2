package linking

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/cognicore/entitylink/pkg/entitylink/analysis"
	"github.com/cognicore/entitylink/pkg/entitylink/site"
)

const (
	// minLabelMatchScore is the share of label tokens a PARTIAL or FULL
	// match must cover
	minLabelMatchScore = 0.6
	// outOfOrderFactor is the similarity assigned to a label token that
	// matches exactly but not in label order
	outOfOrderFactor = 0.7
)

// matchLabels matches the labels of rep against the tokens at the cursor.
// Labels in the sentence language are used; labels in the default language
// only when rep has no label in the sentence language.
func (l *Linker) matchLabels(rep *site.Representation) (*Suggestion, error) {
	curLang := l.state.language
	defLang := l.cfg.DefaultLanguage

	s := newSuggestion(rep)
	var defaults []site.Text
	matchedCurrent := false
	for _, label := range rep.Text(l.cfg.NameField) {
		switch {
		case languageMatches(label.Language, curLang):
			if err := l.matchLabel(s, label); err != nil {
				return nil, err
			}
			matchedCurrent = true
		case languageMatches(label.Language, defLang):
			defaults = append(defaults, label)
		}
	}
	if !matchedCurrent {
		for _, label := range defaults {
			if err := l.matchLabel(s, label); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func languageMatches(labelLang, lang string) bool {
	if labelLang == "" || lang == "" {
		return labelLang == lang
	}
	return strings.HasPrefix(strings.ToLower(labelLang), strings.ToLower(lang))
}

// matchLabel aligns one label with the tokens around the cursor and updates
// s if the label matches better than the labels seen before.
func (l *Linker) matchLabel(s *Suggestion, label site.Text) error {
	text := norm.NFC.String(label.Value)
	if !l.cfg.CaseSensitive {
		text = l.lower(text, label.Language)
	}

	var labelTokens []string
	for _, tok := range l.tokenize(text) {
		if hasAlphaNumeric(tok) {
			labelTokens = append(labelTokens, tok)
		}
	}
	if len(labelTokens) == 0 {
		return nil
	}
	// label tokens not matched yet
	remaining := make(map[string]struct{}, len(labelTokens))
	for _, tok := range labelTokens {
		remaining[tok] = struct{}{}
	}

	var (
		tokens           = l.state.sentence.Tokens
		factor           = l.cfg.MinTokenMatchFactor
		foundProcessable int
		foundTokens      int
		foundMatch       float64
		firstFound       = -1
		lastFound        = -1
		firstFoundLabel  = -1
		lastFoundLabel   = -1
		notFound         int
	)

	// forward: label tokens may be skipped, text tokens may not
	for i := l.state.tokenIndex; i < len(tokens); i++ {
		tok := tokens[i]
		if !l.isContent(tok) {
			notFound++
			if notFound > l.cfg.MaxNotFound {
				break
			}
			continue
		}
		tokText := l.tokenText(tok.Text)
		processable := l.isProcessable(tok)

		found := false
		var similarity float64
		for j := lastFoundLabel + 1; j < len(labelTokens); j++ {
			if f, ok := tokenSimilarity(tokText, labelTokens[j], factor); ok {
				lastFoundLabel = j
				found = true
				similarity = f
				delete(remaining, labelTokens[j])
				break
			}
		}
		if !found {
			if _, ok := remaining[tokText]; ok {
				delete(remaining, tokText)
				found = true
				similarity = outOfOrderFactor
			}
		}

		if found {
			if processable {
				foundProcessable++
			}
			foundTokens++
			foundMatch += similarity
			if firstFound < 0 {
				firstFound = i
				firstFoundLabel = lastFoundLabel
			}
			lastFound = i
			notFound = 0
			continue
		}
		notFound++
		if processable || notFound > l.cfg.MaxNotFound {
			break
		}
	}

	// backward: recover leading label tokens from unconsumed tokens before
	// the cursor
	cur := l.state.tokenIndex - 1
	labelIndex := firstFoundLabel - 1
	notFound = 0
	for labelIndex >= 0 && cur > l.state.consumedIndex {
		labelTok := labelTokens[labelIndex]
		if _, ok := remaining[labelTok]; !ok {
			labelIndex--
			continue
		}
		tok := tokens[cur]
		if !l.isContent(tok) {
			notFound++
			if notFound > l.cfg.MaxNotFound {
				break
			}
			cur--
			continue
		}
		delete(remaining, labelTok)
		processable := l.isProcessable(tok)
		if f, ok := tokenSimilarity(l.tokenText(tok.Text), labelTok, factor); ok {
			if processable {
				foundProcessable++
			}
			foundTokens++
			foundMatch += f
			firstFound = cur
			cur--
			notFound = 0
		} else {
			notFound++
			if processable || notFound > l.cfg.MaxNotFound {
				break
			}
		}
		labelIndex--
	}

	if foundProcessable == 0 || s.matchCount > foundProcessable {
		return nil
	}

	covered := lastFound - firstFound + 1
	labelMatchScore := foundMatch / float64(len(labelTokens))

	var m Match
	switch {
	case l.sameText(l.state.windowText(firstFound, covered), text):
		m = MatchExact
		foundTokens = covered
	case (foundProcessable >= l.cfg.MinFoundTokens || foundTokens >= len(labelTokens)) &&
		labelMatchScore >= minLabelMatchScore:
		if foundTokens == len(labelTokens) && foundTokens == l.contentTokens(firstFound, covered) {
			m = MatchFull
		} else {
			m = MatchPartial
		}
	default:
		return nil
	}

	if s.matchCount < foundProcessable || (s.matchCount == foundProcessable && m > s.match) {
		return s.updateMatch(m, firstFound, covered, foundTokens,
			foundMatch/float64(foundTokens), label, len(labelTokens))
	}
	return nil
}

// contentTokens counts the tokens with letters or digits in a span
func (l *Linker) contentTokens(start, count int) int {
	n := 0
	for _, tok := range l.state.sentence.Tokens[start : start+count] {
		if l.isContent(tok) {
			n++
		}
	}
	return n
}

// isProcessable decides whether a token is searched for. POS tags are
// checked in order: a processed tag with enough probability accepts the
// token, any other tag with enough probability rejects it. Without a
// decision the token length is used.
func (l *Linker) isProcessable(tok analysis.Token) bool {
	if !l.isContent(tok) {
		return false
	}
	for _, pos := range tok.Pos {
		if _, ok := l.posTags[pos.Tag]; ok {
			if pos.Probability >= l.cfg.Pos.MinProbability {
				return true
			}
		} else if pos.Probability >= l.cfg.Pos.MinExcludeProbability {
			return false
		}
	}
	return utf8.RuneCountInString(tok.Text) >= l.cfg.MinSearchTokenLength
}

func (l *Linker) isContent(tok analysis.Token) bool {
	return l.state.sentence.ValidToken(tok) && tok.HasAlphaNumeric()
}

func (l *Linker) tokenText(text string) string {
	if l.cfg.CaseSensitive {
		return text
	}
	return l.lower(text, l.state.language)
}

// lower lowercases using the rules of lang
func (l *Linker) lower(text, lang string) string {
	c, ok := l.lowerCasers[lang]
	if !ok {
		c = cases.Lower(language.Make(lang))
		l.lowerCasers[lang] = c
	}
	return c.String(text)
}

func (l *Linker) sameText(a, b string) bool {
	if l.cfg.CaseSensitive {
		return a == b
	}
	return l.fold.String(a) == l.fold.String(b)
}

// tokenSimilarity returns the share of the longer token covered by the
// longest common prefix or suffix, and whether it reaches minFactor.
func tokenSimilarity(token, labelToken string, minFactor float64) (float64, bool) {
	a, b := []rune(token), []rune(labelToken)
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 0, false
	}
	diff := len(a) - len(b)
	if diff < 0 {
		diff = -diff
	}
	if float64(diff)/float64(maxLen) > 1-minFactor {
		return 0, false
	}
	f := float64(compareTokens(a, b)) / float64(maxLen)
	return f, f >= minFactor
}

// compareTokens returns the length of the longest common run at the start
// or at the end of both tokens.
func compareTokens(a, b []rune) int {
	l1, l2 := len(a), len(b)
	if l1 == l2 && string(a) == string(b) {
		return l1
	}
	ml := min(l1, l2)
	if ml == 0 {
		return 0
	}

	forward := 0
	for forward < ml && a[forward] == b[forward] {
		forward++
	}
	backward := 0
	if forward < ml {
		for backward < ml && a[l1-1-backward] == b[l2-1-backward] {
			backward++
		}
	}
	return max(forward, backward)
}

func hasAlphaNumeric(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
