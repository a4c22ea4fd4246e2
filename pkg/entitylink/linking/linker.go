package linking

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/cognicore/entitylink/pkg/entitylink/analysis"
	"github.com/cognicore/entitylink/pkg/entitylink/config"
	"github.com/cognicore/entitylink/pkg/entitylink/internalerr"
	"github.com/cognicore/entitylink/pkg/entitylink/site"
)

// Options configures a Linker
type Options struct {
	Searcher site.Searcher
	// Config defaults to config.Default(). It is copied and validated.
	Config *config.Linker
	// Mappings defaults to the mappings built from Config.
	Mappings *config.TypeMappings
	// Tokenizer splits labels into tokens. It should tokenize the same way
	// as the analyzer that produced the text.
	Tokenizer func(string) []string
	Logger    *zap.Logger
}

// Linker links the tokens of one analysed text to entities of a site. A
// Linker is not safe for concurrent use and processes its text once.
type Linker struct {
	searcher site.Searcher
	cfg      config.Linker
	mappings *config.TypeMappings
	tokenize func(string) []string
	logger   *zap.Logger

	state       *processingState
	posTags     map[string]struct{}
	selected    []string
	lookupLimit int
	lowerCasers map[string]cases.Caser
	fold        cases.Caser

	entities map[string]*LinkedEntity
	order    []string
}

// New creates a linker for text
func New(text *analysis.AnalysedText, opts Options) (*Linker, error) {
	if text == nil {
		return nil, fmt.Errorf("%w: analysed text is required", internalerr.ErrInvalidInput)
	}
	if opts.Searcher == nil {
		return nil, fmt.Errorf("%w: searcher is required", internalerr.ErrInvalidInput)
	}
	if err := text.ValidateChunks(); err != nil {
		return nil, err
	}

	cfg := config.Default()
	if opts.Config != nil {
		c := *opts.Config
		cfg = &c
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mappings := opts.Mappings
	if mappings == nil {
		mappings = cfg.Mappings()
	}
	tokenize := opts.Tokenizer
	if tokenize == nil {
		tokenize = analysis.NewAnalyzer(analysis.AnalyzerOptions{}).Tokenize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	posTags := make(map[string]struct{}, len(cfg.Pos.ProcessedTags))
	for _, tag := range cfg.Pos.ProcessedTags {
		posTags[tag] = struct{}{}
	}

	return &Linker{
		searcher:    opts.Searcher,
		cfg:         *cfg,
		mappings:    mappings,
		tokenize:    tokenize,
		logger:      logger,
		state:       newProcessingState(text),
		posTags:     posTags,
		selected:    cfg.SelectedFields(),
		lookupLimit: max(10, cfg.MaxSuggestions*2),
		lowerCasers: make(map[string]cases.Caser),
		fold:        cases.Fold(),
		entities:    make(map[string]*LinkedEntity),
	}, nil
}

// Process walks all tokens and links them. A searcher failure aborts
// processing with an error wrapping internalerr.ErrLinking.
func (l *Linker) Process(ctx context.Context) error {
	if l.state.mode != modeBeforeFirst {
		return fmt.Errorf("%w: text already processed", internalerr.ErrInvalidInput)
	}

	for l.state.advance() {
		tok := l.state.token()
		if !l.state.sentence.ValidToken(tok) {
			l.logger.Warn("skipping token with invalid span",
				zap.Int("sentence", l.state.sentenceIndex),
				zap.Int("token", l.state.tokenIndex),
				zap.Int("start", tok.Start),
				zap.Int("end", tok.End))
			continue
		}

		processable := l.isProcessable(tok)
		l.logger.Debug("token",
			zap.String("text", tok.Text),
			zap.Bool("processable", processable))
		if !processable {
			continue
		}

		suggestions, err := l.lookupEntities(ctx, l.searchTerms())
		if err != nil {
			return err
		}
		if len(suggestions) == 0 {
			continue
		}
		if err := l.link(ctx, suggestions); err != nil {
			return err
		}
	}
	return nil
}

// LinkedEntities returns the results in order of their first occurrence
func (l *Linker) LinkedEntities() []*LinkedEntity {
	out := make([]*LinkedEntity, len(l.order))
	for i, text := range l.order {
		out[i] = l.entities[text]
	}
	return out
}

// LinkedEntity returns the result for a selected text
func (l *Linker) LinkedEntity(selectedText string) (*LinkedEntity, bool) {
	e, ok := l.entities[selectedText]
	return e, ok
}

// searchTerms returns the current token and the following processable
// tokens of the chunk or sentence.
func (l *Linker) searchTerms() []string {
	tokens := l.state.sentence.Tokens
	terms := []string{l.state.token().Text}
	end := l.state.windowEnd()
	for i := l.state.tokenIndex + 1; len(terms) < l.cfg.MaxSearchTokens && i <= end; i++ {
		if l.isProcessable(tokens[i]) {
			terms = append(terms, tokens[i].Text)
		}
	}
	return terms
}

// lookupEntities searches the site and returns the matching suggestions,
// best first.
func (l *Linker) lookupEntities(ctx context.Context, terms []string) ([]*Suggestion, error) {
	results, err := l.searcher.Lookup(ctx, site.Query{
		Field:           l.cfg.NameField,
		Selected:        l.selected,
		Terms:           terms,
		Language:        l.state.language,
		DefaultLanguage: l.cfg.DefaultLanguage,
		Limit:           l.lookupLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: lookup %q in %s: %w", internalerr.ErrLinking, terms, l.searcher.Name(), err)
	}

	var suggestions []*Suggestion
	for _, rep := range results {
		if rep == nil {
			continue
		}
		s, err := l.matchLabels(rep)
		if err != nil {
			return nil, fmt.Errorf("%w: match %s: %w", internalerr.ErrLinking, rep.ID, err)
		}
		if s.match != MatchNone {
			suggestions = append(suggestions, s)
		}
	}
	slices.SortStableFunc(suggestions, compareDefault)
	return suggestions, nil
}

// link ranks the suggestions of the current position and records the
// result for the span of the best one.
func (l *Linker) link(ctx context.Context, suggestions []*Suggestion) error {
	suggestions = l.rank(suggestions)

	if l.cfg.RedirectMode != config.RedirectIgnore {
		for _, s := range suggestions {
			if err := l.processRedirects(ctx, s); err != nil {
				return err
			}
		}
	}

	top := suggestions[0]
	sent := l.state.sentence
	selected := l.state.windowText(top.start, top.span)

	entity, ok := l.entities[selected]
	if !ok {
		entity = &LinkedEntity{
			SelectedText: selected,
			Suggestions:  suggestions,
			Types:        l.entityTypes(top),
		}
		l.entities[selected] = entity
		l.order = append(l.order, selected)
	}
	entity.addOccurrence(Occurrence{
		Start:        sent.Offset + sent.Tokens[top.start].Start,
		End:          sent.Offset + sent.Tokens[top.start+top.span-1].End,
		SelectedText: selected,
		Context:      sent.Text,
	})

	if err := l.state.markConsumed(top.start + top.span - 1); err != nil {
		return fmt.Errorf("%w: %w", internalerr.ErrLinking, err)
	}
	return nil
}

// rank scores suggestions sorted by compareDefault relative to the best
// match count, drops weak ones and returns at most MaxSuggestions sorted by
// score.
func (l *Linker) rank(suggestions []*Suggestion) []*Suggestion {
	best := suggestions[0].matchCount

	kept := suggestions[:0]
	for _, s := range suggestions {
		if s.matchCount < best {
			s.match = MatchPartial
			if s.matchCount < l.cfg.MinFoundTokens {
				continue
			}
		}
		weighted := float64(s.matchCount) * s.matchScore
		spanScore := float64(s.matchCount) / float64(best)
		textScore := weighted / float64(s.span)
		labelScore := weighted / float64(s.labelTokenCount)
		s.score = spanScore * spanScore * textScore * labelScore
		kept = append(kept, s)
	}

	previous := kept[0]
	slices.SortStableFunc(kept, compareScore)
	if kept[0].matchCount != best {
		l.logger.Warn("match count of the top suggestion changed after sorting by score",
			zap.String("text", l.state.windowText(kept[0].start, kept[0].span)),
			zap.Int("bestMatchCount", best),
			zap.Stringer("previousBest", previous),
			zap.Stringer("currentBest", kept[0]))
	}

	if len(kept) > l.cfg.MaxSuggestions {
		kept = kept[:l.cfg.MaxSuggestions]
	}
	return kept
}

// processRedirects applies the redirect mode to a suggestion once
func (l *Linker) processRedirects(ctx context.Context, s *Suggestion) error {
	if l.cfg.RedirectField == "" || s.redirectProcessed {
		return nil
	}

	for _, ref := range s.result.References(l.cfg.RedirectField) {
		if ref == "" {
			continue
		}
		redirected, err := l.searcher.Get(ctx, ref, l.selected)
		if err != nil {
			return fmt.Errorf("%w: get redirect %s: %w", internalerr.ErrLinking, ref, err)
		}

		switch l.cfg.RedirectMode {
		case config.RedirectAddValues:
			if redirected != nil {
				for _, field := range redirected.FieldNames() {
					s.result.Add(field, redirected.Get(field)...)
				}
			}
			s.redirectProcessed = true
		case config.RedirectFollow:
			if redirected != nil {
				redirected.Set(site.ResultScoreField, s.result.Get(site.ResultScoreField)...)
				s.setRedirect(redirected)
			}
		}
	}
	return nil
}

// entityTypes maps the types of the suggested entity
func (l *Linker) entityTypes(s *Suggestion) []string {
	if l.cfg.TypeField == "" {
		return l.mappings.Map(nil)
	}
	return l.mappings.Map(s.Representation().References(l.cfg.TypeField))
}
