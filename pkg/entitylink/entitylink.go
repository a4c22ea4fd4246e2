package entitylink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/entitylink/pkg/entitylink/analysis"
	"github.com/cognicore/entitylink/pkg/entitylink/config"
	"github.com/cognicore/entitylink/pkg/entitylink/enhance"
	"github.com/cognicore/entitylink/pkg/entitylink/internalerr"
	"github.com/cognicore/entitylink/pkg/entitylink/linking"
	"github.com/cognicore/entitylink/pkg/entitylink/site"
)

// Engine is the main entity linking facade
type Engine struct {
	searcher site.Searcher
	analyzer *analysis.Analyzer
	cfg      *config.Linker
	mappings *config.TypeMappings
	builder  *enhance.Builder
	logger   *zap.Logger
}

// Options configures an Engine
type Options struct {
	Searcher site.Searcher
	Analyzer *analysis.Analyzer
	Config   *config.Linker
	Logger   *zap.Logger
}

// New creates an Engine with the given dependencies
func New(opts Options) (*Engine, error) {
	if opts.Searcher == nil {
		return nil, fmt.Errorf("%w: searcher is required", internalerr.ErrInvalidInput)
	}

	cfg := config.Default()
	if opts.Config != nil {
		c := *opts.Config
		cfg = &c
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	analyzer := opts.Analyzer
	if analyzer == nil {
		analyzer = analysis.NewAnalyzer(analysis.AnalyzerOptions{})
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		searcher: opts.Searcher,
		analyzer: analyzer,
		cfg:      cfg,
		mappings: cfg.Mappings(),
		builder:  enhance.New(),
		logger:   logger,
	}, nil
}

// Close releases the searcher if it holds resources
func (e *Engine) Close() error {
	if c, ok := e.searcher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Request is one document to enhance
type Request struct {
	Doc analysis.Doc
	// Analysed replaces the built-in analyzer with upstream analysis of
	// the document text.
	Analysed *analysis.AnalysedText
}

// Result holds the linked entities and enhancements of one document
type Result struct {
	Text         string
	Language     string
	Entities     []*linking.LinkedEntity
	Enhancements enhance.Set
}

// Enhance links the entities mentioned in a document. Documents in a
// language the config does not process, and documents without text, yield
// an empty result.
func (e *Engine) Enhance(ctx context.Context, req Request) (Result, error) {
	language := req.Doc.Language
	if req.Analysed != nil && req.Analysed.Language != "" {
		language = req.Analysed.Language
	}
	if !e.cfg.ProcessesLanguage(language) {
		e.logger.Debug("skipping document in unprocessed language",
			zap.String("doc", req.Doc.ID),
			zap.String("language", language),
			zap.Strings("processed", e.cfg.ProcessedLanguages),
		)
		return emptyResult(language), nil
	}

	text := req.Analysed
	if text == nil {
		if strings.TrimSpace(req.Doc.Content) == "" {
			e.logger.Warn("no text to link", zap.String("doc", req.Doc.ID))
			return emptyResult(language), nil
		}
		if err := req.Doc.Validate(); err != nil {
			return Result{}, err
		}
		plain, err := req.Doc.PlainText()
		if err != nil {
			if errors.Is(err, analysis.ErrNoText) {
				e.logger.Warn("no text to link", zap.String("doc", req.Doc.ID), zap.Error(err))
				return emptyResult(language), nil
			}
			return Result{}, fmt.Errorf("%w: %w", internalerr.ErrInvalidInput, err)
		}
		text = e.analyzer.Analyze(plain, language)
	} else if text.Language == "" {
		at := *text
		at.Language = language
		text = &at
	}

	linker, err := linking.New(text, linking.Options{
		Searcher:  e.searcher,
		Config:    e.cfg,
		Mappings:  e.mappings,
		Tokenizer: e.analyzer.Tokenize,
		Logger:    e.logger,
	})
	if err != nil {
		return Result{}, err
	}
	if err := linker.Process(ctx); err != nil {
		return Result{}, err
	}

	entities := linker.LinkedEntities()
	e.logger.Debug("linked document",
		zap.String("doc", req.Doc.ID),
		zap.Int("sentences", len(text.Sentences)),
		zap.Int("entities", len(entities)),
	)

	return Result{
		Text:     text.Text,
		Language: text.Language,
		Entities: entities,
		Enhancements: e.builder.Build(entities, enhance.BuildOptions{
			Language:  text.Language,
			NameField: e.cfg.NameField,
			TypeField: e.cfg.TypeField,
			Site:      e.searcher.Name(),
		}),
	}, nil
}

func emptyResult(language string) Result {
	return Result{
		Language: language,
		Enhancements: enhance.Set{
			TextAnnotations:   []enhance.TextAnnotation{},
			EntityAnnotations: []enhance.EntityAnnotation{},
		},
	}
}
