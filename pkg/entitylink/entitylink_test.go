package entitylink

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cognicore/entitylink/pkg/entitylink/analysis"
	"github.com/cognicore/entitylink/pkg/entitylink/config"
	"github.com/cognicore/entitylink/pkg/entitylink/internalerr"
	"github.com/cognicore/entitylink/pkg/entitylink/site"
	"github.com/cognicore/entitylink/pkg/entitylink/site/memsite"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	searcher := memsite.New("cities")
	searcher.PutRecords([]site.Record{
		{
			ID:     "http://dbpedia.org/resource/Paris",
			Labels: []site.Label{{Text: "Paris", Lang: "en"}},
			Types:  []string{config.TypePlace},
		},
		{
			ID:     "http://dbpedia.org/resource/Berlin",
			Labels: []site.Label{{Text: "Berlin", Lang: "en"}},
		},
	}, config.Default().Fields())

	engine, err := New(Options{Searcher: searcher})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestEnhancePlainText(t *testing.T) {
	engine := newEngine(t)

	res, err := engine.Enhance(context.Background(), Request{Doc: analysis.Doc{
		ID:       "doc-1",
		Content:  "I moved from Berlin to Paris.",
		Language: "en",
	}})
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}

	if len(res.Entities) != 2 {
		t.Fatalf("Expected 2 linked entities, got %d", len(res.Entities))
	}
	if res.Entities[0].SelectedText != "Berlin" || res.Entities[1].SelectedText != "Paris" {
		t.Errorf("Expected Berlin then Paris, got %q and %q",
			res.Entities[0].SelectedText, res.Entities[1].SelectedText)
	}
	if len(res.Enhancements.TextAnnotations) != 2 || len(res.Enhancements.EntityAnnotations) != 2 {
		t.Fatalf("Unexpected enhancements %+v", res.Enhancements)
	}

	paris := res.Enhancements.TextAnnotations[1]
	if paris.Start != 23 || paris.End != 28 {
		t.Errorf("Expected Paris at 23-28, got %d-%d", paris.Start, paris.End)
	}
	if paris.Context != "I moved from Berlin to Paris." {
		t.Errorf("Unexpected context %q", paris.Context)
	}
	if name := res.Enhancements.EntityAnnotations[1].Site; name != "cities" {
		t.Errorf("Expected site cities, got %q", name)
	}
}

func TestEnhanceHTML(t *testing.T) {
	engine := newEngine(t)

	res, err := engine.Enhance(context.Background(), Request{Doc: analysis.Doc{
		Content:     "<html><body><h1>Travel</h1><script>var Berlin = 1;</script><p>Paris is nice.</p></body></html>",
		ContentType: "text/html; charset=utf-8",
		Language:    "en",
	}})
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}

	if len(res.Entities) != 1 || res.Entities[0].SelectedText != "Paris" {
		t.Fatalf("Expected only Paris to be linked, got %+v", res.Entities)
	}
	occ := res.Entities[0].Occurrences[0]
	if res.Text[occ.Start:occ.End] != "Paris" {
		t.Errorf("Occurrence offsets should point into the extracted text, got %q", res.Text[occ.Start:occ.End])
	}
}

func TestEnhanceAnalysedText(t *testing.T) {
	engine := newEngine(t)

	text := &analysis.AnalysedText{
		Text: "Berlin is big",
		Sentences: []analysis.Sentence{{
			Text: "Berlin is big",
			Tokens: []analysis.Token{
				{Text: "Berlin", Start: 0, End: 6},
				{Text: "is", Start: 7, End: 9},
				{Text: "big", Start: 10, End: 13},
			},
		}},
	}

	res, err := engine.Enhance(context.Background(), Request{
		Doc:      analysis.Doc{Language: "en"},
		Analysed: text,
	})
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if res.Language != "en" {
		t.Errorf("Expected document language en, got %q", res.Language)
	}
	if text.Language != "" {
		t.Error("Supplied analysed text should not be modified")
	}
	if len(res.Entities) != 1 || res.Entities[0].SelectedText != "Berlin" {
		t.Fatalf("Expected Berlin, got %+v", res.Entities)
	}
}

func TestEnhanceInvalidDoc(t *testing.T) {
	engine := newEngine(t)

	doc := analysis.Doc{Content: "Paris", ContentType: "application/pdf"}
	if _, err := engine.Enhance(context.Background(), Request{Doc: doc}); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for %+v, got %v", doc, err)
	}
}

func TestEnhanceDocWithoutText(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	engine, err := New(Options{Searcher: memsite.New("cities"), Logger: zap.New(core)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	docs := []analysis.Doc{
		{ID: "blank", Content: "  \n\t "},
		{ID: "script", Content: "<script>x()</script>", ContentType: "text/html"},
	}
	for _, doc := range docs {
		res, err := engine.Enhance(context.Background(), Request{Doc: doc})
		if err != nil {
			t.Errorf("Document %s without text should not fail: %v", doc.ID, err)
			continue
		}
		if len(res.Entities) != 0 || len(res.Enhancements.TextAnnotations) != 0 || res.Enhancements.EntityAnnotations == nil {
			t.Errorf("Document %s should yield an empty result, got %+v", doc.ID, res)
		}
	}
	if n := logs.FilterMessage("no text to link").Len(); n != 2 {
		t.Errorf("Expected 2 warnings, got %d", n)
	}
}

func TestEnhanceProcessedLanguages(t *testing.T) {
	searcher := memsite.New("cities")
	searcher.PutRecords([]site.Record{
		{ID: "paris", Labels: []site.Label{{Text: "Paris"}}},
	}, config.Default().Fields())

	cfg := config.Default()
	cfg.ProcessedLanguages = []string{"en"}
	core, logs := observer.New(zapcore.DebugLevel)
	engine, err := New(Options{Searcher: searcher, Config: cfg, Logger: zap.New(core)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := engine.Enhance(context.Background(), Request{Doc: analysis.Doc{
		Content:  "Paris est belle.",
		Language: "fr",
	}})
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if len(res.Entities) != 0 || len(res.Enhancements.TextAnnotations) != 0 {
		t.Errorf("French document should not be linked, got %+v", res.Entities)
	}
	if res.Language != "fr" {
		t.Errorf("Expected language fr, got %q", res.Language)
	}
	if logs.FilterMessage("skipping document in unprocessed language").Len() != 1 {
		t.Error("Expected a debug log for the skipped document")
	}

	res, err = engine.Enhance(context.Background(), Request{Doc: analysis.Doc{
		Content:  "Paris is nice.",
		Language: "en-GB",
	}})
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if len(res.Entities) != 1 || res.Entities[0].SelectedText != "Paris" {
		t.Errorf("English document should be linked, got %+v", res.Entities)
	}

	text := &analysis.AnalysedText{Language: "de", Text: "Paris", Sentences: []analysis.Sentence{{
		Text:   "Paris",
		Tokens: []analysis.Token{{Text: "Paris", Start: 0, End: 5}},
	}}}
	res, err = engine.Enhance(context.Background(), Request{Analysed: text})
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if len(res.Entities) != 0 {
		t.Error("Analysed text in an unprocessed language should not be linked")
	}
}

type failingSearcher struct{}

func (failingSearcher) Lookup(context.Context, site.Query) ([]*site.Representation, error) {
	return nil, internalerr.ErrSiteUnavailable
}

func (failingSearcher) Get(context.Context, string, []string) (*site.Representation, error) {
	return nil, internalerr.ErrSiteUnavailable
}

func (failingSearcher) Name() string { return "failing" }

func TestEnhanceSearcherFailure(t *testing.T) {
	engine, err := New(Options{Searcher: failingSearcher{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = engine.Enhance(context.Background(), Request{Doc: analysis.Doc{Content: "Paris is nice."}})
	if !errors.Is(err, internalerr.ErrLinking) || !errors.Is(err, internalerr.ErrSiteUnavailable) {
		t.Errorf("Expected linking error wrapping the site error, got %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Errorf("Close without a closer should succeed: %v", err)
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput without searcher, got %v", err)
	}

	cfg := config.Default()
	cfg.MaxSuggestions = 0
	if _, err := New(Options{Searcher: memsite.New("x"), Config: cfg}); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}
