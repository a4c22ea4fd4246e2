package enhance

import (
	"context"
	"testing"

	"github.com/cognicore/entitylink/pkg/entitylink/analysis"
	"github.com/cognicore/entitylink/pkg/entitylink/config"
	"github.com/cognicore/entitylink/pkg/entitylink/linking"
	"github.com/cognicore/entitylink/pkg/entitylink/site"
	"github.com/cognicore/entitylink/pkg/entitylink/site/memsite"
)

func linkedEntities(t *testing.T, text string) []*linking.LinkedEntity {
	t.Helper()
	searcher := memsite.New("test")
	searcher.PutRecords([]site.Record{
		{
			ID:     "http://dbpedia.org/resource/Paris",
			Labels: []site.Label{{Text: "Paris", Lang: "en"}, {Text: "Parigi", Lang: "it"}},
			Types:  []string{config.TypePlace},
		},
		{
			ID:     "http://dbpedia.org/resource/Berlin",
			Labels: []site.Label{{Text: "Berlin", Lang: "en"}},
		},
	}, config.Default().Fields())

	at := analysis.NewAnalyzer(analysis.AnalyzerOptions{}).Analyze(text, "en")
	l, err := linking.New(at, linking.Options{Searcher: searcher})
	if err != nil {
		t.Fatalf("linking.New: %v", err)
	}
	if err := l.Process(context.Background()); err != nil {
		t.Fatalf("Process: %v", err)
	}
	return l.LinkedEntities()
}

func TestBuilderEmpty(t *testing.T) {
	set := New().Build(nil, BuildOptions{})

	if set.TextAnnotations == nil || set.EntityAnnotations == nil {
		t.Error("Empty set should have non-nil slices")
	}
	if len(set.TextAnnotations) != 0 || len(set.EntityAnnotations) != 0 {
		t.Errorf("Expected no annotations, got %+v", set)
	}
}

func TestBuilderAnnotations(t *testing.T) {
	entities := linkedEntities(t, "Paris is nice. Berlin is big. I love Paris.")
	if len(entities) != 2 {
		t.Fatalf("Expected 2 linked entities, got %d", len(entities))
	}

	set := New().Build(entities, BuildOptions{
		Language:  "en",
		NameField: config.RDFSLabel,
		TypeField: config.RDFType,
		Site:      "test",
	})

	if len(set.TextAnnotations) != 3 {
		t.Fatalf("Expected 3 text annotations, got %d", len(set.TextAnnotations))
	}
	if len(set.EntityAnnotations) != 2 {
		t.Fatalf("Expected 2 entity annotations, got %d", len(set.EntityAnnotations))
	}

	paris := set.EntityAnnotations[0]
	if paris.Reference != "http://dbpedia.org/resource/Paris" {
		t.Errorf("Unexpected reference %s", paris.Reference)
	}
	if paris.Label != "Paris" || paris.LabelLanguage != "en" {
		t.Errorf("Expected English label, got %q (%s)", paris.Label, paris.LabelLanguage)
	}
	if len(paris.Relations) != 2 {
		t.Errorf("Paris should relate to both occurrences, got %v", paris.Relations)
	}
	if len(paris.EntityTypes) != 1 || paris.EntityTypes[0] != config.TypePlace {
		t.Errorf("Unexpected entity types %v", paris.EntityTypes)
	}
	if paris.Site != "test" {
		t.Errorf("Expected site test, got %q", paris.Site)
	}

	first := set.TextAnnotations[0]
	if first.SelectedText != "Paris" || first.Start != 0 || first.End != 5 {
		t.Errorf("Unexpected text annotation %+v", first)
	}
	if first.Confidence != 1 {
		t.Errorf("Expected confidence 1, got %v", first.Confidence)
	}
	if len(first.Types) != 1 || first.Types[0] != config.TypePlace {
		t.Errorf("Expected place type, got %v", first.Types)
	}
	if paris.Relations[0] != first.ID {
		t.Errorf("Relation should point to the text annotation")
	}
}

func TestBuilderULIDUniqueness(t *testing.T) {
	builder := New()
	entities := linkedEntities(t, "Paris is nice.")

	ids := make(map[string]bool)
	for i := 0; i < 500; i++ {
		set := builder.Build(entities, BuildOptions{NameField: config.RDFSLabel})
		for _, ta := range set.TextAnnotations {
			if ids[ta.ID] {
				t.Fatalf("Duplicate ULID generated: %s", ta.ID)
			}
			ids[ta.ID] = true
		}
		for _, ea := range set.EntityAnnotations {
			if ids[ea.ID] {
				t.Fatalf("Duplicate ULID generated: %s", ea.ID)
			}
			ids[ea.ID] = true
		}
	}

	if len(ids) != 1000 {
		t.Errorf("Expected 1000 unique IDs, got %d", len(ids))
	}
}
