package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/entitylink/pkg/entitylink/analysis"
	"github.com/cognicore/entitylink/pkg/entitylink/enhance"
)

const siteYAML = `name: dbpedia
entities:
  - id: http://dbpedia.org/resource/Paris
    labels:
      - text: Paris
        lang: en
    types:
      - http://dbpedia.org/ontology/Place
  - id: dogles
    labels:
      - text: Dr Richard Dogles
        lang: en
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestEntityLinkCLIMemory(t *testing.T) {
	ctx := context.Background()
	entities := writeFixture(t, "site.yaml", siteYAML)

	engine, cleanup, err := buildEngine(ctx, engineOptions{entitiesPath: entities})
	if err != nil {
		t.Fatalf("buildEngine: %v", err)
	}
	defer cleanup()

	var out bytes.Buffer
	err = executeEnhance(ctx, &out, engine, "Dr. Richard Dogles lives in Paris.",
		outputOptions{contentType: analysis.ContentTypePlain, language: "en"})
	if err != nil {
		t.Fatalf("executeEnhance: %v", err)
	}

	got := out.String()
	for _, want := range []string{"Entity 1: Dr. Richard Dogles", "Entity 2: Paris", "http://dbpedia.org/ontology/Place"} {
		if !strings.Contains(got, want) {
			t.Errorf("Output should contain %q:\n%s", want, got)
		}
	}
}

func TestEntityLinkCLISQLiteJSON(t *testing.T) {
	ctx := context.Background()
	entities := writeFixture(t, "cities.jsonl",
		`{"id":"http://dbpedia.org/resource/Paris","labels":[{"text":"Paris","lang":"en"}]}`+"\n")
	dbPath := filepath.Join(t.TempDir(), "site.db")

	engine, cleanup, err := buildEngine(ctx, engineOptions{dbPath: dbPath, entitiesPath: entities})
	if err != nil {
		t.Fatalf("buildEngine: %v", err)
	}
	defer cleanup()

	var out bytes.Buffer
	err = executeEnhance(ctx, &out, engine, "<p>Paris is nice.</p>",
		outputOptions{contentType: analysis.ContentTypeHTML, language: "en", asJSON: true})
	if err != nil {
		t.Fatalf("executeEnhance: %v", err)
	}

	var set enhance.Set
	if err := json.Unmarshal(out.Bytes(), &set); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if len(set.TextAnnotations) != 1 || set.TextAnnotations[0].SelectedText != "Paris" {
		t.Fatalf("Unexpected text annotations %+v", set.TextAnnotations)
	}
	if len(set.EntityAnnotations) != 1 || set.EntityAnnotations[0].Site != "sqlite" {
		t.Errorf("Unexpected entity annotations %+v", set.EntityAnnotations)
	}
}

func TestEntityLinkCLINoEntities(t *testing.T) {
	ctx := context.Background()
	entities := writeFixture(t, "site.yaml", siteYAML)

	engine, cleanup, err := buildEngine(ctx, engineOptions{entitiesPath: entities, verbose: true})
	if err != nil {
		t.Fatalf("buildEngine: %v", err)
	}
	defer cleanup()

	var out bytes.Buffer
	if err := executeEnhance(ctx, &out, engine, "nothing to see here",
		outputOptions{contentType: analysis.ContentTypePlain, language: "en"}); err != nil {
		t.Fatalf("executeEnhance: %v", err)
	}
	if !strings.Contains(out.String(), "No entities found.") {
		t.Errorf("Unexpected output %q", out.String())
	}
}
