package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoaderAllEmpty(t *testing.T) {
	loader := Loader{}

	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Empty loader should succeed: %v", err)
	}

	if comp.Linker == nil {
		t.Fatal("Should have default linker config")
	}
	if comp.Mappings == nil || comp.Mappings.Len() == 0 {
		t.Error("Should have default type mappings")
	}
	if len(comp.Entities) != 0 {
		t.Errorf("Expected no entities, got %d", len(comp.Entities))
	}
}

func TestLoaderNonExistentLinker(t *testing.T) {
	loader := Loader{LinkerPath: "/nonexistent/linker.yaml"}

	if _, err := loader.Load(); err == nil {
		t.Error("Should error on nonexistent linker config")
	}
}

func TestLoaderNonExistentSite(t *testing.T) {
	loader := Loader{SitePath: "/nonexistent/site.yaml"}

	if _, err := loader.Load(); err == nil {
		t.Error("Should error on nonexistent site")
	}
}

func TestLoaderSite(t *testing.T) {
	dir := t.TempDir()
	sitePath := filepath.Join(dir, "site.yaml")
	content := `
name: demo
entities:
  - id: http://dbpedia.org/resource/Paris
    labels:
      - {text: Paris, lang: en}
      - {text: Parigi, lang: it}
    types: [http://dbpedia.org/ontology/Place]
    rank: 0.9
  - id: http://dbpedia.org/resource/Paris_(mythology)
    labels:
      - {text: Paris}
    redirects: [http://dbpedia.org/resource/Paris_of_Troy]
`
	if err := os.WriteFile(sitePath, []byte(content), 0644); err != nil {
		t.Fatalf("write site: %v", err)
	}

	comp, err := (&Loader{SitePath: sitePath}).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if comp.SiteName != "demo" {
		t.Errorf("Expected site name demo, got %q", comp.SiteName)
	}
	if len(comp.Entities) != 2 {
		t.Fatalf("Expected 2 entities, got %d", len(comp.Entities))
	}

	paris := comp.Entities[0]
	if len(paris.Labels) != 2 || paris.Labels[1].Lang != "it" {
		t.Errorf("Unexpected labels: %+v", paris.Labels)
	}
	if paris.Rank != 0.9 {
		t.Errorf("Expected rank 0.9, got %v", paris.Rank)
	}

	rep := paris.Representation(comp.Linker.Fields())
	if texts := rep.Text(RDFSLabel); len(texts) != 2 {
		t.Errorf("Expected 2 labels in representation, got %v", texts)
	}
	if refs := rep.References(RDFType); len(refs) != 1 {
		t.Errorf("Expected 1 type, got %v", refs)
	}
	if rank, ok := rep.Float(EntityRank); !ok || rank != 0.9 {
		t.Errorf("Expected entity rank 0.9, got %v %v", rank, ok)
	}

	myth := comp.Entities[1].Representation(comp.Linker.Fields())
	if refs := myth.References(RDFSSeeAlso); len(refs) != 1 {
		t.Errorf("Expected 1 redirect, got %v", refs)
	}
}

func TestLoadSiteMissingID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	if err := os.WriteFile(path, []byte("entities:\n  - labels: [{text: X}]\n"), 0644); err != nil {
		t.Fatalf("write site: %v", err)
	}

	if _, err := LoadSite(path); err == nil {
		t.Error("Should reject entity without id")
	}
}
