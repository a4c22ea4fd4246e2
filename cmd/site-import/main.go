package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/entitylink/internal/dataset"
	"github.com/cognicore/entitylink/pkg/entitylink/config"
	"github.com/cognicore/entitylink/pkg/entitylink/site"
	"github.com/cognicore/entitylink/pkg/entitylink/site/sqlite"
)

// importConfig holds the parameters of one import run.
type importConfig struct {
	inputs     []string
	dbPath     string
	configPath string
	siteName   string
}

// importReport summarizes an import run.
type importReport struct {
	Site     string         `yaml:"site"`
	Database string         `yaml:"database"`
	Files    []fileReport   `yaml:"files"`
	Total    int            `yaml:"total_entities"`
	Labels   map[string]int `yaml:"labels_by_language"`
}

type fileReport struct {
	Path     string `yaml:"path"`
	Site     string `yaml:"site"`
	Read     int    `yaml:"read"`
	Imported int    `yaml:"imported"`
}

func main() {
	var (
		input      = flag.String("input", "", "Comma separated YAML site or JSONL entity files (required)")
		dbPath     = flag.String("db", "", "SQLite site to import into (required)")
		configPath = flag.String("config", "", "Linker config naming the label, type and redirect fields (optional)")
		siteName   = flag.String("site", "", "Site name reported in the summary (optional)")
		reportPath = flag.String("report", "", "Write a YAML import report to this file (optional)")
	)
	flag.Parse()

	if *input == "" || *dbPath == "" {
		log.Fatal("--input and --db are required")
	}

	var inputs []string
	for _, p := range strings.Split(*input, ",") {
		if p = strings.TrimSpace(p); p != "" {
			inputs = append(inputs, p)
		}
	}

	report, err := runImport(context.Background(), importConfig{
		inputs:     inputs,
		dbPath:     *dbPath,
		configPath: *configPath,
		siteName:   *siteName,
	})
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("Imported %d entities into %s (%d in site)", sumImported(report), *dbPath, report.Total)
	log.Printf("Label languages: %s", strings.Join(languages(report), ", "))

	if *reportPath != "" {
		if err := writeReport(*reportPath, report); err != nil {
			log.Fatalf("write report: %v", err)
		}
		log.Printf("Report written to %s", *reportPath)
	}
}

func runImport(ctx context.Context, cfg importConfig) (*importReport, error) {
	loader := config.Loader{LinkerPath: cfg.configPath}
	components, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	fields := components.Linker.Fields()

	db, err := sqlite.OpenSQLite(ctx, cfg.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open site: %w", err)
	}
	defer db.Close()

	report := &importReport{
		Site:     cfg.siteName,
		Database: cfg.dbPath,
		Labels:   make(map[string]int),
	}

	for _, path := range cfg.inputs {
		name, records, err := dataset.Load(path)
		if err != nil {
			return nil, err
		}

		n, err := db.PutRecords(ctx, records, fields)
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", path, err)
		}
		log.Printf("%s: imported %d of %d entities", path, n, len(records))

		report.Files = append(report.Files, fileReport{Path: path, Site: name, Read: len(records), Imported: n})
		countLabels(report.Labels, records)
		if report.Site == "" {
			report.Site = name
		}
	}

	total, err := db.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count entities: %w", err)
	}
	report.Total = total

	return report, nil
}

func countLabels(counts map[string]int, records []site.Record) {
	for _, rec := range records {
		if rec.Validate() != nil {
			continue
		}
		for _, l := range rec.Labels {
			if strings.TrimSpace(l.Text) == "" {
				continue
			}
			lang := l.Lang
			if lang == "" {
				lang = "none"
			}
			counts[lang]++
		}
	}
}

func sumImported(r *importReport) int {
	n := 0
	for _, f := range r.Files {
		n += f.Imported
	}
	return n
}

func writeReport(path string, r *importReport) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// languages returns the label languages of a report, most frequent first.
func languages(r *importReport) []string {
	langs := make([]string, 0, len(r.Labels))
	for lang := range r.Labels {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool {
		if r.Labels[langs[i]] != r.Labels[langs[j]] {
			return r.Labels[langs[i]] > r.Labels[langs[j]]
		}
		return langs[i] < langs[j]
	})
	return langs
}
