package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/entitylink/internal/dataset"
	"github.com/cognicore/entitylink/pkg/entitylink"
	"github.com/cognicore/entitylink/pkg/entitylink/analysis"
	"github.com/cognicore/entitylink/pkg/entitylink/config"
	"github.com/cognicore/entitylink/pkg/entitylink/site"
	"github.com/cognicore/entitylink/pkg/entitylink/site/memsite"
	"github.com/cognicore/entitylink/pkg/entitylink/site/sqlite"
)

type engineOptions struct {
	dbPath       string
	entitiesPath string
	configPath   string
	verbose      bool
}

type outputOptions struct {
	contentType string
	language    string
	asJSON      bool
}

func main() {
	var (
		dbPath       = flag.String("db", "", "SQLite entity site (optional)")
		entitiesPath = flag.String("entities", "", "Entity file, YAML site or JSONL records")
		configPath   = flag.String("config", "", "Linker config file (optional)")
		text         = flag.String("text", "", "One-shot text (non-interactive mode)")
		file         = flag.String("file", "", "Read one document from file (non-interactive mode)")
		html         = flag.Bool("html", false, "Treat input as HTML")
		lang         = flag.String("lang", "en", "Language of the input")
		asJSON       = flag.Bool("json", false, "Print enhancements as JSON")
		verbose      = flag.Bool("v", false, "Verbose linker logging")
	)
	flag.Parse()

	if *dbPath == "" && *entitiesPath == "" {
		log.Fatal("--db or --entities required")
	}

	out := outputOptions{contentType: analysis.ContentTypePlain, language: *lang, asJSON: *asJSON}
	if *html {
		out.contentType = analysis.ContentTypeHTML
	}

	err := run(context.Background(), engineOptions{
		dbPath:       *dbPath,
		entitiesPath: *entitiesPath,
		configPath:   *configPath,
		verbose:      *verbose,
	}, out, *text, *file)
	if err != nil {
		log.Fatal(err)
	}
}

// run builds the engine and links the one-shot input, or stdin lines when
// there is none. The engine is closed before run returns.
func run(ctx context.Context, opts engineOptions, out outputOptions, text, file string) error {
	engine, cleanup, err := buildEngine(ctx, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	// One-shot mode
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		return executeEnhance(ctx, os.Stdout, engine, string(data), out)
	}
	if text != "" {
		return executeEnhance(ctx, os.Stdout, engine, text, out)
	}

	// Interactive mode
	fmt.Println("===========================================")
	fmt.Println("  Entity Linker")
	fmt.Println("  One line per document")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Println("Type some text (Ctrl+D to exit):")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := executeEnhance(ctx, os.Stdout, engine, line, out); err != nil {
			fmt.Println("Error:", err)
		}
	}

	fmt.Println("\nGoodbye!")
	return scanner.Err()
}

func executeEnhance(ctx context.Context, w io.Writer, engine *entitylink.Engine, content string, out outputOptions) error {
	res, err := engine.Enhance(ctx, entitylink.Request{Doc: analysis.Doc{
		Content:     content,
		ContentType: out.contentType,
		Language:    out.language,
	}})
	if err != nil {
		return fmt.Errorf("enhance: %w", err)
	}

	if out.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Enhancements)
	}

	if len(res.Entities) == 0 {
		fmt.Fprintln(w, "No entities found.")
		fmt.Fprintln(w)
		return nil
	}

	for i, entity := range res.Entities {
		fmt.Fprintf(w, "\n--- Entity %d: %s (%.2f) ---\n", i+1, entity.SelectedText, entity.Score())
		if len(entity.Types) > 0 {
			fmt.Fprintf(w, "  Types: %s\n", strings.Join(entity.Types, ", "))
		}

		fmt.Fprintln(w, "\nOccurrences:")
		for _, occ := range entity.Occurrences {
			fmt.Fprintf(w, "  - [%d:%d] %s\n", occ.Start, occ.End, occ.Context)
		}

		fmt.Fprintln(w, "\nSuggestions:")
		for _, s := range entity.Suggestions {
			fmt.Fprintf(w, "  - %s %s %.2f", s.Representation().ID, s.Match(), s.Score())
			if s.IsRedirect() {
				fmt.Fprintf(w, " (via %s)", s.Result().ID)
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}

	return nil
}

func buildEngine(ctx context.Context, opts engineOptions) (*entitylink.Engine, func(), error) {
	loader := config.Loader{LinkerPath: opts.configPath}
	components, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	cfg := components.Linker

	var (
		name    string
		records []site.Record
	)
	if opts.entitiesPath != "" {
		name, records, err = dataset.Load(opts.entitiesPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load entities: %w", err)
		}
	}

	var logger *zap.Logger
	if opts.verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, nil, fmt.Errorf("create logger: %w", err)
		}
	}

	var searcher site.Searcher
	if opts.dbPath != "" {
		db, err := sqlite.OpenSQLite(ctx, opts.dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open site: %w", err)
		}
		if len(records) > 0 {
			n, err := db.PutRecords(ctx, records, cfg.Fields())
			if err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("import entities: %w", err)
			}
			log.Printf("Imported %d entities into %s", n, opts.dbPath)
		}
		searcher = db
	} else {
		mem := memsite.New(name)
		n := mem.PutRecords(records, cfg.Fields())
		log.Printf("Loaded %d entities from %s", n, opts.entitiesPath)
		searcher = mem
	}

	engine, err := entitylink.New(entitylink.Options{
		Searcher: searcher,
		Config:   cfg,
		Logger:   logger,
	})
	if err != nil {
		if c, ok := searcher.(io.Closer); ok {
			c.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		engine.Close()
		if logger != nil {
			logger.Sync()
		}
	}

	return engine, cleanup, nil
}
