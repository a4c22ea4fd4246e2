package dataset

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cognicore/entitylink/pkg/entitylink/config"
	"github.com/cognicore/entitylink/pkg/entitylink/site"
)

// Load reads entity records from a JSONL file or a YAML site file and
// returns them with the site name. JSONL sites are named after the file.
func Load(path string) (string, []site.Record, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".jsonl" || ext == ".ndjson" {
		records, err := LoadJSONL(path)
		if err != nil {
			return "", nil, err
		}
		return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), records, nil
	}

	s, err := config.LoadSite(path)
	if err != nil {
		return "", nil, fmt.Errorf("load site %s: %w", path, err)
	}
	name := s.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return name, s.Entities, nil
}

// LoadJSONL loads entity records from a JSONL file, one record per line.
// Malformed lines and records without id or label are skipped.
func LoadJSONL(path string) ([]site.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	var records []site.Record
	lines := strings.Split(string(data), "\n")

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var rec site.Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			log.Printf("Warning: skipping malformed JSON at line %d in %s: %v", i+1, path, err)
			continue
		}
		if err := rec.Validate(); err != nil {
			log.Printf("Warning: skipping record at line %d in %s: %v", i+1, path, err)
			continue
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no valid records found in %s", path)
	}

	return records, nil
}
