// -----------------------------------------------------------------------
// Target Loading
// Builds the ordered capture list from a CSV or YAML input file: KB
// numbers expand through the URL template, URLs unwrap /target/ redirects
// -----------------------------------------------------------------------

package batch

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/kapture/internal/common"
	"github.com/ternarybob/kapture/internal/models"
	"gopkg.in/yaml.v3"
)

type targetEntry struct {
	KB  string `yaml:"kb"`
	URL string `yaml:"url"`
}

type targetFile struct {
	Targets []targetEntry `yaml:"targets"`
}

// LoadTargets reads the target list from a .csv, .yaml or .yml file and
// returns capture targets in input order. Rows with neither a KB number nor
// a URL are skipped.
func LoadTargets(path string, config common.BatchConfig) ([]models.Target, error) {
	var entries []targetEntry
	var err error

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		entries, err = loadCSV(path)
	case ".yaml", ".yml":
		entries, err = loadYAML(path)
	default:
		return nil, fmt.Errorf("unsupported target file extension %q (want .csv, .yaml or .yml)", ext)
	}
	if err != nil {
		return nil, err
	}

	targets := make([]models.Target, 0, len(entries))
	for i, e := range entries {
		row := i + 1
		target, ok := buildTarget(e, row, config)
		if !ok {
			continue
		}
		targets = append(targets, target)

		if config.MaxTargets > 0 && len(targets) >= config.MaxTargets {
			break
		}
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("no usable targets in %s", path)
	}
	return targets, nil
}

func loadCSV(path string) ([]targetEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open target file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty target file: %s", path)
	}

	kbCol, urlCol := -1, -1
	for i, name := range records[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "kb", "kb_number", "number", "article":
			kbCol = i
		case "url", "link":
			urlCol = i
		}
	}
	if kbCol < 0 && urlCol < 0 {
		return nil, fmt.Errorf("target CSV needs a KB or URL column (got header %v)", records[0])
	}

	entries := make([]targetEntry, 0, len(records)-1)
	for _, rec := range records[1:] {
		var e targetEntry
		if kbCol >= 0 && kbCol < len(rec) {
			e.KB = strings.TrimSpace(rec[kbCol])
		}
		if urlCol >= 0 && urlCol < len(rec) {
			e.URL = strings.TrimSpace(rec[urlCol])
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func loadYAML(path string) ([]targetEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open target file: %w", err)
	}

	var file targetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return file.Targets, nil
}

// TargetsFromArgs builds targets from command-line arguments. An argument
// containing a slash is treated as a URL, anything else as a KB number.
func TargetsFromArgs(args []string, config common.BatchConfig) ([]models.Target, error) {
	targets := make([]models.Target, 0, len(args))
	for i, arg := range args {
		var e targetEntry
		if strings.Contains(arg, "/") {
			e.URL = arg
		} else {
			e.KB = arg
		}
		target, ok := buildTarget(e, 0, config)
		if !ok {
			return nil, fmt.Errorf("argument %d is neither a KB number nor a URL: %q", i+1, arg)
		}
		if target.ID == "ROW0" {
			target.ID = fmt.Sprintf("ARG%d", i+1)
		}
		targets = append(targets, target)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets given")
	}
	return targets, nil
}

// buildTarget turns one input row into a Target. A URL wins over a KB
// number when both are present; the KB column still names the target.
func buildTarget(e targetEntry, row int, config common.BatchConfig) (models.Target, bool) {
	sourceURL := e.URL
	if sourceURL == "" {
		kb := common.ExtractKBNumber(e.KB)
		if kb == "" {
			return models.Target{}, false
		}
		sourceURL = strings.TrimRight(config.BaseHost, "/") +
			strings.ReplaceAll(config.URLTemplate, "{KB}", kb)
	}

	directURL := sourceURL
	if !config.SkipDirect {
		directURL = common.DecodeTargetURL(sourceURL)
	}

	id := common.ExtractKBNumber(e.KB)
	if id == "" {
		id = common.ExtractKBNumber(directURL)
	}
	if id == "" {
		id = fmt.Sprintf("ROW%d", row)
	}

	return models.Target{
		ID:        id,
		SourceURL: sourceURL,
		DirectURL: directURL,
		Row:       row,
	}, true
}
