package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Record is one catalog object. Line is the 1-based file line for .jsonl and
// the 1-based array position for .json.
type Record struct {
	Line int
	Raw  map[string]any
}

const maxLineBytes = 8 << 20

// ReadRecords loads a .json array or a .jsonl file. Blank .jsonl lines are skipped.
func ReadRecords(path string) ([]Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl":
		return readJSONL(path)
	case ".json":
		return readJSONArray(path)
	default:
		return nil, fmt.Errorf("unsupported input format %s: expected .json or .jsonl", path)
	}
}

func readJSONL(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64<<10), maxLineBytes)
	for line := 1; sc.Scan(); line++ {
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var raw any
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil, fmt.Errorf("invalid JSON on line %d in %s: %w", line, path, err)
		}
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("line %d in %s must be a JSON object", line, path)
		}
		out = append(out, Record{Line: line, Raw: obj})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}

func readJSONArray(path string) ([]Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []any
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("%s must be a JSON array of objects: %w", path, err)
	}
	out := make([]Record, 0, len(items))
	for i, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("item %d in %s must be a JSON object", i+1, path)
		}
		out = append(out, Record{Line: i + 1, Raw: obj})
	}
	return out, nil
}
