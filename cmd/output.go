package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func checkFormat(f string) error {
	switch f {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown format %q: want table, json or yaml", f)
}

// writeStructured encodes v as JSON or YAML. A non-empty query is a JSONPath
// expression (e.g. "$.details[?(@.cpi < 0.9)].project") evaluated against
// the JSON form of v; its result is what gets written.
func writeStructured(w io.Writer, format string, v any, query string) error {
	if query != "" {
		var err error
		if v, err = applyQuery(v, query); err != nil {
			return err
		}
	}

	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	}
}

// applyQuery round-trips v through JSON so the query sees the same field
// names the JSON output uses.
func applyQuery(v any, query string) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding for query: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding for query: %w", err)
	}
	if !strings.HasPrefix(query, "$") {
		query = "$." + strings.TrimPrefix(query, ".")
	}
	res, err := jsonpath.Get(query, doc)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", query, err)
	}
	return res, nil
}

// emit writes v to stdout in the chosen structured format.
func emit(format string, v any, query string) error {
	return writeStructured(os.Stdout, format, v, query)
}
