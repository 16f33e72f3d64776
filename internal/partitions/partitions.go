// Package partitions loads the ordered list of directory categories to crawl.
package partitions

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	urlutil "github.com/law-makers/dircrawl/internal/utils/url"
	"github.com/law-makers/dircrawl/pkg/models"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// ErrEmpty is returned when a file yields no partitions
var ErrEmpty = errors.New("partition list is empty")

// entry accepts either a bare path string or a {path, label} mapping
type entry struct {
	Path  string `json:"path" yaml:"path"`
	Label string `json:"label" yaml:"label"`
}

func (e *entry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.Path = node.Value
		return nil
	}
	type plain entry
	return node.Decode((*plain)(e))
}

func (e *entry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.Path = s
		return nil
	}
	type plain entry
	return json.Unmarshal(data, (*plain)(e))
}

// document is the YAML/JSON file layout. A top-level list is accepted too.
type document struct {
	Partitions []entry `json:"partitions" yaml:"partitions"`
}

// Load reads a partition list. The format follows the extension: .yaml/.yml,
// .json, anything else is one path per line with # comments.
func Load(path string) ([]models.Partition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read partition list: %w", err)
	}

	var entries []entry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		entries, err = decodeYAML(data)
	case ".json":
		entries, err = decodeJSON(data)
	default:
		entries = decodeText(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	parts := normalize(entries)
	if len(parts) == 0 {
		return nil, ErrEmpty
	}
	return parts, nil
}

func decodeYAML(data []byte) ([]entry, error) {
	var list []entry
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Partitions, nil
}

func decodeJSON(data []byte) ([]entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []entry
		err := json.Unmarshal(trimmed, &list)
		return list, err
	}
	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}
	return doc.Partitions, nil
}

func decodeText(data []byte) []entry {
	var out []entry
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, entry{Path: line})
		}
	}
	return out
}

// normalize trims entries, drops blanks and duplicate paths (first wins) and
// derives missing labels from the last path segment.
func normalize(entries []entry) []models.Partition {
	seen := make(map[string]bool, len(entries))
	out := make([]models.Partition, 0, len(entries))
	for _, e := range entries {
		p := strings.TrimSpace(e.Path)
		if p == "" {
			continue
		}
		if seen[p] {
			log.Warn().Str("path", p).Msg("Duplicate partition dropped")
			continue
		}
		seen[p] = true

		label := strings.TrimSpace(e.Label)
		if label == "" {
			label = urlutil.LastSegment(p)
		}
		if label == "" {
			label = p
		}
		out = append(out, models.Partition{Path: p, Label: label})
	}
	return out
}

// FromPaths builds partitions from bare paths
func FromPaths(paths []string) []models.Partition {
	entries := make([]entry, len(paths))
	for i, p := range paths {
		entries[i] = entry{Path: p}
	}
	return normalize(entries)
}
