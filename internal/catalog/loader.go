package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// IndexFile is the top-level structure of a video index YAML file.
//
// Example:
//
//	library:
//	  name: "e-PHIT video index"
//	videos:
//	  - name: "5 min boxing - round 1"
//	    level: Beginner
//	    minutes: 5
//	    category: "Boxing; Cardio"
type IndexFile struct {
	Library LibraryMeta `yaml:"library"`
	Videos  []Video     `yaml:"videos"`
}

// LibraryMeta holds top-level metadata for a video index.
type LibraryMeta struct {
	// Name is the index's display name.
	Name string `yaml:"name"`

	// Source describes where the index came from (e.g. the spreadsheet it
	// was transcribed from).
	Source string `yaml:"source"`
}

// indexYAML is the video index shipped with the binary, transcribed from
// the e-PHIT video spreadsheet.
//
//go:embed index.yaml
var indexYAML string

// Default returns the catalog built from the embedded index.
func Default() (*Catalog, error) {
	c, err := LoadIndexFromReader(strings.NewReader(indexYAML))
	if err != nil {
		return nil, fmt.Errorf("catalog: embedded index: %w", err)
	}
	return c, nil
}

// LoadIndexFile reads, parses, and validates a video index YAML file from
// disk, returning the constructed catalog.
func LoadIndexFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open index file %q: %w", path, err)
	}
	defer f.Close()

	c, err := LoadIndexFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse index file %q: %w", path, err)
	}
	return c, nil
}

// LoadIndexFromReader parses index YAML from an [io.Reader] and builds the
// catalog. The reader is consumed entirely; the caller closes it.
func LoadIndexFromReader(r io.Reader) (*Catalog, error) {
	var idx IndexFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&idx); err != nil {
		return nil, fmt.Errorf("catalog: decode index yaml: %w", err)
	}
	return New(idx.Videos)
}
