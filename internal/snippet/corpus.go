// internal/snippet/corpus.go
//
// Corpus loading for the snippet store.
//
// Responsibilities:
//   - Load a corpus from a SNIPPETS_FILE path or fall back to the embedded starter set.
//   - Validate every corpus document against the embedded JSON schema.
//   - Reject duplicate snippet IDs.
//
// Corpus format:
//   {"markers": ["repetition", ...], "snippets": [{"id": "...", "text": "...", "is_bot": true}]}

package snippet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/robalobadob/spotthebot/assets"
)

const schemaURL = "schema://snippets.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Corpus is a validated set of snippets plus the tag vocabulary offered to players.
type Corpus struct {
	Markers  []string  `json:"markers"`
	Snippets []Snippet `json:"snippets"`
}

// HasMarker reports whether tag is part of the vocabulary.
// An empty vocabulary accepts every non-empty tag.
func (c *Corpus) HasMarker(tag string) bool {
	if strings.TrimSpace(tag) == "" {
		return false
	}
	if len(c.Markers) == 0 {
		return true
	}
	for _, m := range c.Markers {
		if m == tag {
			return true
		}
	}
	return false
}

// LoadFile reads and validates a corpus file.
func LoadFile(path string) (*Corpus, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}
	return Parse(raw)
}

// Default returns the embedded starter corpus.
func Default() (*Corpus, error) {
	raw, err := assets.DefaultCorpus()
	if err != nil {
		return nil, fmt.Errorf("read embedded corpus: %w", err)
	}
	return Parse(raw)
}

// Load uses path when set, otherwise the embedded corpus.
func Load(path string) (*Corpus, error) {
	if path != "" {
		return LoadFile(path)
	}
	return Default()
}

// Parse validates raw JSON against the corpus schema and decodes it.
func Parse(raw []byte) (*Corpus, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	sch, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("corpus validation failed: %w", err)
	}

	var c Corpus
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode corpus: %w", err)
	}
	seen := make(map[string]struct{}, len(c.Snippets))
	for _, s := range c.Snippets {
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("duplicate snippet id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	if len(c.Snippets) == 0 {
		return nil, errors.New("corpus: no snippets")
	}
	return &c, nil
}

// compiledSchema compiles the embedded schema once.
func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		raw, err := assets.CorpusSchema()
		if err != nil {
			schemaErr = fmt.Errorf("read schema: %w", err)
			return
		}
		var def any
		if err := json.Unmarshal(raw, &def); err != nil {
			schemaErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, def); err != nil {
			schemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}
