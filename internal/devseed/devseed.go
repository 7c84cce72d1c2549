// Package devseed loads the YAML files used to pre-populate the in-memory
// ProvStore mock and the sandbox server.
package devseed

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Seed is the top level of a seed file.
type Seed struct {
	Documents []Document `yaml:"documents"`
}

// Document describes one stored document.
type Document struct {
	Name    string   `yaml:"name"`
	Owner   string   `yaml:"owner"`
	Public  bool     `yaml:"public"`
	Views   int      `yaml:"views"`
	Format  string   `yaml:"format"`
	Content string   `yaml:"content"`
	Bundles []Bundle `yaml:"bundles"`
}

// Bundle describes one bundle of a seeded document.
type Bundle struct {
	Identifier string `yaml:"identifier"`
	Content    string `yaml:"content"`
}

// Load reads and validates a seed file.
func Load(path string) (*Seed, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("devseed: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates seed YAML.
func Parse(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("devseed: parse: %w", err)
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

// Validate reports every problem in the seed at once.
func (s *Seed) Validate() error {
	var result *multierror.Error
	for i, doc := range s.Documents {
		if strings.TrimSpace(doc.Name) == "" {
			result = multierror.Append(result, fmt.Errorf("documents[%d]: name is required", i))
		}
		if strings.TrimSpace(doc.Content) == "" {
			result = multierror.Append(result, fmt.Errorf("documents[%d]: content is required", i))
		}
		if doc.Views < 0 {
			result = multierror.Append(result, fmt.Errorf("documents[%d]: views must not be negative", i))
		}
		seen := make(map[string]bool, len(doc.Bundles))
		for j, b := range doc.Bundles {
			switch {
			case strings.TrimSpace(b.Identifier) == "":
				result = multierror.Append(result, fmt.Errorf("documents[%d].bundles[%d]: identifier is required", i, j))
			case seen[b.Identifier]:
				result = multierror.Append(result, fmt.Errorf("documents[%d].bundles[%d]: duplicate identifier %q", i, j, b.Identifier))
			}
			seen[b.Identifier] = true
		}
	}
	if result != nil {
		return fmt.Errorf("devseed: invalid seed: %w", result.ErrorOrNil())
	}
	return nil
}
