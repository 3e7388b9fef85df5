// Package catalog loads the read-only template catalog.
package catalog

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"vowcraft/internal/domain"
	"vowcraft/internal/domain/models/invitation"
	tmpl "vowcraft/internal/domain/models/template"
)

//go:embed config/*.yaml
var configFiles embed.FS

const embeddedFile = "config/templates.yaml"

// file is the on-disk shape of a catalog.
type file struct {
	Weights   *tmpl.Weights   `yaml:"weights"`
	Templates []tmpl.Metadata `yaml:"templates"`
}

// Catalog is immutable after load and safe for concurrent use without locking.
type Catalog struct {
	weights   tmpl.Weights
	templates []tmpl.Metadata
	byID      map[string]int
}

// Load reads the catalog from path, or the embedded catalog when path is empty.
func Load(path string) (*Catalog, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = configFiles.ReadFile(embeddedFile)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read template catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template catalog: %w", err)
	}
	weights := tmpl.DefaultWeights()
	if f.Weights != nil {
		weights = *f.Weights
	}
	return New(weights, f.Templates)
}

// New builds a catalog from already decoded entries.
func New(weights tmpl.Weights, templates []tmpl.Metadata) (*Catalog, error) {
	if weights.Category < 0 || weights.Palette < 0 || weights.Typography < 0 {
		return nil, fmt.Errorf("template weights must not be negative")
	}
	c := &Catalog{
		weights:   weights,
		templates: make([]tmpl.Metadata, 0, len(templates)),
		byID:      make(map[string]int, len(templates)),
	}
	for i, t := range templates {
		if t.ID == "" {
			return nil, fmt.Errorf("template %d: id is required", i)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("template %s: duplicate id", t.ID)
		}
		for _, bt := range append(append([]invitation.BlockType(nil), t.Required...), t.Compatible...) {
			if !invitation.IsKnownBlockType(bt) {
				return nil, fmt.Errorf("template %s: unknown block type %q", t.ID, bt)
			}
		}
		c.byID[t.ID] = len(c.templates)
		c.templates = append(c.templates, t)
	}
	return c, nil
}

// All returns the entries in catalog order.
func (c *Catalog) All() []tmpl.Metadata {
	out := make([]tmpl.Metadata, len(c.templates))
	copy(out, c.templates)
	return out
}

// Get returns one entry by id.
func (c *Catalog) Get(id string) (tmpl.Metadata, error) {
	i, ok := c.byID[id]
	if !ok {
		return tmpl.Metadata{}, domain.NewNotFound("template", id)
	}
	return c.templates[i], nil
}

// Weights returns the scoring configuration.
func (c *Catalog) Weights() tmpl.Weights {
	return c.weights
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.templates)
}
