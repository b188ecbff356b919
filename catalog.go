package main

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultCeiling is substituted when a task label has no catalog entry.
// A missing entry is a recoverable condition, not an error.
const DefaultCeiling = 100

type CatalogEntry struct {
	Label   string  `yaml:"label"`
	Ceiling float64 `yaml:"ceiling"`
}

// Catalog is the immutable task registry mapping a task label to its
// normalization ceiling. Built once at startup, never mutated.
type Catalog struct {
	byLabel map[string]CatalogEntry
	order   []string
}

// defaultCatalogEntries is the facility's built-in task list. A catalog
// file (catalog_path) replaces it entirely when configured.
var defaultCatalogEntries = []CatalogEntry{
	{Label: "Carton assembly", Ceiling: 140},
	{Label: "Picking (standard)", Ceiling: 300},
	{Label: "Boxing (standard)", Ceiling: 120},
	{Label: "Picking (compact parcel)", Ceiling: 400},
	{Label: "Boxing (compact parcel)", Ceiling: 300},
	{Label: "Detergent set assembly", Ceiling: 50},
}

func NewCatalog(entries []CatalogEntry) (*Catalog, error) {
	c := &Catalog{byLabel: make(map[string]CatalogEntry, len(entries))}
	for _, e := range entries {
		if e.Label == "" {
			return nil, fmt.Errorf("catalog entry with empty label")
		}
		if e.Ceiling <= 0 {
			return nil, fmt.Errorf("catalog entry %q: ceiling %v must be > 0", e.Label, e.Ceiling)
		}
		if _, exists := c.byLabel[e.Label]; exists {
			return nil, fmt.Errorf("duplicate catalog entry %q", e.Label)
		}
		c.byLabel[e.Label] = e
		c.order = append(c.order, e.Label)
	}
	return c, nil
}

// LoadCatalog builds the catalog from a YAML file, or from the built-in
// task list when no path is configured.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return NewCatalog(defaultCatalogEntries)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var entries []CatalogEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog %s contains no entries", path)
	}
	return NewCatalog(entries)
}

func (c *Catalog) Lookup(label string) (CatalogEntry, bool) {
	e, ok := c.byLabel[label]
	return e, ok
}

// ResolveCeiling returns the catalog ceiling for a label, or
// DefaultCeiling when the label is not registered. Never fails.
func (c *Catalog) ResolveCeiling(label string) float64 {
	if e, ok := c.byLabel[label]; ok {
		return e.Ceiling
	}
	log.Printf("catalog miss label=%q using default ceiling %d", label, DefaultCeiling)
	return DefaultCeiling
}

// Entries returns the catalog in load order, for template creation.
func (c *Catalog) Entries() []CatalogEntry {
	out := make([]CatalogEntry, 0, len(c.order))
	for _, label := range c.order {
		out = append(out, c.byLabel[label])
	}
	return out
}
