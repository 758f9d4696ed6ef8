package menu

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// CatalogEntry represents a single orderable item and its unit price
type CatalogEntry struct {
	Name      string  `yaml:"name" json:"name"`
	UnitPrice float64 `yaml:"price" json:"price"`
}

// Catalog is the immutable name -> price reference table for orderable items.
// It is built once at startup and shared read-only across all sessions.
type Catalog struct {
	prices map[string]float64
	names  []string
}

// NewCatalog builds a catalog from the given entries. Names are normalized to
// lowercase. Construction fails on a duplicate name or a negative price; the
// process cannot proceed without a valid catalog.
func NewCatalog(entries []CatalogEntry) (*Catalog, error) {
	prices := make(map[string]float64, len(entries))
	names := make([]string, 0, len(entries))

	for _, e := range entries {
		name := strings.ToLower(strings.TrimSpace(e.Name))
		if name == "" {
			return nil, fmt.Errorf("catalog entry has empty name")
		}
		if e.UnitPrice < 0 {
			return nil, fmt.Errorf("catalog entry %q has negative price %v", name, e.UnitPrice)
		}
		if _, exists := prices[name]; exists {
			return nil, fmt.Errorf("duplicate catalog entry %q", name)
		}
		prices[name] = e.UnitPrice
		names = append(names, name)
	}

	sort.Strings(names)
	return &Catalog{prices: prices, names: names}, nil
}

// LoadCatalog reads catalog entries from a YAML file and constructs the catalog.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file struct {
		Items []CatalogEntry `yaml:"items"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if len(file.Items) == 0 {
		return nil, fmt.Errorf("catalog file %s contains no items", path)
	}

	return NewCatalog(file.Items)
}

// Lookup returns the unit price for an item name, or false if unknown.
func (c *Catalog) Lookup(name string) (float64, bool) {
	price, ok := c.prices[strings.ToLower(name)]
	return price, ok
}

// Names returns all known item names in sorted order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of items in the catalog.
func (c *Catalog) Len() int {
	return len(c.prices)
}
