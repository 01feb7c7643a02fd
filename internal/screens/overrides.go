package screens

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Override adjusts the list defaults of one screen. Zero values keep the
// built-in setting.
type Override struct {
	Title           string        `yaml:"title"`
	PageSizes       []int         `yaml:"page_sizes"`
	DefaultPageSize int           `yaml:"default_page_size"`
	DefaultSort     string        `yaml:"default_sort"`
	Debounce        time.Duration `yaml:"debounce"`
}

type overrideFile struct {
	Screens map[string]Override `yaml:"screens"`
}

// ParseOverrides decodes an overrides document.
func ParseOverrides(data []byte) (map[string]Override, error) {
	var doc overrideFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("screens: parse overrides: %w", err)
	}
	return doc.Screens, nil
}

// LoadOverrides reads path and applies it to defs. An empty path or a
// missing file leaves defs untouched.
func LoadOverrides(path string, defs []Definition) ([]Definition, error) {
	if path == "" {
		return defs, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return defs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("screens: read overrides: %w", err)
	}
	overrides, err := ParseOverrides(data)
	if err != nil {
		return nil, err
	}
	return Apply(defs, overrides)
}

// Apply returns defs with overrides applied. Unknown screen names are an
// error so typos do not go unnoticed.
func Apply(defs []Definition, overrides map[string]Override) ([]Definition, error) {
	out := make([]Definition, len(defs))
	copy(out, defs)
	index := make(map[string]int, len(out))
	for i, def := range out {
		index[def.Name] = i
	}
	for name, o := range overrides {
		i, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("screens: override for unknown screen %q", name)
		}
		def := &out[i]
		if o.Title != "" {
			def.Title = o.Title
		}
		if len(o.PageSizes) > 0 {
			def.PageSizes = append([]int(nil), o.PageSizes...)
		}
		if o.DefaultPageSize > 0 {
			def.DefaultPageSize = o.DefaultPageSize
		}
		if o.DefaultSort != "" {
			def.DefaultSort = o.DefaultSort
		}
		if o.Debounce > 0 {
			def.Debounce = o.Debounce
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("screens: override %s: %w", name, err)
		}
	}
	return out, nil
}

// Load builds the catalog from the built-in screens and the overrides file.
func Load(path string) (*Catalog, error) {
	defs, err := LoadOverrides(path, Builtin())
	if err != nil {
		return nil, err
	}
	return NewCatalog(defs...)
}
