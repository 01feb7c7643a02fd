// Package listctl implements the hierarchical filtered and paginated list
// controller shared by every registry list screen.
package listctl

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// AllValue is the filter selection that matches every record of a level.
const AllValue = "all"

// DefaultDebounce is the quiet period before a typed search is committed.
const DefaultDebounce = 400 * time.Millisecond

// OptionsPageSize caps option-list requests that populate filter dropdowns.
const OptionsPageSize = 100

// Level describes one rank of the administrative hierarchy used as a filter.
type Level struct {
	Key       string `yaml:"key"`
	ParentKey string `yaml:"parent_key"`
	// Param is the list endpoint parameter carrying the selected id.
	Param string `yaml:"param"`
	// Resource is the endpoint listing the options of this level.
	Resource string `yaml:"resource"`
	Label    string `yaml:"label"`
}

// Screen is the static descriptor of a list screen.
type Screen struct {
	Name            string
	Title           string
	Resource        string
	Levels          []Level
	SortFields      []string
	DefaultSort     string
	PageSizes       []int
	DefaultPageSize int
	Debounce        time.Duration
}

var (
	// ErrInvalidScreen reports a screen descriptor that cannot drive a controller.
	ErrInvalidScreen = errors.New("listctl: invalid screen")
)

// Validate checks that the screen descriptor is internally consistent.
func (s Screen) Validate() error {
	if s.Name == "" || s.Resource == "" {
		return fmt.Errorf("%w: name and resource are required", ErrInvalidScreen)
	}
	if s.DefaultSort == "" || !slices.Contains(s.SortFields, s.DefaultSort) {
		return fmt.Errorf("%w: %s: default sort %q is not sortable", ErrInvalidScreen, s.Name, s.DefaultSort)
	}
	if s.DefaultPageSize <= 0 || !slices.Contains(s.PageSizes, s.DefaultPageSize) {
		return fmt.Errorf("%w: %s: default page size %d not allowed", ErrInvalidScreen, s.Name, s.DefaultPageSize)
	}
	seen := make(map[string]bool, len(s.Levels))
	for i, level := range s.Levels {
		if level.Key == "" || level.Param == "" || level.Resource == "" {
			return fmt.Errorf("%w: %s: level %d is incomplete", ErrInvalidScreen, s.Name, i)
		}
		if seen[level.Key] || reservedKey(level.Key) {
			return fmt.Errorf("%w: %s: level key %q is not unique", ErrInvalidScreen, s.Name, level.Key)
		}
		seen[level.Key] = true
		want := ""
		if i > 0 {
			want = s.Levels[i-1].Key
		}
		if level.ParentKey != want {
			return fmt.Errorf("%w: %s: level %q must have parent %q", ErrInvalidScreen, s.Name, level.Key, want)
		}
	}
	return nil
}

// DebounceOrDefault returns the configured quiet period.
func (s Screen) DebounceOrDefault() time.Duration {
	if s.Debounce <= 0 {
		return DefaultDebounce
	}
	return s.Debounce
}

// LevelIndex returns the position of the level with key, or -1.
func (s Screen) LevelIndex(key string) int {
	for i, level := range s.Levels {
		if level.Key == key {
			return i
		}
	}
	return -1
}

// DefaultQuery returns the query a screen starts from without external state.
func (s Screen) DefaultQuery() Query {
	filters := make([]string, len(s.Levels))
	for i := range filters {
		filters[i] = AllValue
	}
	return Query{
		Filters:       filters,
		SortField:     s.DefaultSort,
		SortDirection: Ascending,
		Page:          1,
		PageSize:      s.DefaultPageSize,
	}
}

func reservedKey(key string) bool {
	switch key {
	case paramSearch, paramSort, paramDir, paramPage, paramSize:
		return true
	}
	return false
}
