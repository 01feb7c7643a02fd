// Package screens declares the list screens of the registry console.
package screens

import (
	"fmt"
	"slices"

	"github.com/civic-registry/console/internal/listctl"
)

// Format selects how a column value is rendered.
type Format string

const (
	FormatText   Format = "text"
	FormatNumber Format = "number"
	FormatBool   Format = "bool"
	FormatRating Format = "rating"
)

// Column is one table column. Sort names the sort field when sortable.
type Column struct {
	Key    string
	Label  string
	Sort   string
	Format Format
}

// FieldKind is the input type of a form field.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindTextarea FieldKind = "textarea"
	KindInteger  FieldKind = "integer"
	KindDecimal  FieldKind = "decimal"
	KindBool     FieldKind = "bool"
	KindChoice   FieldKind = "choice"
	// KindRef selects a record of another resource.
	KindRef FieldKind = "ref"
)

// Field is one input of the create and edit forms.
type Field struct {
	Name  string
	Label string
	Kind  FieldKind
	// Rules is a validator tag applied to the submitted value.
	Rules    string
	Choices  []string
	Resource string
}

// Definition is a list screen plus its table and form layout.
type Definition struct {
	listctl.Screen
	Singular string
	Columns  []Column
	Fields   []Field
}

// reservedNames are top-level paths served by the console itself.
var reservedNames = []string{"api", "audit", "healthz", "jobs", "metrics", "new", "readyz", "static"}

// Catalog is the ordered set of screens served by the console.
type Catalog struct {
	order []string
	defs  map[string]*Definition
}

// NewCatalog validates defs and indexes them by name.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]*Definition, len(defs))}
	for i := range defs {
		def := defs[i]
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if slices.Contains(reservedNames, def.Name) {
			return nil, fmt.Errorf("screens: screen name %q is reserved", def.Name)
		}
		if _, dup := c.defs[def.Name]; dup {
			return nil, fmt.Errorf("screens: duplicate screen %q", def.Name)
		}
		for _, col := range def.Columns {
			if col.Sort != "" && !slices.Contains(def.SortFields, col.Sort) {
				return nil, fmt.Errorf("screens: %s: column %q sorts by unknown field %q", def.Name, col.Key, col.Sort)
			}
		}
		c.defs[def.Name] = &def
		c.order = append(c.order, def.Name)
	}
	return c, nil
}

// Get returns the screen called name.
func (c *Catalog) Get(name string) (*Definition, bool) {
	def, ok := c.defs[name]
	return def, ok
}

// All returns the screens in declaration order.
func (c *Catalog) All() []*Definition {
	out := make([]*Definition, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.defs[name])
	}
	return out
}

// Names returns the screen names in declaration order.
func (c *Catalog) Names() []string {
	return slices.Clone(c.order)
}

// OptionQueries lists the option lists a cold console needs first: the root
// level of every hierarchical screen.
func (c *Catalog) OptionQueries() []listctl.OptionQuery {
	var out []listctl.OptionQuery
	seen := map[string]bool{}
	for _, def := range c.All() {
		if len(def.Levels) == 0 {
			continue
		}
		q := listctl.OptionQuery{Resource: def.Levels[0].Resource}
		if !seen[q.Key()] {
			seen[q.Key()] = true
			out = append(out, q)
		}
	}
	return out
}
