package layout

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"finsheet/internal/sheets"
)

var (
	ErrDuplicateColor    = errors.New("two categories share a color")
	ErrReservedColor     = errors.New("category uses the default color")
	ErrTooManyCategories = errors.New("more categories than category slots")
	ErrEmptyName         = errors.New("category with empty name")
)

// Style is how a category is rendered and which side of the ledger it is on.
type Style struct {
	Color  sheets.Color
	Income bool
}

// Rule maps categories starting with Name (case-insensitive) to a style.
type Rule struct {
	Name   string `yaml:"name"`
	Color  string `yaml:"color"`
	Income bool   `yaml:"income"`
}

type entry struct {
	name  string
	match func(string) bool
	style Style
}

// Registry resolves category names to styles and colors back to categories.
// It is immutable after construction.
type Registry struct {
	entries []entry
	byColor map[sheets.Color]string
	def     Style
}

// DefaultRules is the built-in category table.
var DefaultRules = []Rule{
	{Name: "food", Color: "#f4cccc"},
	{Name: "transport", Color: "#fce5cd"},
	{Name: "housing", Color: "#fff2cc"},
	{Name: "health", Color: "#d9ead3"},
	{Name: "entertainment", Color: "#d0e0e3"},
	{Name: "shopping", Color: "#cfe2f3"},
	{Name: "travel", Color: "#d9d2e9"},
	{Name: "education", Color: "#ead1dc"},
	{Name: "other", Color: "#e6b8af"},
	{Name: "salary", Color: "#b6d7a8", Income: true},
	{Name: "freelance", Color: "#a2c4c9", Income: true},
	{Name: "gifts", Color: "#b4a7d6", Income: true},
	{Name: "investments", Color: "#ffe599", Income: true},
	{Name: "cashback", Color: "#9fc5e8", Income: true},
}

// NewRegistry validates rules and builds a registry. Order matters: the first
// matching prefix wins. Unmatched categories get the white expense default.
func NewRegistry(rules []Rule) (*Registry, error) {
	r := &Registry{
		byColor: make(map[sheets.Color]string, len(rules)),
		def:     Style{Color: sheets.White},
	}
	var spend, income int
	for _, rule := range rules {
		name := strings.ToLower(strings.TrimSpace(rule.Name))
		if name == "" {
			return nil, ErrEmptyName
		}
		color, err := sheets.ParseColor(rule.Color)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", name, err)
		}
		if color == r.def.Color {
			return nil, fmt.Errorf("%w: %q", ErrReservedColor, name)
		}
		if other, ok := r.byColor[color]; ok {
			return nil, fmt.Errorf("%w: %q and %q use %s", ErrDuplicateColor, other, name, color)
		}
		r.byColor[color] = name
		if rule.Income {
			income++
		} else {
			spend++
		}
		prefix := name
		r.entries = append(r.entries, entry{
			name:  name,
			match: func(category string) bool { return strings.HasPrefix(category, prefix) },
			style: Style{Color: color, Income: rule.Income},
		})
	}
	if spend > CategorySlots || income > CategorySlots {
		return nil, fmt.Errorf("%w: %d spend, %d income, %d slots", ErrTooManyCategories, spend, income, CategorySlots)
	}
	return r, nil
}

// Default returns the registry for DefaultRules.
func Default() *Registry {
	r, err := NewRegistry(DefaultRules)
	if err != nil {
		panic(err)
	}
	return r
}

type registryFile struct {
	Categories []Rule `yaml:"categories"`
}

// LoadFile reads a YAML category table:
//
//	categories:
//	  - name: food
//	    color: "#f4cccc"
//	  - name: salary
//	    color: "#b6d7a8"
//	    income: true
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories file: %w", err)
	}
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse categories file: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("categories file %s: no categories", path)
	}
	return NewRegistry(f.Categories)
}

// StyleOf returns the style of the first rule whose prefix matches category.
func (r *Registry) StyleOf(category string) Style {
	c := strings.ToLower(strings.TrimSpace(category))
	for _, e := range r.entries {
		if e.match(c) {
			return e.style
		}
	}
	return r.def
}

// CategoryOf maps a background color back to its category.
func (r *Registry) CategoryOf(c sheets.Color) (string, bool) {
	name, ok := r.byColor[c]
	return name, ok
}

// DefaultStyle is used for categories matching no rule.
func (r *Registry) DefaultStyle() Style {
	return r.def
}

// IsExplicit reports whether a read-back background counts as set. Missing
// backgrounds and the default color do not.
func (r *Registry) IsExplicit(bg *sheets.Color) bool {
	return bg != nil && *bg != r.def.Color
}

// Named is a category name with its style, in table order.
type Named struct {
	Name  string
	Style Style
}

// Spend returns expense categories in table order.
func (r *Registry) Spend() []Named {
	return r.side(false)
}

// Income returns income categories in table order.
func (r *Registry) Income() []Named {
	return r.side(true)
}

func (r *Registry) side(income bool) []Named {
	var out []Named
	for _, e := range r.entries {
		if e.style.Income == income {
			out = append(out, Named{Name: e.name, Style: e.style})
		}
	}
	return out
}
