package keywords

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
)

//go:embed taxonomy.yaml
var defaultTaxonomy []byte

// Category is a named, ordered list of keyword phrases.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Taxonomy is an immutable set of categories with precompiled keyword matchers.
// It is safe for concurrent use.
type Taxonomy struct {
	categories []compiledCategory
	total      int
}

type compiledCategory struct {
	name     string
	keywords []compiledKeyword
}

type compiledKeyword struct {
	phrase  string
	pattern *regexp.Regexp
}

var (
	defaultOnce sync.Once
	defaultTax  *Taxonomy
)

// Default returns the taxonomy embedded into the binary. It is parsed once.
func Default() *Taxonomy {
	defaultOnce.Do(func() {
		tax, err := Parse(defaultTaxonomy)
		if err != nil {
			panic(fmt.Sprintf("embedded taxonomy is invalid: %v", err))
		}
		defaultTax = tax
	})
	return defaultTax
}

// Parse builds a taxonomy from a YAML list of categories.
func Parse(data []byte) (*Taxonomy, error) {
	var categories []Category
	if err := yaml.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("unmarshal taxonomy: %w", err)
	}
	return New(categories)
}

// New validates the categories and compiles a matcher for every keyword.
// Keywords are lower-cased; category names must be unique and keywords non-empty.
func New(categories []Category) (*Taxonomy, error) {
	seen := make(map[string]struct{}, len(categories))
	tax := &Taxonomy{categories: make([]compiledCategory, 0, len(categories))}

	for _, category := range categories {
		name := strings.TrimSpace(category.Name)
		if name == "" {
			return nil, errors.New("category name must not be empty")
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("duplicate category %q", name)
		}
		seen[name] = struct{}{}

		compiled := compiledCategory{name: name, keywords: make([]compiledKeyword, 0, len(category.Keywords))}
		for i, keyword := range category.Keywords {
			phrase := strings.ToLower(strings.TrimSpace(keyword))
			if phrase == "" {
				return nil, fmt.Errorf("category %q: keyword #%d is empty", name, i+1)
			}
			pattern, err := boundaryPattern(phrase)
			if err != nil {
				return nil, fmt.Errorf("category %q: keyword %q: %w", name, phrase, err)
			}
			compiled.keywords = append(compiled.keywords, compiledKeyword{phrase: phrase, pattern: pattern})
		}

		tax.total += len(compiled.keywords)
		tax.categories = append(tax.categories, compiled)
	}

	return tax, nil
}

// boundaryPattern wraps the literally escaped phrase in word boundaries.
// Phrases that start or end with a non-word character (c++, c#) only match
// when the neighbouring character is a word character. This is kept as is.
func boundaryPattern(phrase string) (*regexp.Regexp, error) {
	return regexp.Compile(`\b` + regexp.QuoteMeta(phrase) + `\b`)
}

// Names returns category names in taxonomy order.
func (t *Taxonomy) Names() []string {
	names := make([]string, len(t.categories))
	for i, category := range t.categories {
		names[i] = category.name
	}
	return names
}

// Keywords returns a copy of the keywords of the named category.
func (t *Taxonomy) Keywords(name string) []string {
	for _, category := range t.categories {
		if category.name != name {
			continue
		}
		phrases := make([]string, len(category.keywords))
		for i, keyword := range category.keywords {
			phrases[i] = keyword.phrase
		}
		return phrases
	}
	return nil
}

// Total is the number of keywords across all categories, duplicates included.
func (t *Taxonomy) Total() int {
	return t.total
}
