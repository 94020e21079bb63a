package keywords

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Sections maps category names to keywords while keeping the category order.
// Every category passed to NewSections is present, possibly with no keywords.
type Sections struct {
	order []string
	found map[string][]string
}

// NewSections creates empty sections for the given categories.
func NewSections(names ...string) Sections {
	s := Sections{
		order: make([]string, 0, len(names)),
		found: make(map[string][]string, len(names)),
	}
	for _, name := range names {
		s.ensure(name)
	}
	return s
}

func (s *Sections) ensure(name string) {
	if s.found == nil {
		s.found = make(map[string][]string)
	}
	if _, ok := s.found[name]; ok {
		return
	}
	s.order = append(s.order, name)
	s.found[name] = []string{}
}

// Add appends a keyword to the category, creating the category when missing.
func (s *Sections) Add(name, keyword string) {
	s.ensure(name)
	s.found[name] = append(s.found[name], keyword)
}

// Names returns the category names in order.
func (s Sections) Names() []string {
	return append([]string(nil), s.order...)
}

// Get returns the keywords of the category.
func (s Sections) Get(name string) []string {
	return s.found[name]
}

// Count is the total number of keywords across all categories.
func (s Sections) Count() int {
	count := 0
	for _, keywords := range s.found {
		count += len(keywords)
	}
	return count
}

// Map returns a plain map copy, losing the order.
func (s Sections) Map() map[string][]string {
	out := make(map[string][]string, len(s.found))
	for name, keywords := range s.found {
		out[name] = append([]string{}, keywords...)
	}
	return out
}

// MarshalJSON writes a JSON object whose keys follow the category order.
func (s Sections) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(s.found[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object and keeps the key order of the document.
func (s *Sections) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("sections: expected object, got %v", tok)
	}

	*s = NewSections()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("sections: unexpected key %v", tok)
		}

		var keywords []string
		if err := dec.Decode(&keywords); err != nil {
			return fmt.Errorf("sections: category %q: %w", name, err)
		}

		s.ensure(name)
		s.found[name] = append(s.found[name], keywords...)
	}

	_, err = dec.Token()
	return err
}
