package keywords

import "strings"

const (
	// ScoreFloor is the ATS score of a document without any keyword.
	ScoreFloor = 20
	// ScoreCeiling is the maximum ATS score.
	ScoreCeiling = 100

	scoreSpan = ScoreCeiling - ScoreFloor
)

// Scan returns the keywords found in text for every category, in taxonomy order.
// Matching is case-insensitive and uses word boundaries around each keyword.
func (t *Taxonomy) Scan(text string) Sections {
	text = strings.ToLower(text)

	sections := NewSections(t.Names()...)
	for _, category := range t.categories {
		for _, keyword := range category.keywords {
			if keyword.pattern.MatchString(text) {
				sections.Add(category.name, keyword.phrase)
			}
		}
	}
	return sections
}

// Score scans text and computes the ATS score of the result.
func (t *Taxonomy) Score(text string) (Sections, int) {
	sections := t.Scan(text)
	return sections, ATSScore(sections.Count(), t.Total())
}

// ATSScore maps the share of found keywords onto [ScoreFloor, ScoreCeiling].
// The fractional part is dropped. An empty taxonomy counts as one keyword.
func ATSScore(found, total int) int {
	if total < 1 {
		total = 1
	}
	score := int(float64(found)/float64(total)*scoreSpan + ScoreFloor)
	return min(ScoreCeiling, score)
}
