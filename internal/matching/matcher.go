// Package matching compares a résumé with a job description using the keyword taxonomy.
package matching

import (
	"math"
	"strings"

	"github.com/spigell/resume-scorer/internal/keywords"
)

// Band is the qualitative rating of a match score.
type Band string

const (
	BandHigh   Band = "High"
	BandMedium Band = "Medium"
	BandLow    Band = "Low"
)

const (
	highThreshold   = 75
	mediumThreshold = 40
)

// Report is the outcome of matching a résumé against a job description.
type Report struct {
	// JDSections holds the taxonomy keywords found in the job description.
	JDSections keywords.Sections
	// Score is the share of JD keywords present in the résumé, in [0,100], rounded to 2 decimals.
	Score float64
	Band  Band
	// Missing holds JD keywords absent from the résumé, per category, in JD match order.
	Missing keywords.Sections
}

// Summary returns the human readable sentence for the report band.
func (r Report) Summary() string {
	return r.Band.Sentence()
}

// Match scans the job description with the taxonomy and checks which of its
// keywords the résumé contains.
//
// Résumé containment is a plain substring test, unlike the word-boundary scan
// used for the job description: "java" counts as present in "javascript".
func Match(resumeText, jdText string, tax *keywords.Taxonomy) Report {
	resumeText = strings.ToLower(resumeText)
	jdSections := tax.Scan(strings.ToLower(jdText))

	missing := keywords.NewSections(jdSections.Names()...)
	total, present := 0, 0
	for _, name := range jdSections.Names() {
		for _, keyword := range jdSections.Get(name) {
			total++
			if strings.Contains(resumeText, keyword) {
				present++
				continue
			}
			missing.Add(name, keyword)
		}
	}

	score := round2(float64(present) / float64(max(1, total)) * 100)
	return Report{
		JDSections: jdSections,
		Score:      score,
		Band:       BandFor(score),
		Missing:    missing,
	}
}

// BandFor rates a match score. Lower bounds are inclusive.
func BandFor(score float64) Band {
	switch {
	case score >= highThreshold:
		return BandHigh
	case score >= mediumThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

// Phrase is the short wording of the band.
func (b Band) Phrase() string {
	switch b {
	case BandHigh:
		return "strong fit"
	case BandMedium:
		return "moderate match"
	default:
		return "does not effectively match"
	}
}

// Sentence is the summary sentence shown to the user.
func (b Band) Sentence() string {
	switch b {
	case BandHigh, BandMedium:
		return "Your resume is a " + b.Phrase() + " for this job description."
	default:
		return "Your resume " + b.Phrase() + " this job description."
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
