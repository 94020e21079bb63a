package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spigell/resume-scorer/internal/keywords"
	"github.com/spigell/resume-scorer/internal/matching"
)

// Result is the outcome of a single résumé analysis.
type Result struct {
	Sections   keywords.Sections `json:"sections"`
	ATSScore   int               `json:"ats_score"`
	AIFeedback string            `json:"ai_feedback"`

	// Fields below are set only when a job description was supplied.
	MatchScore        *float64           `json:"match_score,omitempty"`
	SummarySentence   string             `json:"summary_sentence,omitempty"`
	MissingKeywords   *keywords.Sections `json:"missing_keywords,omitempty"`
	ComparisonSummary string             `json:"comparison_summary,omitempty"`

	Band matching.Band `json:"-"`
}

// ErrorResponse is the JSON document printed or served instead of a Result.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Assemble merges the scoring outputs into a Result. The JD part is attached
// only when report is not nil.
func Assemble(sections keywords.Sections, atsScore int, feedback string, report *matching.Report, comparison string) *Result {
	result := &Result{
		Sections:   sections,
		ATSScore:   atsScore,
		AIFeedback: feedback,
	}
	if report == nil {
		return result
	}

	score := report.Score
	missing := report.Missing
	result.MatchScore = &score
	result.Band = report.Band
	result.SummarySentence = report.Summary()
	result.MissingKeywords = &missing
	result.ComparisonSummary = comparison
	return result
}

// HasMatch reports whether the result carries a job description comparison.
func (r *Result) HasMatch() bool {
	return r.MatchScore != nil
}

// ReportBySection renders a plain text report with one block per category.
func (r *Result) ReportBySection() string {
	var b strings.Builder

	fmt.Fprintf(&b, "ATS score: %d\n", r.ATSScore)
	if r.HasMatch() {
		fmt.Fprintf(&b, "Match score: %.2f (%s)\n", *r.MatchScore, r.Band)
		fmt.Fprintln(&b, r.SummarySentence)
	}

	for _, name := range r.Sections.Names() {
		found := r.Sections.Get(name)
		fmt.Fprintf(&b, "\n%s (%d)\n", name, len(found))
		if len(found) > 0 {
			fmt.Fprintf(&b, "  found:   %s\n", strings.Join(found, ", "))
		}
		if r.MissingKeywords != nil {
			if missing := r.MissingKeywords.Get(name); len(missing) > 0 {
				fmt.Fprintf(&b, "  missing: %s\n", strings.Join(missing, ", "))
			}
		}
	}

	fmt.Fprintf(&b, "\nFeedback:\n%s\n", r.AIFeedback)
	if r.HasMatch() {
		fmt.Fprintf(&b, "\nComparison:\n%s\n", r.ComparisonSummary)
	}
	return b.String()
}

// DumpToTmpFile writes the indented JSON result into a new temporary file
// and returns its name.
func (r *Result) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "resume_analysis_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	return file.Name(), nil
}
