package analysis

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/ai"
	"github.com/spigell/resume-scorer/internal/keywords"
	"github.com/spigell/resume-scorer/internal/matching"
)

const (
	// FeedbackFailed replaces the feedback when generation fails.
	FeedbackFailed = "Could not generate feedback"
	// ComparisonFailed replaces the comparison summary when generation fails.
	ComparisonFailed = "Could not generate comparison"
)

// stage is a single step of the analysis pipeline.
type stage interface {
	Name() string
	// Enabled reports whether the stage applies to the document.
	Enabled(doc *document) bool
	// Apply mutates the document. A returned error aborts the analysis.
	Apply(ctx context.Context, deps Deps, doc *document) (step, error)
}

// step describes the result of executing a stage.
type step struct {
	// Recovered is set when the stage failed and a fallback value was used.
	Recovered bool
	Details   []zap.Field
}

// document accumulates intermediate values while stages run.
type document struct {
	path           string
	jobDescription string

	text       string
	sections   keywords.Sections
	atsScore   int
	feedback   string
	report     *matching.Report
	comparison string
}

func (d *document) hasJobDescription() bool {
	return strings.TrimSpace(d.jobDescription) != ""
}

// defaultStages returns the pipeline in execution order.
func defaultStages() []stage {
	return []stage{
		&extractStage{},
		&scoreStage{},
		&feedbackStage{},
		&matchStage{},
		&comparisonStage{},
	}
}

type extractStage struct{}

func (s *extractStage) Name() string { return "extract" }

func (s *extractStage) Enabled(*document) bool { return true }

func (s *extractStage) Apply(ctx context.Context, deps Deps, doc *document) (step, error) {
	text, err := deps.Extractor.Extract(ctx, doc.path)
	if err != nil {
		return step{}, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	if text == "" {
		return step{}, ErrExtraction
	}

	doc.text = strings.ToLower(text)
	return step{Details: []zap.Field{zap.Int("characters", len([]rune(doc.text)))}}, nil
}

type scoreStage struct{}

func (s *scoreStage) Name() string { return "score" }

func (s *scoreStage) Enabled(*document) bool { return true }

func (s *scoreStage) Apply(_ context.Context, deps Deps, doc *document) (step, error) {
	doc.sections, doc.atsScore = deps.Taxonomy.Score(doc.text)
	return step{Details: []zap.Field{
		zap.Int("keywords_found", doc.sections.Count()),
		zap.Int("ats_score", doc.atsScore),
	}}, nil
}

type feedbackStage struct{}

func (s *feedbackStage) Name() string { return "feedback" }

func (s *feedbackStage) Enabled(*document) bool { return true }

func (s *feedbackStage) Apply(ctx context.Context, deps Deps, doc *document) (step, error) {
	text, err := deps.Generator.Generate(ctx, ai.Request{
		Prompt:          feedbackPrompt(doc.text, deps.Limits.FeedbackResume),
		MaxOutputTokens: feedbackMaxTokens,
		Temperature:     ai.Temperature(feedbackTemperature),
	})
	if err == nil {
		text = cleanFeedback(text)
		if text == "" {
			err = ai.ErrEmptyResponse
		}
	}
	if err != nil {
		deps.Logger.Warn("error generating feedback", zap.Error(err))
		doc.feedback = FeedbackFailed
		return step{Recovered: true}, nil
	}

	doc.feedback = text
	return step{}, nil
}

type matchStage struct{}

func (s *matchStage) Name() string { return "match" }

func (s *matchStage) Enabled(doc *document) bool { return doc.hasJobDescription() }

func (s *matchStage) Apply(_ context.Context, deps Deps, doc *document) (step, error) {
	report := matching.Match(doc.text, doc.jobDescription, deps.Taxonomy)
	doc.report = &report
	return step{Details: []zap.Field{
		zap.Float64("match_score", report.Score),
		zap.String("band", string(report.Band)),
		zap.Int("missing_keywords", report.Missing.Count()),
	}}, nil
}

type comparisonStage struct{}

func (s *comparisonStage) Name() string { return "comparison" }

func (s *comparisonStage) Enabled(doc *document) bool { return doc.hasJobDescription() }

func (s *comparisonStage) Apply(ctx context.Context, deps Deps, doc *document) (step, error) {
	prompt := comparisonPrompt(
		strings.ToLower(doc.jobDescription), doc.text,
		deps.Limits.ComparisonJD, deps.Limits.ComparisonResume,
	)

	text, err := deps.Generator.Generate(ctx, ai.Request{
		Prompt:          prompt,
		MaxOutputTokens: comparisonMaxTokens,
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = ai.ErrEmptyResponse
	}
	if err != nil {
		deps.Logger.Warn("error generating comparison", zap.Error(err))
		doc.comparison = ComparisonFailed
		return step{Recovered: true}, nil
	}

	doc.comparison = strings.TrimSpace(text)
	return step{}, nil
}
