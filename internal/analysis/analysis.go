// Package analysis runs the résumé analysis pipeline: extraction, keyword
// scoring, generated feedback and the optional job description comparison.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/ai"
	"github.com/spigell/resume-scorer/internal/extract"
	"github.com/spigell/resume-scorer/internal/keywords"
	"github.com/spigell/resume-scorer/internal/logger"
)

const (
	feedbackMaxTokens   = 150
	feedbackTemperature = 0.7
	comparisonMaxTokens = 400
)

var (
	// ErrExtraction is returned when no text could be read from the résumé.
	ErrExtraction = errors.New("Failed to extract text from PDF")
	// ErrFileRequired is returned when the request has no résumé path.
	ErrFileRequired = errors.New("File path required")
)

// Limits bounds the excerpts passed to the generators, in runes.
type Limits struct {
	FeedbackResume   int
	ComparisonJD     int
	ComparisonResume int
}

// DefaultLimits returns the excerpt sizes used by the prompts.
func DefaultLimits() Limits {
	return Limits{
		FeedbackResume:   2000,
		ComparisonJD:     1000,
		ComparisonResume: 1000,
	}
}

// Deps aggregates dependencies shared across all stages.
type Deps struct {
	Extractor extract.Extractor
	Taxonomy  *keywords.Taxonomy
	Generator ai.Generator
	Logger    *zap.Logger
	Limits    Limits
}

// Request is a single analysis input.
type Request struct {
	Path           string
	JobDescription string
}

// Analyzer runs the stages for each request.
type Analyzer struct {
	deps   Deps
	stages []stage
}

// New validates the dependencies and fills in defaults. A nil taxonomy means
// the embedded one, a nil generator means generation is disabled.
func New(deps Deps) (*Analyzer, error) {
	if deps.Extractor == nil {
		return nil, errors.New("text extractor is required")
	}
	if deps.Taxonomy == nil {
		deps.Taxonomy = keywords.Default()
	}
	if deps.Generator == nil {
		deps.Generator = ai.Disabled{Reason: "no generator configured"}
	}
	if deps.Limits == (Limits{}) {
		deps.Limits = DefaultLimits()
	}
	deps.Logger = logger.WithFields(deps.Logger)

	return &Analyzer{deps: deps, stages: defaultStages()}, nil
}

// Analyze runs the pipeline for one résumé. Only extraction failures and
// cancellation abort it; generation failures are replaced by fallback text.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Path) == "" {
		return nil, ErrFileRequired
	}

	deps := a.deps
	deps.Logger = logger.WithDocument(deps.Logger, req.Path)

	doc := &document{path: req.Path, jobDescription: req.JobDescription}
	for _, st := range a.stages {
		log := deps.Logger.With(zap.String(logger.FieldStage, st.Name()))
		if !st.Enabled(doc) {
			log.Debug("analysis step skipped")
			continue
		}

		stageDeps := deps
		stageDeps.Logger = log

		start := time.Now()
		info, err := st.Apply(ctx, stageDeps, doc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", st.Name(), err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fields := append([]zap.Field{
			zap.Bool("recovered", info.Recovered),
			zap.Duration("took", time.Since(start)),
		}, info.Details...)
		log.Info("analysis step", fields...)
	}

	return Assemble(doc.sections, doc.atsScore, doc.feedback, doc.report, doc.comparison), nil
}

// ErrorMessage maps an Analyze error to the message exposed to users.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrFileRequired):
		return ErrFileRequired.Error()
	case errors.Is(err, ErrExtraction):
		return ErrExtraction.Error()
	default:
		return "Processing failed: " + err.Error()
	}
}
