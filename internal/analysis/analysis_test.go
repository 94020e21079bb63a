package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/resume-scorer/internal/ai"
	"github.com/spigell/resume-scorer/internal/matching"
)

type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) Extract(context.Context, string) (string, error) {
	return s.text, s.err
}

type stubGenerator struct {
	responses []string
	errs      []error
	requests  []ai.Request
}

func (s *stubGenerator) Generate(_ context.Context, req ai.Request) (string, error) {
	i := len(s.requests)
	s.requests = append(s.requests, req)

	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", nil
}

var keywordsOrder = []string{"Skills", "Experience", "Education", "Tools", "Projects", "Certifications"}

func newAnalyzer(t *testing.T, extractor stubExtractor, gen ai.Generator) *Analyzer {
	t.Helper()
	analyzer, err := New(Deps{Extractor: extractor, Generator: gen, Logger: zap.NewNop()})
	require.NoError(t, err)
	return analyzer
}

func TestAnalyzeEndToEnd(t *testing.T) {
	gen := &stubGenerator{responses: []string{"Intro text. Suggestions:  Add metrics to achievements. "}}
	analyzer := newAnalyzer(t, stubExtractor{text: "Developed a REST API using Python and Docker"}, gen)

	result, err := analyzer.Analyze(context.Background(), Request{Path: "resume.pdf"})
	require.NoError(t, err)

	assert.Equal(t, 22, result.ATSScore)
	assert.Equal(t, []string{"python", "rest api", "docker"}, result.Sections.Get("Skills"))
	assert.Equal(t, []string{"developed"}, result.Sections.Get("Experience"))
	assert.Equal(t, "Add metrics to achievements.", result.AIFeedback)
	assert.False(t, result.HasMatch())

	require.Len(t, gen.requests, 1)
	req := gen.requests[0]
	assert.Equal(t, "Analyze this resume and suggest 3 improvements:\ndeveloped a rest api using python and docker", req.Prompt)
	assert.EqualValues(t, 150, req.MaxOutputTokens)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.7, *req.Temperature, 1e-6)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "match_score")
	assert.NotContains(t, string(data), "comparison_summary")
	assert.True(t, strings.HasPrefix(string(data), `{"sections":{"Skills":["python","rest api","docker"],"Experience":["developed"]`))
}

func TestAnalyzeWithJobDescription(t *testing.T) {
	gen := &stubGenerator{responses: []string{"Use action verbs", "  Matches: python. Gaps: kubernetes.  "}}
	analyzer := newAnalyzer(t, stubExtractor{text: "Python developer who used Docker and JavaScript"}, gen)

	result, err := analyzer.Analyze(context.Background(), Request{
		Path:           "resume.pdf",
		JobDescription: "We need Python, Kubernetes and Java experience with Docker",
	})
	require.NoError(t, err)

	require.True(t, result.HasMatch())
	assert.Equal(t, 66.67, *result.MatchScore)
	assert.Equal(t, matching.BandMedium, result.Band)
	assert.Equal(t, "Your resume is a moderate match for this job description.", result.SummarySentence)
	assert.Equal(t, []string{"kubernetes"}, result.MissingKeywords.Get("Skills"))
	assert.Equal(t, "Matches: python. Gaps: kubernetes.", result.ComparisonSummary)

	require.Len(t, gen.requests, 2)
	comparison := gen.requests[1]
	assert.Equal(t,
		"Compare resume with job description:\n"+
			"JD: we need python, kubernetes and java experience with docker\n"+
			"Resume: python developer who used docker and javascript\n"+
			"Key matches and gaps:",
		comparison.Prompt)
	assert.EqualValues(t, 400, comparison.MaxOutputTokens)
	assert.Nil(t, comparison.Temperature)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"match_score":66.67`)
	assert.NotContains(t, string(data), "Band")
}

func TestAnalyzeGeneratorFailureKeepsScores(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	gen := &stubGenerator{errs: []error{errors.New("boom"), errors.New("boom")}}

	analyzer, err := New(Deps{
		Extractor: stubExtractor{text: "Developed a REST API using Python and Docker"},
		Generator: gen,
		Logger:    zap.New(core),
	})
	require.NoError(t, err)

	result, err := analyzer.Analyze(context.Background(), Request{Path: "resume.pdf", JobDescription: "python"})
	require.NoError(t, err)

	assert.Equal(t, 22, result.ATSScore)
	assert.Equal(t, 6, result.Sections.Count())
	assert.Equal(t, FeedbackFailed, result.AIFeedback)
	assert.Equal(t, ComparisonFailed, result.ComparisonSummary)
	assert.Equal(t, 100.0, *result.MatchScore)

	assert.Equal(t, 1, logs.FilterMessage("error generating feedback").Len())
	assert.Equal(t, 1, logs.FilterMessage("error generating comparison").Len())
	entry := logs.FilterMessage("error generating feedback").All()[0]
	assert.Equal(t, "resume.pdf", entry.ContextMap()["document"])
	assert.Equal(t, "feedback", entry.ContextMap()["stage"])
}

func TestAnalyzeEmptyGenerationUsesFallback(t *testing.T) {
	gen := &stubGenerator{responses: []string{"Suggestions:   ", " "}}
	analyzer := newAnalyzer(t, stubExtractor{text: "python"}, gen)

	result, err := analyzer.Analyze(context.Background(), Request{Path: "cv.pdf", JobDescription: "python"})
	require.NoError(t, err)
	assert.Equal(t, FeedbackFailed, result.AIFeedback)
	assert.Equal(t, ComparisonFailed, result.ComparisonSummary)
}

func TestAnalyzeDisabledGenerator(t *testing.T) {
	analyzer := newAnalyzer(t, stubExtractor{text: "python"}, ai.Disabled{Reason: "no api key"})

	result, err := analyzer.Analyze(context.Background(), Request{Path: "cv.pdf"})
	require.NoError(t, err)
	assert.Equal(t, FeedbackFailed, result.AIFeedback)
}

func TestAnalyzeBlankJobDescriptionSkipsMatch(t *testing.T) {
	gen := &stubGenerator{responses: []string{"ok"}}
	analyzer := newAnalyzer(t, stubExtractor{text: "python"}, gen)

	result, err := analyzer.Analyze(context.Background(), Request{Path: "cv.pdf", JobDescription: "  \n"})
	require.NoError(t, err)
	assert.False(t, result.HasMatch())
	assert.Len(t, gen.requests, 1)
}

func TestAnalyzeExtractionFailures(t *testing.T) {
	tests := []struct {
		name      string
		extractor stubExtractor
	}{
		{name: "extractor error", extractor: stubExtractor{err: errors.New("broken xref table")}},
		{name: "empty text", extractor: stubExtractor{text: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &stubGenerator{}
			analyzer := newAnalyzer(t, tt.extractor, gen)

			_, err := analyzer.Analyze(context.Background(), Request{Path: "cv.pdf"})
			require.ErrorIs(t, err, ErrExtraction)
			assert.Equal(t, "Failed to extract text from PDF", ErrorMessage(err))
			assert.Empty(t, gen.requests)
		})
	}
}

func TestAnalyzeWhitespaceOnlyTextIsScored(t *testing.T) {
	gen := &stubGenerator{responses: []string{"Add text content"}}
	analyzer := newAnalyzer(t, stubExtractor{text: " "}, gen)

	result, err := analyzer.Analyze(context.Background(), Request{Path: "scan.pdf"})
	require.NoError(t, err)
	assert.Equal(t, 20, result.ATSScore)
	assert.Equal(t, 0, result.Sections.Count())
	assert.Equal(t, keywordsOrder, result.Sections.Names())
	assert.Equal(t, "Add text content", result.AIFeedback)
}

func TestDefaultStagesOrder(t *testing.T) {
	var names []string
	for _, st := range defaultStages() {
		names = append(names, st.Name())
	}
	assert.Equal(t, []string{"extract", "score", "feedback", "match", "comparison"}, names)
}

func TestAnalyzeRequiresPath(t *testing.T) {
	analyzer := newAnalyzer(t, stubExtractor{text: "python"}, nil)

	_, err := analyzer.Analyze(context.Background(), Request{})
	require.ErrorIs(t, err, ErrFileRequired)
	assert.Equal(t, "File path required", ErrorMessage(err))
}

func TestAnalyzeCancelled(t *testing.T) {
	analyzer := newAnalyzer(t, stubExtractor{text: "python"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := analyzer.Analyze(ctx, Request{Path: "cv.pdf"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "Processing failed: context canceled", ErrorMessage(err))
}

func TestNewRequiresExtractor(t *testing.T) {
	_, err := New(Deps{})
	require.Error(t, err)
}

func TestPromptsTruncateExcerpts(t *testing.T) {
	resume := strings.Repeat("é", 2500)
	prompt := feedbackPrompt(resume, DefaultLimits().FeedbackResume)
	assert.Equal(t, 2000, strings.Count(prompt, "é"))

	prompt = comparisonPrompt(strings.Repeat("j", 1500), strings.Repeat("r", 1500), 1000, 1000)
	assert.Equal(t, 1000, strings.Count(prompt, "j"))
	assert.Equal(t, 1000, strings.Count(prompt, "r"))
}

func TestCleanFeedback(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "  plain text  ", want: "plain text"},
		{in: "prompt\nSuggestions: one", want: "one"},
		{in: "Suggestions: a Suggestions: b ", want: "b"},
	}
	for _, tt := range tests {
		if got := cleanFeedback(tt.in); got != tt.want {
			t.Fatalf("cleanFeedback(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResultReportAndDump(t *testing.T) {
	gen := &stubGenerator{responses: []string{"Quantify results", "Gaps: kubernetes"}}
	analyzer := newAnalyzer(t, stubExtractor{text: "Python developer"}, gen)

	result, err := analyzer.Analyze(context.Background(), Request{Path: "cv.pdf", JobDescription: "python and kubernetes"})
	require.NoError(t, err)

	report := result.ReportBySection()
	assert.Contains(t, report, "Match score: 33.33 (Low)")
	assert.Contains(t, report, "Skills (1)\n  found:   python\n  missing: kubernetes\n")
	assert.Contains(t, report, "Tools (0)\n  missing: kubernetes\n")
	assert.Contains(t, report, "Feedback:\nQuantify results")

	path, err := result.DumpToTmpFile()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Remove(path) })

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 33.33, decoded["match_score"])
	assert.Equal(t, "Gaps: kubernetes", decoded["comparison_summary"])
}
