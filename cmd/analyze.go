package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/ai"
	"github.com/spigell/resume-scorer/internal/ai/gemini"
	"github.com/spigell/resume-scorer/internal/analysis"
	"github.com/spigell/resume-scorer/internal/extract"
	"github.com/spigell/resume-scorer/internal/keywords"
	"github.com/spigell/resume-scorer/internal/logger"
	"github.com/spigell/resume-scorer/internal/secrets"
)

const (
	PromptPrintJSON        = "Print JSON"
	PromptReportBySections = "Report by sections"
	PromptResultToFile     = "Dump result to file"
	PromptExit             = "Exit"

	geminiAPIKeyEnv = "GEMINI_API_KEY"
)

var (
	errExit = errors.New("exit requested")

	// errReported marks failures already printed as JSON on stdout.
	errReported = errors.New("error reported")
)

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptPrintJSON, PromptReportBySections, PromptResultToFile, PromptExit},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <resume> [job-description]",
	Short: "Score a resume and optionally match it against a job description",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return analyze(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("jd-file", "", "read the job description from a file")
	analyzeCmd.Flags().BoolP("interactive", "i", false, "choose what to do with the result after the analysis")
}

// analyze prints exactly one JSON document on stdout. Failures are printed as
// {"error": ...} and reported to the caller with errReported.
func analyze(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return reportError(out, analysis.ErrFileRequired)
	}
	if len(args) > 2 {
		return reportError(out, fmt.Errorf("too many arguments: expected <resume> [job-description], got %d", len(args)))
	}

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := getConfig()
	if err != nil {
		return reportError(out, err)
	}

	jd, err := jobDescription(cmd, args)
	if err != nil {
		return reportError(out, err)
	}

	analyzer, err := newAnalyzer(ctx, config, logger)
	if err != nil {
		return reportError(out, err)
	}

	result, err := analyzer.Analyze(ctx, analysis.Request{Path: args[0], JobDescription: jd})
	if err != nil {
		logger.Debug("analysis failed", zap.Error(err))
		return reportError(out, err)
	}

	interactive, _ := cmd.Flags().GetBool("interactive")
	if !interactive {
		return writeJSON(out, result)
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			return fmt.Errorf("prompt: %w", err)
		}

		if err := handleAction(action, out, logger, result); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			return err
		}
	}
}

func handleAction(action string, out io.Writer, logger *zap.Logger, result *analysis.Result) error {
	switch action {
	case PromptPrintJSON:
		return writeJSON(out, result)
	case PromptReportBySections:
		_, err := fmt.Fprint(out, result.ReportBySection())
		return err
	case PromptResultToFile:
		filename, err := result.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump result to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// jobDescription takes the second argument or the content of --jd-file.
func jobDescription(cmd *cobra.Command, args []string) (string, error) {
	file, _ := cmd.Flags().GetString("jd-file")
	file = strings.TrimSpace(file)

	if len(args) > 1 {
		if file != "" {
			return "", errors.New("job description is given both as an argument and with --jd-file")
		}
		return args[1], nil
	}
	if file == "" {
		return "", nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading job description: %w", err)
	}
	return string(data), nil
}

func newAnalyzer(ctx context.Context, config *Config, logger *zap.Logger) (*analysis.Analyzer, error) {
	generator, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		logger.Warn("ai generation disabled", zap.Error(err))
		generator = ai.Disabled{Reason: err.Error()}
	}

	return analysis.New(analysis.Deps{
		Extractor: extract.Default(logger),
		Taxonomy:  keywords.Default(),
		Generator: generator,
		Logger:    logger,
	})
}

// newGenerator builds the configured text generator. Disabled AI is not an error.
func newGenerator(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Generator, error) {
	if cfg == nil || !cfg.Enabled {
		return ai.Disabled{Reason: "disabled in configuration"}, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.Provider {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	geminiCfg := cfg.Gemini
	if geminiCfg == nil {
		geminiCfg = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  geminiCfg.APIKeyFile,
		Value: geminiCfg.APIKey,
		Env:   geminiAPIKeyEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file, ai.gemini.api-key or %s)", err, geminiAPIKeyEnv)
	}

	generator, err := gemini.NewGenerator(ctx, gemini.Config{
		APIKey:       apiKey,
		Model:        geminiCfg.Model,
		MaxRetries:   geminiCfg.MaxRetries,
		Timeout:      cfg.Timeout,
		MaxLogLength: geminiCfg.MaxLogLength,
	}, logger)
	if err != nil {
		return nil, err
	}
	return generator, nil
}

func reportError(out io.Writer, err error) error {
	if werr := writeJSON(out, analysis.ErrorResponse{Error: analysis.ErrorMessage(err)}); werr != nil {
		return werr
	}
	return errReported
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
