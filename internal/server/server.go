// Package server exposes the résumé analysis over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/analysis"
	"github.com/spigell/resume-scorer/internal/logger"
)

const (
	DefaultListen    = ":5000"
	DefaultBodyLimit = 10 << 20

	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"

	analysisFailed = "Analysis failed"
)

// Analyzer runs one analysis.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error)
}

// Config holds HTTP server settings.
type Config struct {
	Listen       string
	BodyLimit    int
	AllowOrigins []string
	// UploadDir stores uploads while they are analysed. Defaults to the system temp dir.
	UploadDir string
}

// Server wraps a fiber application serving the analysis endpoints.
type Server struct {
	app      *fiber.App
	analyzer Analyzer
	logger   *zap.Logger
	config   Config
}

// New builds the fiber application and registers routes.
func New(cfg Config, analyzer Analyzer, log *zap.Logger) (*Server, error) {
	if analyzer == nil {
		return nil, errors.New("analyzer is required")
	}
	if strings.TrimSpace(cfg.Listen) == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = DefaultBodyLimit
	}
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = []string{"*"}
	}
	if strings.TrimSpace(cfg.UploadDir) == "" {
		cfg.UploadDir = os.TempDir()
	}

	s := &Server{
		analyzer: analyzer,
		logger:   logger.WithFields(log),
		config:   cfg,
	}

	s.app = fiber.New(fiber.Config{
		AppName:      "resume-scorer",
		BodyLimit:    cfg.BodyLimit,
		ErrorHandler: s.handleError,
	})
	s.app.Use(s.requestID())
	s.app.Use(cors.New(cors.Config{AllowOrigins: cfg.AllowOrigins}))

	s.app.Get("/healthz", s.healthz)
	s.app.Post("/analyze", s.analyze)

	return s, nil
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server started", zap.String("listen", s.config.Listen))
		errCh <- s.app.Listen(s.config.Listen, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) healthz(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) analyze(c fiber.Ctx) error {
	log := s.requestLogger(c)

	header, err := c.FormFile("resume")
	if err != nil {
		log.Info("request without resume file", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(analysis.ErrorResponse{Error: analysis.ErrFileRequired.Error()})
	}

	path := filepath.Join(s.config.UploadDir, uuid.NewString()+strings.ToLower(filepath.Ext(header.Filename)))
	if err := c.SaveFile(header, path); err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("failed to remove upload", zap.String("path", path), zap.Error(err))
		}
	}()

	log.Info("analysing upload",
		zap.String("filename", header.Filename),
		zap.Int64("size", header.Size),
	)

	result, err := s.analyzer.Analyze(c.Context(), analysis.Request{
		Path:           path,
		JobDescription: c.FormValue("jobDescription"),
	})
	switch {
	case errors.Is(err, analysis.ErrExtraction):
		log.Warn("text extraction failed", zap.Error(err))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(analysis.ErrorResponse{Error: analysis.ErrorMessage(err)})
	case err != nil:
		return err
	}

	return c.JSON(result)
}

// handleError renders unexpected failures as {"error": "Analysis failed"} with details.
func (s *Server) handleError(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
	}

	s.requestLogger(c).Error("request failed", zap.Int("status", status), zap.Error(err))

	if status != fiber.StatusInternalServerError {
		return c.Status(status).JSON(analysis.ErrorResponse{Error: fiberErr.Message})
	}
	return c.Status(status).JSON(analysis.ErrorResponse{Error: analysisFailed, Details: err.Error()})
}

func (s *Server) requestID() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		rid := c.Get(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDHeader, rid)
		c.Locals(requestIDKey, rid)

		err := c.Next()

		s.requestLogger(c).Debug("http access",
			zap.String("method", c.Method()),
			zap.String("path", c.OriginalURL()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
		)
		return err
	}
}

func (s *Server) requestLogger(c fiber.Ctx) *zap.Logger {
	rid, _ := c.Locals(requestIDKey).(string)
	return logger.WithFields(s.logger, logger.StringFields(logger.StringField{Key: logger.FieldRequestID, Value: rid})...)
}
