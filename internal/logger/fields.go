package logger

import (
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"
	// FieldDocument is the structured log field key for the analysed file name.
	FieldDocument = "document"
	// FieldRequestID is the structured log field key for HTTP request ids.
	FieldRequestID = "request_id"
	// FieldStage is the structured log field key for the analysis stage name.
	FieldStage = "stage"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields, trimming whitespace
// and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to the logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// WithCommonFields attaches the AI provider and model to the logger.
func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)...)
}

// WithDocument attaches the base name of the analysed file. Full paths of
// uploads are temporary and only add noise.
func WithDocument(logger *zap.Logger, path string) *zap.Logger {
	name := ""
	if strings.TrimSpace(path) != "" {
		name = filepath.Base(path)
	}
	return WithFields(logger, StringFields(StringField{Key: FieldDocument, Value: name})...)
}
