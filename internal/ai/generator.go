package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDisabled is returned by generators that are switched off or not configured.
	ErrDisabled = errors.New("ai generation is disabled")
	// ErrEmptyResponse is returned when the provider answered without any text.
	ErrEmptyResponse = errors.New("ai provider returned empty response")
)

// Request describes a single text generation call.
type Request struct {
	// System is an optional system instruction.
	System string
	Prompt string
	// MaxOutputTokens limits the generated length. Zero keeps the provider default.
	MaxOutputTokens int32
	// Temperature enables sampling when set.
	Temperature *float32
}

// Generator produces free text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Disabled is a Generator that always fails with ErrDisabled.
type Disabled struct {
	Reason string
}

func (d Disabled) Generate(context.Context, Request) (string, error) {
	reason := strings.TrimSpace(d.Reason)
	if reason == "" {
		return "", ErrDisabled
	}
	return "", fmt.Errorf("%w: %s", ErrDisabled, reason)
}

// Temperature is a helper for Request.Temperature literals.
func Temperature(v float32) *float32 {
	return &v
}
