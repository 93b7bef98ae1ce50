package llm

import (
	"context"
	"time"
)

//go:generate mockgen -source=generator.go -destination=../mocks/llm/mock_generator.go -package=mock_llm

// Generator is a language model that turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Schema is a JSON schema the response must conform to.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Request is one generation call. A zero Timeout leaves the caller's deadline in place.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Schema      *Schema
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Response is the raw text produced by the model.
type Response struct {
	Text string
	// Truncated is set when the provider stopped at the token limit.
	Truncated bool
	Model     string
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
