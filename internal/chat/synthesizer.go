package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pavelanni/docquiz/internal/llm"
	"github.com/pavelanni/docquiz/internal/llm/prompts"
	"github.com/pavelanni/docquiz/internal/model"
)

// Synthesizer answers a standalone query from passages only.
type Synthesizer struct {
	gen         llm.Generator
	temperature float32
	timeout     time.Duration
}

// NewSynthesizer creates a synthesizer that calls gen.
func NewSynthesizer(gen llm.Generator, temperature float32, timeout time.Duration) *Synthesizer {
	return &Synthesizer{gen: gen, temperature: temperature, timeout: timeout}
}

// Synthesize returns the model's grounded answer to query.
func (s *Synthesizer) Synthesize(ctx context.Context, passages []model.Passage, query, modelName string) (string, error) {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	p, err := prompts.BuildAnswer(texts, query)
	if err != nil {
		return "", fmt.Errorf("build answer prompt: %w", err)
	}

	resp, err := s.gen.Generate(ctx, llm.Request{
		Model:       modelName,
		System:      p.System,
		Prompt:      p.User,
		Temperature: s.temperature,
		Timeout:     s.timeout,
	})
	if err != nil {
		return "", fmt.Errorf("synthesize answer: %w", err)
	}

	answer := strings.TrimSpace(resp.Text)
	if answer == "" {
		return "", errors.New("synthesize answer: model returned empty text")
	}
	return answer, nil
}
