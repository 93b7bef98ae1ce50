package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/docquiz/internal/llm"
	"github.com/pavelanni/docquiz/internal/llm/prompts"
)

// Condenser rewrites a follow-up question into a standalone query.
type Condenser struct {
	gen         llm.Generator
	temperature float32
	timeout     time.Duration
}

// NewCondenser creates a condenser that calls gen.
func NewCondenser(gen llm.Generator, temperature float32, timeout time.Duration) *Condenser {
	return &Condenser{gen: gen, temperature: temperature, timeout: timeout}
}

// Condense returns question unchanged when history has no usable exchange.
// Otherwise the model rewrites it in the language of question.
func (c *Condenser) Condense(ctx context.Context, history History, question, modelName string) (string, error) {
	rendered := history.Render()
	if rendered == "" {
		return question, nil
	}

	p, err := prompts.BuildCondense(rendered, question)
	if err != nil {
		return "", fmt.Errorf("build condense prompt: %w", err)
	}

	resp, err := c.gen.Generate(ctx, llm.Request{
		Model:       modelName,
		System:      p.System,
		Prompt:      p.User,
		Temperature: c.temperature,
		Timeout:     c.timeout,
	})
	if err != nil {
		return "", fmt.Errorf("condense question: %w", err)
	}

	condensed := cleanCondensed(resp.Text)
	if condensed == "" {
		slog.Warn("condenser returned empty text, using original question")
		return question, nil
	}
	slog.Debug("condensed question", "original", question, "condensed", condensed)
	return condensed, nil
}

func cleanCondensed(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(strings.ToLower(s), "standalone question:"); i == 0 {
		s = strings.TrimSpace(s[len("standalone question:"):])
	}
	return strings.TrimSpace(strings.Trim(s, "\"“”"))
}
