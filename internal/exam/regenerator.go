package exam

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/docquiz/internal/llm"
	"github.com/pavelanni/docquiz/internal/llm/prompts"
	"github.com/pavelanni/docquiz/internal/model"
)

// RegenerateRequest asks for a replacement of Original.
type RegenerateRequest struct {
	Text       string
	Original   model.Question
	Existing   []string
	Difficulty model.Difficulty
	Language   string
	Model      string
}

// Regenerator replaces one question with a new one of the same type.
type Regenerator struct {
	gen         llm.Generator
	normalizer  *Normalizer
	temperature float32
	maxTokens   int
	timeout     time.Duration
}

// NewRegenerator creates a regenerator that validates with normalizer.
func NewRegenerator(gen llm.Generator, normalizer *Normalizer, temperature float32, maxTokens int, timeout time.Duration) *Regenerator {
	return &Regenerator{gen: gen, normalizer: normalizer, temperature: temperature, maxTokens: maxTokens, timeout: timeout}
}

// Regenerate returns a new validated question. It fails rather than return
// the original, and rejects results whose text matches the original or an
// existing question after trimming, case folding and whitespace collapsing.
func (r *Regenerator) Regenerate(ctx context.Context, req RegenerateRequest) (model.Question, error) {
	t := req.Original.Type()
	if t == "" {
		return model.Question{}, fmt.Errorf("original question has no type: %w", model.ErrInvalidRequest)
	}

	p, err := prompts.BuildRegenerate(prompts.RegenerateData{
		Text:       req.Text,
		Type:       t,
		Original:   req.Original.Text,
		Existing:   req.Existing,
		Difficulty: req.Difficulty,
		Language:   req.Language,
	})
	if err != nil {
		return model.Question{}, fmt.Errorf("build regenerate prompt: %w", err)
	}

	resp, err := r.gen.Generate(ctx, llm.Request{
		Model:       req.Model,
		System:      p.System,
		Prompt:      p.User,
		Schema:      SingleSchema(t),
		Temperature: r.temperature,
		MaxTokens:   r.maxTokens,
		Timeout:     r.timeout,
	})
	if err != nil {
		return model.Question{}, fmt.Errorf("regenerate question: %w", err)
	}

	raw, err := singleItem(resp.Text)
	if err != nil {
		slog.Debug("unparsable regenerated question", "raw", resp.Text)
		return model.Question{}, err
	}

	q, err := r.normalizer.NormalizeItem(t, 0, raw)
	if err != nil {
		return model.Question{}, fmt.Errorf("regenerated question rejected: %w", err)
	}

	seen := append([]string{req.Original.Text}, req.Existing...)
	if dup, ok := duplicateOf(q.Text, seen); ok {
		slog.Warn("regenerated question duplicates an existing one", "text", q.Text, "existing", dup)
		return model.Question{}, model.SkipReason{Type: t, Text: q.Text, Reason: "duplicates an existing question"}
	}
	return q, nil
}

// singleItem extracts the item under "question". A bare item is accepted too.
func singleItem(text string) (json.RawMessage, error) {
	obj, err := decodeObject(text)
	if err != nil {
		return nil, err
	}
	if raw, ok := obj[fieldQuestion]; ok {
		return raw, nil
	}
	if _, ok := obj[fieldQuestionText]; ok {
		return json.Marshal(obj)
	}
	return nil, fmt.Errorf(`%w: reply has no "question" object`, model.ErrMalformedGeneration)
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func duplicateOf(text string, existing []string) (string, bool) {
	key := normalizeText(text)
	for _, e := range existing {
		if normalizeText(e) == key {
			return e, true
		}
	}
	return "", false
}
