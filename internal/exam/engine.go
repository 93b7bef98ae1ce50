package exam

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/docquiz/internal/llm"
	"github.com/pavelanni/docquiz/internal/llm/prompts"
	"github.com/pavelanni/docquiz/internal/model"
)

// RawQuestionBatch holds generated items per type before validation.
type RawQuestionBatch struct {
	Items     map[model.QuestionType][]json.RawMessage
	Truncated bool
}

// Len returns the number of raw items.
func (b RawQuestionBatch) Len() int {
	n := 0
	for _, items := range b.Items {
		n += len(items)
	}
	return n
}

// SynthesisRequest asks for counts questions of each type from Text.
type SynthesisRequest struct {
	Text       string
	Counts     model.TypeCounts
	Difficulty model.Difficulty
	// Language is the English name used in the prompt, e.g. "Spanish".
	Language string
	Model    string
}

// Engine builds structured generation requests and parses the replies.
type Engine struct {
	gen         llm.Generator
	temperature float32
	maxTokens   int
	timeout     time.Duration
}

// NewEngine creates an engine. timeout bounds each model call and should be
// longer than the chat timeout.
func NewEngine(gen llm.Generator, temperature float32, maxTokens int, timeout time.Duration) *Engine {
	return &Engine{gen: gen, temperature: temperature, maxTokens: maxTokens, timeout: timeout}
}

// Synthesize generates a raw batch. No model call is made when every count
// is zero.
func (e *Engine) Synthesize(ctx context.Context, req SynthesisRequest) (RawQuestionBatch, error) {
	if req.Counts.Total() == 0 {
		return RawQuestionBatch{Items: map[model.QuestionType][]json.RawMessage{}}, nil
	}

	p, err := prompts.BuildExam(prompts.ExamData{
		Text:       req.Text,
		Counts:     req.Counts,
		Difficulty: req.Difficulty,
		Language:   req.Language,
	})
	if err != nil {
		return RawQuestionBatch{}, fmt.Errorf("build exam prompt: %w", err)
	}

	resp, err := e.gen.Generate(ctx, llm.Request{
		Model:       req.Model,
		System:      p.System,
		Prompt:      p.User,
		Schema:      BatchSchema(req.Counts),
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
		Timeout:     e.timeout,
	})
	if err != nil {
		return RawQuestionBatch{}, fmt.Errorf("generate questions: %w", err)
	}
	if resp.Truncated {
		slog.Warn("question batch truncated at token limit", "model", resp.Model, "length", len(resp.Text))
	}

	batch, err := ParseBatch(resp.Text, req.Counts)
	if err != nil {
		slog.Debug("unparsable question batch", "raw", resp.Text)
		return RawQuestionBatch{}, err
	}
	batch.Truncated = resp.Truncated
	return batch, nil
}

// ParseBatch decodes a batch reply, keeping only requested types and at
// most the requested number of items per type.
func ParseBatch(raw string, counts model.TypeCounts) (RawQuestionBatch, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return RawQuestionBatch{}, err
	}

	batch := RawQuestionBatch{Items: map[model.QuestionType][]json.RawMessage{}}
	for _, t := range model.QuestionTypes {
		want := counts.Count(t)
		value, ok := obj[BatchKey(t)]
		if !ok {
			continue
		}
		if want <= 0 {
			slog.Warn("dropping unrequested question type", "type", t)
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(value, &items); err != nil {
			slog.Warn("question list is not an array", "type", t, "error", err)
			continue
		}
		if len(items) > want {
			slog.Warn("dropping extra questions", "type", t, "requested", want, "generated", len(items))
			items = items[:want]
		}
		batch.Items[t] = items
	}
	return batch, nil
}
