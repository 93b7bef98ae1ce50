package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/pavelanni/docquiz/internal/model"
)

// PassageRetriever returns the passages of a document relevant to a query.
type PassageRetriever interface {
	Retrieve(ctx context.Context, documentID, query string) ([]model.Passage, error)
}

// AnswerRequest is one question about a document.
type AnswerRequest struct {
	DocumentID string       `json:"document_id" validate:"required"`
	Question   string       `json:"question" validate:"required"`
	History    []model.Turn `json:"history,omitempty" validate:"dive"`
	Language   string       `json:"language,omitempty"`
	Model      string       `json:"model,omitempty"`
}

// Orchestrator runs condense, retrieve and synthesize for one request.
type Orchestrator struct {
	condenser   *Condenser
	retriever   PassageRetriever
	synthesizer *Synthesizer
	directive   func(language string) string
}

// NewOrchestrator wires the answer cycle. directive builds the language
// instruction added to the query before synthesis; nil disables it.
func NewOrchestrator(c *Condenser, r PassageRetriever, s *Synthesizer, directive func(string) string) *Orchestrator {
	return &Orchestrator{condenser: c, retriever: r, synthesizer: s, directive: directive}
}

// Answer runs one cycle. Only rate limiting is returned as an error; every
// other failure is reported in the answer's Error and ErrorCode fields.
func (o *Orchestrator) Answer(ctx context.Context, req AnswerRequest) (model.GroundedAnswer, error) {
	history := NewHistory(req.History)
	logger := slog.With("document_id", req.DocumentID, "history_turns", history.Len())

	query, err := o.condenser.Condense(ctx, history, req.Question, req.Model)
	if err != nil {
		return failed(logger, "condense", err)
	}

	// Retrieval runs on the bare query so the directive does not skew similarity.
	passages, err := o.retriever.Retrieve(ctx, req.DocumentID, query)
	if err != nil {
		return failed(logger, "retrieve", err)
	}

	directed := query
	if o.directive != nil {
		if d := o.directive(req.Language); d != "" {
			directed = strings.TrimSpace(query) + "\n\n" + d
		}
	}

	answer, err := o.synthesizer.Synthesize(ctx, passages, directed, req.Model)
	if err != nil {
		return failed(logger, "synthesize", err)
	}

	logger.Info("answered question", "passages", len(passages))
	return model.GroundedAnswer{Answer: answer, Passages: passages}, nil
}

func failed(logger *slog.Logger, step string, err error) (model.GroundedAnswer, error) {
	code := model.ErrorCode(err)
	if errors.Is(err, model.ErrRateLimited) {
		logger.Warn("rate limited", "step", step, "error", err)
		return model.GroundedAnswer{ErrorCode: code}, err
	}
	logger.Error("answer cycle failed", "step", step, "error", err)
	return model.GroundedAnswer{Error: err.Error(), ErrorCode: code}, nil
}
