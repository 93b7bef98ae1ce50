// Package service exposes the chat and exam operations on top of the
// retrieval, synthesis and validation components.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pavelanni/docquiz/internal/chat"
	"github.com/pavelanni/docquiz/internal/exam"
	"github.com/pavelanni/docquiz/internal/i18n"
	"github.com/pavelanni/docquiz/internal/model"
	"github.com/pavelanni/docquiz/internal/validation"
)

// DefaultMinTextLength is the minimum document length, in characters, for
// exam generation.
const DefaultMinTextLength = 500

// Answerer runs one conversation cycle.
type Answerer interface {
	Answer(ctx context.Context, req chat.AnswerRequest) (model.GroundedAnswer, error)
}

// TextProvider returns the full text of a document.
type TextProvider interface {
	GetText(ctx context.Context, documentID string) (string, error)
}

// ExamSynthesizer asks the model for a raw batch of questions.
type ExamSynthesizer interface {
	Synthesize(ctx context.Context, req exam.SynthesisRequest) (exam.RawQuestionBatch, error)
}

// BatchNormalizer validates a raw batch into questions.
type BatchNormalizer interface {
	Normalize(batch exam.RawQuestionBatch) ([]model.Question, []model.SkipReason)
}

// QuestionRegenerator replaces one question.
type QuestionRegenerator interface {
	Regenerate(ctx context.Context, req exam.RegenerateRequest) (model.Question, error)
}

// IndexDeleter drops a document's vector namespace.
type IndexDeleter interface {
	Delete(ctx context.Context, documentID string) (bool, error)
}

// TextDeleter drops the cached text of a document.
type TextDeleter interface {
	DeleteText(ctx context.Context, documentID string) error
}

// FeedbackStore persists answer feedback.
type FeedbackStore interface {
	InsertFeedback(ctx context.Context, f model.Feedback) (model.Feedback, error)
	ListFeedback(ctx context.Context, documentID string) ([]model.Feedback, error)
}

// Deps are the collaborators of a Service. Texts and Feedback may be nil.
type Deps struct {
	Answerer    Answerer
	Provider    TextProvider
	Engine      ExamSynthesizer
	Normalizer  BatchNormalizer
	Regenerator QuestionRegenerator
	Index       IndexDeleter
	Texts       TextDeleter
	Feedback    FeedbackStore
}

// Options tunes request handling.
type Options struct {
	DefaultLanguage string
	MinTextLength   int
}

// ExamRequest asks for an exam over one document.
type ExamRequest struct {
	DocumentID string           `json:"document_id" validate:"required"`
	Title      string           `json:"title"`
	Config     model.ExamConfig `json:"config"`
}

// RegenerateRequest asks for a replacement of one question of an exam.
type RegenerateRequest struct {
	DocumentID string           `json:"document_id" validate:"required"`
	Original   model.Question   `json:"original"`
	Config     model.ExamConfig `json:"config"`
	Existing   []string         `json:"existing,omitempty"`
}

// Service implements the document operations behind the handler and the CLI.
type Service struct {
	deps     Deps
	opts     Options
	validate *validation.Validator
}

// New creates a service. Zero options take their defaults.
func New(deps Deps, opts Options) (*Service, error) {
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = "en"
	}
	if opts.MinTextLength < 0 {
		opts.MinTextLength = 0
	}
	v, err := validation.New("json")
	if err != nil {
		return nil, fmt.Errorf("create validator: %w", err)
	}
	return &Service{deps: deps, opts: opts, validate: v}, nil
}

func (s *Service) check(req any) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", model.ErrInvalidRequest, err)
	}
	return nil
}

func (s *Service) language(lang string) string {
	if strings.TrimSpace(lang) == "" {
		return s.opts.DefaultLanguage
	}
	return lang
}

// AnswerQuestion answers one question about a document. Only rate limiting
// is returned as an error; other failures are reported in the answer, with
// Error localized in the request language.
func (s *Service) AnswerQuestion(ctx context.Context, req chat.AnswerRequest) (model.GroundedAnswer, error) {
	ctx = i18n.WithLanguage(ctx, req.Language)
	if err := s.check(req); err != nil {
		return model.GroundedAnswer{Error: i18n.ErrorMessage(ctx, err), ErrorCode: model.CodeInvalidRequest}, nil
	}
	req.Language = s.language(req.Language)

	ans, err := s.deps.Answerer.Answer(ctx, req)
	if ans.ErrorCode != "" {
		ans.Error = i18n.CodeMessage(ctx, ans.ErrorCode)
	}
	return ans, err
}

// GenerateExam produces an exam for a document. Only rate limiting is
// returned as an error; a partial exam shows up as Generated() differing
// from Requested.
func (s *Service) GenerateExam(ctx context.Context, req ExamRequest) (model.ExamResult, error) {
	ctx = i18n.WithLanguage(ctx, req.Config.Language)
	res := model.ExamResult{
		DocumentID: req.DocumentID,
		Title:      req.Title,
		Requested:  req.Config.Counts,
		Questions:  []model.Question{},
	}
	logger := slog.With("document_id", req.DocumentID, "requested", req.Config.Counts.Total())

	difficulty, err := model.ParseDifficulty(string(req.Config.Difficulty))
	if err != nil {
		return s.examFailed(ctx, logger, res, fmt.Errorf("%w: %s", model.ErrInvalidRequest, err))
	}
	req.Config.Difficulty = difficulty
	if err := s.check(req); err != nil {
		return s.examFailed(ctx, logger, res, err)
	}
	lang := s.language(req.Config.Language)
	res.Difficulty, res.Language = difficulty, lang

	text, err := s.deps.Provider.GetText(ctx, req.DocumentID)
	if err != nil {
		return s.examFailed(ctx, logger, res, err)
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(text)); n < s.opts.MinTextLength {
		logger.Warn("document too short for exam", "runes", n, "min", s.opts.MinTextLength)
		res.ErrorCode = model.CodeInsufficientContent
		res.Error = i18n.Td(ctx, "ErrInsufficientContent", map[string]any{"Length": n, "MinLength": s.opts.MinTextLength})
		return res, nil
	}
	if req.Config.Counts.Total() == 0 {
		return res, nil
	}

	batch, err := s.deps.Engine.Synthesize(ctx, exam.SynthesisRequest{
		Text:       text,
		Counts:     req.Config.Counts,
		Difficulty: difficulty,
		Language:   i18n.LanguageName(lang),
		Model:      req.Config.Model,
	})
	if err != nil {
		return s.examFailed(ctx, logger, res, err)
	}

	res.Questions, res.Skipped = s.deps.Normalizer.Normalize(batch)
	if res.Questions == nil {
		res.Questions = []model.Question{}
	}
	if len(res.Questions) == 0 {
		return s.examFailed(ctx, logger, res, model.ErrValidationSkipped)
	}
	logger.Info("generated exam", "questions", len(res.Questions), "skipped", len(res.Skipped))
	return res, nil
}

func (s *Service) examFailed(ctx context.Context, logger *slog.Logger, res model.ExamResult, err error) (model.ExamResult, error) {
	res.ErrorCode = model.ErrorCode(err)
	res.Error = i18n.ErrorMessage(ctx, err)
	if errors.Is(err, model.ErrRateLimited) {
		logger.Warn("exam generation rate limited", "error", err)
		return res, err
	}
	logger.Error("exam generation failed", "code", res.ErrorCode, "error", err)
	return res, nil
}

// RegenerateQuestion replaces req.Original with a new question of the same
// type. It never returns the original.
func (s *Service) RegenerateQuestion(ctx context.Context, req RegenerateRequest) (model.Question, error) {
	difficulty, err := model.ParseDifficulty(string(req.Config.Difficulty))
	if err != nil {
		return model.Question{}, fmt.Errorf("%w: %s", model.ErrInvalidRequest, err)
	}
	req.Config.Difficulty = difficulty
	if err := s.check(req); err != nil {
		return model.Question{}, err
	}
	if req.Original.Payload == nil || strings.TrimSpace(req.Original.Text) == "" {
		return model.Question{}, fmt.Errorf("%w: original question must have a type and text", model.ErrInvalidRequest)
	}

	text, err := s.deps.Provider.GetText(ctx, req.DocumentID)
	if err != nil {
		return model.Question{}, err
	}
	q, err := s.deps.Regenerator.Regenerate(ctx, exam.RegenerateRequest{
		Text:       text,
		Original:   req.Original,
		Existing:   req.Existing,
		Difficulty: difficulty,
		Language:   i18n.LanguageName(s.language(req.Config.Language)),
		Model:      req.Config.Model,
	})
	if err != nil {
		slog.Warn("regeneration failed", "document_id", req.DocumentID, "type", req.Original.Type(), "error", err)
		return model.Question{}, err
	}
	return q, nil
}

// DeleteDocumentIndex removes the vector namespace and any cached text of a
// document. It reports whether a namespace existed.
func (s *Service) DeleteDocumentIndex(ctx context.Context, documentID string) (bool, error) {
	if strings.TrimSpace(documentID) == "" {
		return false, fmt.Errorf("%w: document_id is required", model.ErrInvalidRequest)
	}
	deleted, err := s.deps.Index.Delete(ctx, documentID)
	if err != nil {
		return false, fmt.Errorf("delete index of %s: %w", documentID, err)
	}
	if s.deps.Texts != nil {
		if err := s.deps.Texts.DeleteText(ctx, documentID); err != nil {
			slog.Warn("delete cached text failed", "document_id", documentID, "error", err)
		}
	}
	slog.Info("deleted document index", "document_id", documentID, "existed", deleted)
	return deleted, nil
}

// RecordFeedback stores a rating of an answer.
func (s *Service) RecordFeedback(ctx context.Context, f model.Feedback) (model.Feedback, error) {
	if s.deps.Feedback == nil {
		return model.Feedback{}, errors.New("feedback store not configured")
	}
	if strings.TrimSpace(f.DocumentID) == "" {
		return model.Feedback{}, fmt.Errorf("%w: document_id is required", model.ErrInvalidRequest)
	}
	if err := s.check(f); err != nil {
		return model.Feedback{}, err
	}
	return s.deps.Feedback.InsertFeedback(ctx, f)
}

// ListFeedback returns the stored feedback of a document.
func (s *Service) ListFeedback(ctx context.Context, documentID string) ([]model.Feedback, error) {
	if s.deps.Feedback == nil {
		return nil, errors.New("feedback store not configured")
	}
	return s.deps.Feedback.ListFeedback(ctx, documentID)
}
