// Package handler exposes the service over a JSON HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/docquiz/internal/chat"
	"github.com/pavelanni/docquiz/internal/i18n"
	"github.com/pavelanni/docquiz/internal/ingest"
	"github.com/pavelanni/docquiz/internal/model"
	"github.com/pavelanni/docquiz/internal/service"
)

const maxBodyBytes = 10 << 20

// Service is the set of operations the API serves.
type Service interface {
	AnswerQuestion(ctx context.Context, req chat.AnswerRequest) (model.GroundedAnswer, error)
	GenerateExam(ctx context.Context, req service.ExamRequest) (model.ExamResult, error)
	RegenerateQuestion(ctx context.Context, req service.RegenerateRequest) (model.Question, error)
	DeleteDocumentIndex(ctx context.Context, documentID string) (bool, error)
	RecordFeedback(ctx context.Context, f model.Feedback) (model.Feedback, error)
	ListFeedback(ctx context.Context, documentID string) ([]model.Feedback, error)
}

// Loader indexes uploaded passage files.
type Loader interface {
	Load(ctx context.Context, name string, data []byte) (ingest.Result, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	svc    Service
	loader Loader
}

// New creates a new Handler. loader may be nil, which disables uploads.
func New(svc Service, loader Loader) *Handler {
	return &Handler{svc: svc, loader: loader}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/passages", h.handleUploadPassages)
		r.Route("/documents/{documentID}", func(r chi.Router) {
			r.Post("/chat", h.handleChat)
			r.Post("/exams", h.handleExam)
			r.Post("/questions/regenerate", h.handleRegenerate)
			r.Delete("/index", h.handleDeleteIndex)
			r.Post("/feedback", h.handleCreateFeedback)
			r.Get("/feedback", h.handleListFeedback)
		})
	})
}

type errorBody struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

// statusFor maps an error code to the HTTP status of the response.
func statusFor(code string) int {
	switch code {
	case "":
		return http.StatusOK
	case model.CodeDocumentNotIndexed:
		return http.StatusNotFound
	case model.CodeInsufficientContent, model.CodeModelRefused:
		return http.StatusUnprocessableEntity
	case model.CodeRateLimited:
		return http.StatusTooManyRequests
	case model.CodeMalformedGeneration, model.CodeValidationSkipped:
		return http.StatusBadGateway
	case model.CodeInvalidRequest:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func setRetryAfter(w http.ResponseWriter, err error) {
	if d, ok := model.RetryAfter(err); ok {
		secs := int((d + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := model.ErrorCode(err)
	setRetryAfter(w, err)
	writeJSON(w, statusFor(code), errorBody{Error: i18n.ErrorMessage(r.Context(), err), ErrorCode: code})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, r, errors.Join(model.ErrInvalidRequest, err))
		return false
	}
	return true
}

// requestLanguage returns lang or, when empty, the preferred language of
// the Accept-Language header.
func requestLanguage(r *http.Request, lang string) string {
	if strings.TrimSpace(lang) != "" {
		return lang
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		return i18n.Tag(accept).String()
	}
	return ""
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.AnswerRequest
	if !decode(w, r, &req) {
		return
	}
	req.DocumentID = chi.URLParam(r, "documentID")
	req.Language = requestLanguage(r, req.Language)

	ans, err := h.svc.AnswerQuestion(r.Context(), req)
	if err != nil {
		setRetryAfter(w, err)
	}
	if ans.Passages == nil {
		ans.Passages = []model.Passage{}
	}
	writeJSON(w, statusFor(ans.ErrorCode), ans)
}

func (h *Handler) handleExam(w http.ResponseWriter, r *http.Request) {
	var req service.ExamRequest
	if !decode(w, r, &req) {
		return
	}
	req.DocumentID = chi.URLParam(r, "documentID")
	req.Config.Language = requestLanguage(r, req.Config.Language)

	res, err := h.svc.GenerateExam(r.Context(), req)
	if err != nil {
		setRetryAfter(w, err)
	}
	writeJSON(w, statusFor(res.ErrorCode), res)
}

func (h *Handler) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	var req service.RegenerateRequest
	if !decode(w, r, &req) {
		return
	}
	req.DocumentID = chi.URLParam(r, "documentID")
	req.Config.Language = requestLanguage(r, req.Config.Language)

	q, err := h.svc.RegenerateQuestion(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) handleDeleteIndex(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.DeleteDocumentIndex(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (h *Handler) handleCreateFeedback(w http.ResponseWriter, r *http.Request) {
	var f model.Feedback
	if !decode(w, r, &f) {
		return
	}
	f.DocumentID = chi.URLParam(r, "documentID")
	f.ID = 0

	saved, err := h.svc.RecordFeedback(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *Handler) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListFeedback(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []model.Feedback{}
	}
	writeJSON(w, http.StatusOK, list)
}
