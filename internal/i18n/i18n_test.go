package i18n

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pavelanni/docquiz/internal/model"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "ErrRateLimited")
	if got != "The language model is busy. Please try again later." {
		t.Errorf("T(ErrRateLimited) = %q", got)
	}
}

func TestTranslateSpanish(t *testing.T) {
	ctx := initLang(t, "es")

	got := T(ctx, "ErrRateLimited")
	if got != "El modelo de lenguaje está ocupado. Inténtalo más tarde." {
		t.Errorf("T(ErrRateLimited) = %q", got)
	}
}

func TestUnsupportedLanguageFallsBack(t *testing.T) {
	ctx := initLang(t, "de")

	got := T(ctx, "ErrUnexpected")
	if got != "Something went wrong while processing the request." {
		t.Errorf("T(ErrUnexpected) = %q, want English fallback", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Tp(ctx, "ExamSummary", 1); got != "Generated 1 question." {
		t.Errorf("Tp(ExamSummary, 1) = %q", got)
	}
	if got := Tp(ctx, "ExamSummary", 5); got != "Generated 5 questions." {
		t.Errorf("Tp(ExamSummary, 5) = %q", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "ErrInsufficientContent", map[string]any{"Length": 120, "MinLength": 500})
	want := "The document does not have enough content to generate an exam (120 of at least 500 characters)."
	if got != want {
		t.Errorf("Td(ErrInsufficientContent) = %q, want %q", got, want)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestLanguageNames(t *testing.T) {
	tests := []struct {
		lang, name, self string
	}{
		{"es", "Spanish", "español"},
		{"en", "English", "English"},
		{"", "English", "English"},
		{"not a language!", "English", "English"},
		{"de;q=0.5, es", "Spanish", "español"},
		{"fr", "French", "français"},
	}
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			if got := LanguageName(tt.lang); got != tt.name {
				t.Errorf("LanguageName(%q) = %q, want %q", tt.lang, got, tt.name)
			}
			if got := SelfName(tt.lang); got != tt.self {
				t.Errorf("SelfName(%q) = %q, want %q", tt.lang, got, tt.self)
			}
		})
	}
}

func TestLanguageDirective(t *testing.T) {
	initLang(t, "en")

	if got := LanguageDirective("es"); got != "Por favor, responde en español." {
		t.Errorf("LanguageDirective(es) = %q", got)
	}
	if got := LanguageDirective("en"); got != "Please respond in English." {
		t.Errorf("LanguageDirective(en) = %q", got)
	}
}

func TestErrorMessage(t *testing.T) {
	ctx := initLang(t, "en")

	got := ErrorMessage(ctx, fmt.Errorf("retrieve: %w", model.ErrDocumentNotIndexed))
	if got != T(ctx, "ErrDocumentNotIndexed") {
		t.Errorf("ErrorMessage(not indexed) = %q", got)
	}

	got = ErrorMessage(ctx, fmt.Errorf("%w: question is required", model.ErrInvalidRequest))
	if got != "The request is invalid: question is required" {
		t.Errorf("ErrorMessage(invalid) = %q", got)
	}

	got = ErrorMessage(ctx, fmt.Errorf("boom"))
	if got != T(ctx, "ErrUnexpected") {
		t.Errorf("ErrorMessage(unknown) = %q", got)
	}
}

func TestMiddleware(t *testing.T) {
	initLang(t, "en")

	var got string
	h := Middleware("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "ErrModelRefused")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "es-ES,es;q=0.9,en;q=0.8")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "El modelo de lenguaje se negó a responder esta solicitud." {
		t.Errorf("Spanish request got %q", got)
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got != "The language model declined to answer this request." {
		t.Errorf("default request got %q", got)
	}
}
