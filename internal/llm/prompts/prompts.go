package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/docquiz/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// maxInputRunes caps free-form user input placed in a prompt.
const maxInputRunes = 10000

var pseudoTagRegex = regexp.MustCompile(`(?i)</?\s*(context|conversation|reference_text|original_question|existing_questions|system-instructions)\b[^>]*>`)

// Name identifies a prompt template.
type Name string

const (
	Condense   Name = "condense"
	Answer     Name = "answer"
	Exam       Name = "exam"
	Regenerate Name = "regenerate"
)

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[Name]*template.Template
)

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

// Prompt is a rendered system and user message pair.
type Prompt struct {
	System string
	User   string
}

// CondenseData holds template data for the condense prompt.
type CondenseData struct {
	History  string
	Question string
}

// AnswerData holds template data for the grounded answer prompt.
type AnswerData struct {
	Passages []string
	Question string
}

// ExamData holds template data for the batch question prompt.
type ExamData struct {
	Text        string
	Counts      model.TypeCounts
	Difficulty  model.Difficulty
	Language    string
	BlankMarker string
}

// RegenerateData holds template data for the single question prompt.
type RegenerateData struct {
	Text        string
	Type        model.QuestionType
	TypeLabel   string
	Original    string
	Existing    []string
	Difficulty  model.Difficulty
	Language    string
	BlankMarker string
}

// Load parses the embedded templates. It is safe to call more than once.
func Load() error {
	loadOnce.Do(func() {
		templates = make(map[Name]*template.Template)
		for _, n := range []Name{Condense, Answer, Exam, Regenerate} {
			file := "templates/" + string(n) + ".tmpl"
			tmpl, err := template.New(string(n)).Funcs(funcs).ParseFS(templateFS, file)
			if err != nil {
				loadErr = errors.New("failed to parse prompt template " + file + ": " + err.Error())
				return
			}
			templates[n] = tmpl
		}
	})
	return loadErr
}

func render(n Name, data any) (Prompt, error) {
	if err := Load(); err != nil {
		return Prompt{}, fmt.Errorf("templates load failed: %w", err)
	}
	tmpl, ok := templates[n]
	if !ok {
		return Prompt{}, errors.New("unknown prompt template: " + string(n))
	}

	var sys, user bytes.Buffer
	if err := tmpl.ExecuteTemplate(&sys, "system", data); err != nil {
		return Prompt{}, err
	}
	if err := tmpl.ExecuteTemplate(&user, "user", data); err != nil {
		return Prompt{}, err
	}
	return Prompt{System: strings.TrimSpace(sys.String()), User: strings.TrimSpace(user.String())}, nil
}

// BuildCondense renders the prompt that turns a follow-up into a standalone question.
func BuildCondense(history, question string) (Prompt, error) {
	return render(Condense, CondenseData{
		History:  sanitizeInput(history),
		Question: sanitizeInput(question),
	})
}

// BuildAnswer renders the grounded answer prompt.
func BuildAnswer(passages []string, question string) (Prompt, error) {
	cleaned := make([]string, len(passages))
	for i, p := range passages {
		cleaned[i] = stripTags(p)
	}
	return render(Answer, AnswerData{Passages: cleaned, Question: sanitizeInput(question)})
}

// BuildExam renders the batch question generation prompt.
func BuildExam(data ExamData) (Prompt, error) {
	data.Text = stripTags(data.Text)
	if data.BlankMarker == "" {
		data.BlankMarker = model.BlankMarker
	}
	return render(Exam, data)
}

// BuildRegenerate renders the single question regeneration prompt.
func BuildRegenerate(data RegenerateData) (Prompt, error) {
	data.Text = stripTags(data.Text)
	data.Original = sanitizeInput(data.Original)
	existing := make([]string, 0, len(data.Existing))
	for _, e := range data.Existing {
		if e = sanitizeInput(e); e != "" {
			existing = append(existing, e)
		}
	}
	data.Existing = existing
	if data.BlankMarker == "" {
		data.BlankMarker = model.BlankMarker
	}
	if data.TypeLabel == "" {
		data.TypeLabel = TypeLabel(data.Type)
	}
	return render(Regenerate, data)
}

// TypeLabel returns the human readable name of a question type.
func TypeLabel(t model.QuestionType) string {
	switch t {
	case model.QuestionTrueFalse:
		return "true/false"
	case model.QuestionMultipleChoice:
		return "multiple-choice"
	case model.QuestionOpen:
		return "open"
	case model.QuestionFillInBlank:
		return "fill-in-the-blank"
	}
	return string(t)
}

func stripTags(s string) string {
	return pseudoTagRegex.ReplaceAllString(s, "")
}

func sanitizeInput(s string) string {
	s = strings.TrimSpace(stripTags(s))

	if utf8.RuneCountInString(s) > maxInputRunes {
		runes := []rune(s)
		s = string(runes[:maxInputRunes]) + "\n\n[Input truncated due to length]"
	}

	return s
}
