package model

import (
	"fmt"
	"strings"
	"time"
)

// Role represents a conversation turn role.
type Role string

const (
	// RoleUser marks a turn written by the person asking.
	RoleUser Role = "user"
	// RoleAssistant marks a turn produced by the model.
	RoleAssistant Role = "assistant"
)

// Turn is one entry of a conversation history.
type Turn struct {
	Role Role   `json:"role" validate:"oneof=user assistant"`
	Text string `json:"text"`
}

// Passage is a chunk of a document returned by similarity search.
type Passage struct {
	Text       string  `json:"text"`
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	SourceFile string  `json:"source_file,omitempty"`
	Similarity float32 `json:"similarity,omitempty"`
}

// GroundedAnswer is the result of one conversation cycle.
type GroundedAnswer struct {
	Answer    string    `json:"answer"`
	Passages  []Passage `json:"passages"`
	Error     string    `json:"error,omitempty"`
	ErrorCode string    `json:"error_code,omitempty"`
}

// QuestionType is the closed set of question kinds.
type QuestionType string

const (
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionOpen           QuestionType = "open"
	QuestionFillInBlank    QuestionType = "fill_in_blank"
)

// QuestionTypes lists every question type in output order.
var QuestionTypes = []QuestionType{
	QuestionTrueFalse,
	QuestionMultipleChoice,
	QuestionOpen,
	QuestionFillInBlank,
}

var questionTypeAliases = map[string]QuestionType{
	"true_false":         QuestionTrueFalse,
	"truefalse":          QuestionTrueFalse,
	"tf":                 QuestionTrueFalse,
	"v_f":                QuestionTrueFalse,
	"vf":                 QuestionTrueFalse,
	"multiple_choice":    QuestionMultipleChoice,
	"multiplechoice":     QuestionMultipleChoice,
	"mc":                 QuestionMultipleChoice,
	"open":               QuestionOpen,
	"open_question":      QuestionOpen,
	"open_questions":     QuestionOpen,
	"fill_in_blank":      QuestionFillInBlank,
	"fill_in_blanks":     QuestionFillInBlank,
	"fill_in_the_blank":  QuestionFillInBlank,
	"fill_in_the_blanks": QuestionFillInBlank,
	"fib":                QuestionFillInBlank,
}

// ParseQuestionType maps an externally supplied type string to a QuestionType.
// Legacy spellings such as "V_F" or "MC" are accepted.
func ParseQuestionType(s string) (QuestionType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if t, ok := questionTypeAliases[key]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown question type %q", s)
}

// Difficulty represents question difficulty.
type Difficulty string

const (
	// DifficultyEasy is the easy difficulty level.
	DifficultyEasy Difficulty = "easy"
	// DifficultyMedium is the medium difficulty level.
	DifficultyMedium Difficulty = "medium"
	// DifficultyHard is the hard difficulty level.
	DifficultyHard Difficulty = "hard"
)

var difficultyAliases = map[string]Difficulty{
	"easy":    DifficultyEasy,
	"facil":   DifficultyEasy,
	"fácil":   DifficultyEasy,
	"medium":  DifficultyMedium,
	"medio":   DifficultyMedium,
	"hard":    DifficultyHard,
	"dificil": DifficultyHard,
	"difícil": DifficultyHard,
}

// ParseDifficulty maps a difficulty string, including legacy Spanish values.
// An empty string yields DifficultyMedium.
func ParseDifficulty(s string) (Difficulty, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return DifficultyMedium, nil
	}
	if d, ok := difficultyAliases[key]; ok {
		return d, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// TypeCounts holds the number of questions requested or produced per type.
type TypeCounts struct {
	TrueFalse      int `json:"true_false" validate:"gte=0,lte=50"`
	MultipleChoice int `json:"multiple_choice" validate:"gte=0,lte=50"`
	Open           int `json:"open" validate:"gte=0,lte=50"`
	FillInBlank    int `json:"fill_in_blank" validate:"gte=0,lte=50"`
}

// Count returns the count for a question type.
func (c TypeCounts) Count(t QuestionType) int {
	switch t {
	case QuestionTrueFalse:
		return c.TrueFalse
	case QuestionMultipleChoice:
		return c.MultipleChoice
	case QuestionOpen:
		return c.Open
	case QuestionFillInBlank:
		return c.FillInBlank
	}
	return 0
}

// Add increments the count for a question type.
func (c *TypeCounts) Add(t QuestionType, n int) {
	switch t {
	case QuestionTrueFalse:
		c.TrueFalse += n
	case QuestionMultipleChoice:
		c.MultipleChoice += n
	case QuestionOpen:
		c.Open += n
	case QuestionFillInBlank:
		c.FillInBlank += n
	}
}

// Total returns the sum of all counts.
func (c TypeCounts) Total() int {
	return c.TrueFalse + c.MultipleChoice + c.Open + c.FillInBlank
}

// ExamConfig describes what to generate for a document.
type ExamConfig struct {
	Counts     TypeCounts `json:"counts"`
	Difficulty Difficulty `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Language   string     `json:"language"`
	Model      string     `json:"model,omitempty"`
}

// Feedback is a user's rating of a grounded answer.
type Feedback struct {
	ID         int64     `json:"id"`
	DocumentID string    `json:"document_id"`
	Query      string    `json:"query" validate:"required"`
	Answer     string    `json:"answer"`
	Helpful    bool      `json:"helpful"`
	Correction string    `json:"correction,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
