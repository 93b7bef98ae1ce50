package exam

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/pavelanni/docquiz/internal/model"
)

var blankVariantRegex = regexp.MustCompile(`(?i)\[\s*blank\s*\]`)

type rawItem struct {
	QuestionText      string   `json:"question_text"`
	Answer            *bool    `json:"answer"`
	Explanation       string   `json:"explanation"`
	Options           []string `json:"options"`
	CorrectOptionText string   `json:"correct_option_text"`
	AnswerGuide       string   `json:"explanation_or_answer_guide"`
	Answers           []string `json:"answers"`
}

// Normalizer turns raw generated items into validated questions.
type Normalizer struct {
	schemas map[model.QuestionType]*gojsonschema.Schema
	newID   func() string
}

// NewNormalizer compiles the per-type item schemas.
func NewNormalizer() (*Normalizer, error) {
	schemas := make(map[model.QuestionType]*gojsonschema.Schema, len(model.QuestionTypes))
	for _, t := range model.QuestionTypes {
		def := ItemSchema(t)
		// Extra fields from the model are tolerated and ignored.
		delete(def, "additionalProperties")
		s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def))
		if err != nil {
			return nil, fmt.Errorf("compile %s item schema: %w", t, err)
		}
		schemas[t] = s
	}
	return &Normalizer{schemas: schemas, newID: uuid.NewString}, nil
}

// Normalize validates every item of batch. Items come out ordered by type,
// then in model order. Invalid items are returned as skip reasons.
func (n *Normalizer) Normalize(batch RawQuestionBatch) ([]model.Question, []model.SkipReason) {
	var questions []model.Question
	var skipped []model.SkipReason
	for _, t := range model.QuestionTypes {
		for i, raw := range batch.Items[t] {
			q, err := n.NormalizeItem(t, i, raw)
			if err != nil {
				skip := asSkip(t, i, err)
				slog.Warn("skipping generated question", "type", t, "index", i, "reason", skip.Reason, "text", skip.Text)
				skipped = append(skipped, skip)
				continue
			}
			questions = append(questions, q)
		}
	}
	return questions, skipped
}

// NormalizeItem validates one raw item of type t. A failure is a
// model.SkipReason.
func (n *Normalizer) NormalizeItem(t model.QuestionType, index int, raw json.RawMessage) (model.Question, error) {
	schema, ok := n.schemas[t]
	if !ok {
		return model.Question{}, model.SkipReason{Type: t, Index: index, Reason: "unknown question type"}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return model.Question{}, model.SkipReason{Type: t, Index: index, Reason: "invalid JSON: " + err.Error()}
	}
	var item rawItem
	decodeErr := json.Unmarshal(raw, &item)
	text := strings.TrimSpace(item.QuestionText)
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return model.Question{}, model.SkipReason{Type: t, Index: index, Text: text, Reason: "schema: " + strings.Join(msgs, "; ")}
	}

	skip := func(reason string) (model.Question, error) {
		return model.Question{}, model.SkipReason{Type: t, Index: index, Text: text, Reason: reason}
	}
	// Extra fields pass the schema but may still clash with a known field's type.
	if decodeErr != nil {
		return skip("decode item: " + decodeErr.Error())
	}
	if text == "" {
		return skip("empty question text")
	}

	q := model.Question{ID: n.newID(), Text: text, Explanation: strings.TrimSpace(item.Explanation)}
	switch t {
	case model.QuestionTrueFalse:
		q.Payload = model.TrueFalseAnswer{CorrectAnswer: *item.Answer}

	case model.QuestionMultipleChoice:
		options, reason := cleanOptions(item.Options)
		if reason != "" {
			return skip(reason)
		}
		idx := matchOption(options, item.CorrectOptionText)
		if idx < 0 {
			return skip(fmt.Sprintf("correct option %q not among options", item.CorrectOptionText))
		}
		q.Payload = model.MultipleChoiceAnswer{Options: options, CorrectAnswerIndex: idx}

	case model.QuestionOpen:
		q.Explanation = strings.TrimSpace(item.AnswerGuide)
		q.Payload = model.OpenAnswer{}

	case model.QuestionFillInBlank:
		q.Text = blankVariantRegex.ReplaceAllString(text, model.BlankMarker)
		answers := make([]string, 0, len(item.Answers))
		for _, a := range item.Answers {
			a = strings.TrimSpace(a)
			if a == "" {
				return skip("empty blank answer")
			}
			answers = append(answers, a)
		}
		if len(answers) == 0 {
			return skip("no answers")
		}
		if blanks := strings.Count(q.Text, model.BlankMarker); blanks != len(answers) {
			return skip(fmt.Sprintf("%d blanks but %d answers", blanks, len(answers)))
		}
		q.Payload = model.FillInBlankAnswer{Answers: answers}
	}
	return q, nil
}

func cleanOptions(raw []string) ([]string, string) {
	if len(raw) < MinOptions || len(raw) > MaxOptions {
		return nil, fmt.Sprintf("%d options, want %d to %d", len(raw), MinOptions, MaxOptions)
	}
	seen := make(map[string]bool, len(raw))
	options := make([]string, 0, len(raw))
	for _, o := range raw {
		o = strings.TrimSpace(o)
		if o == "" {
			return nil, "empty option"
		}
		key := strings.ToLower(o)
		if seen[key] {
			return nil, fmt.Sprintf("duplicate option %q", o)
		}
		seen[key] = true
		options = append(options, o)
	}
	return options, ""
}

// matchOption finds correct among options ignoring case and surrounding
// whitespace. It never guesses a closest option.
func matchOption(options []string, correct string) int {
	want := strings.ToLower(strings.TrimSpace(correct))
	if want == "" {
		return -1
	}
	for i, o := range options {
		if strings.ToLower(o) == want {
			return i
		}
	}
	return -1
}

func asSkip(t model.QuestionType, index int, err error) model.SkipReason {
	if s, ok := err.(model.SkipReason); ok {
		return s
	}
	return model.SkipReason{Type: t, Index: index, Reason: err.Error()}
}
