// Package exam generates assessment questions from document text with
// schema-constrained model output and validates the result.
package exam

import (
	"github.com/pavelanni/docquiz/internal/llm"
	"github.com/pavelanni/docquiz/internal/model"
)

// Field names of the generated payload.
const (
	fieldQuestionText = "question_text"
	fieldAnswer       = "answer"
	fieldExplanation  = "explanation"
	fieldOptions      = "options"
	fieldCorrectText  = "correct_option_text"
	fieldAnswerGuide  = "explanation_or_answer_guide"
	fieldAnswers      = "answers"
	fieldQuestion     = "question"
)

// Maximum number of options of a multiple-choice question.
const (
	MinOptions = 2
	MaxOptions = 6
)

// BatchKey returns the property that holds items of type t in a batch.
func BatchKey(t model.QuestionType) string {
	switch t {
	case model.QuestionTrueFalse:
		return "true_false_questions"
	case model.QuestionMultipleChoice:
		return "multiple_choice_questions"
	case model.QuestionOpen:
		return "open_questions"
	case model.QuestionFillInBlank:
		return "fill_in_blank_questions"
	}
	return ""
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// ItemSchema returns the JSON schema of one generated item of type t.
func ItemSchema(t model.QuestionType) map[string]any {
	props := map[string]any{
		fieldQuestionText: stringProp("The question text."),
	}
	required := []string{fieldQuestionText}

	switch t {
	case model.QuestionTrueFalse:
		props[fieldAnswer] = map[string]any{"type": "boolean", "description": "Whether the statement is true."}
		props[fieldExplanation] = stringProp("Short explanation of the answer.")
		required = append(required, fieldAnswer)
	case model.QuestionMultipleChoice:
		props[fieldOptions] = map[string]any{
			"type":     "array",
			"items":    map[string]any{"type": "string"},
			"minItems": MinOptions,
			"maxItems": MaxOptions,
		}
		props[fieldCorrectText] = stringProp("Exact copy of the correct option.")
		props[fieldExplanation] = stringProp("Short explanation of the answer.")
		required = append(required, fieldOptions, fieldCorrectText)
	case model.QuestionOpen:
		props[fieldAnswerGuide] = stringProp("What a good answer contains.")
	case model.QuestionFillInBlank:
		props[fieldQuestionText] = stringProp("Sentence with each blank written as " + model.BlankMarker + ".")
		props[fieldAnswers] = map[string]any{
			"type":     "array",
			"items":    map[string]any{"type": "string"},
			"minItems": 1,
		}
		props[fieldExplanation] = stringProp("Short explanation of the answers.")
		required = append(required, fieldAnswers)
	}

	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

// BatchSchema describes a batch holding exactly counts items per type.
// Types with a zero count are left out.
func BatchSchema(counts model.TypeCounts) *llm.Schema {
	props := map[string]any{}
	var required []string
	for _, t := range model.QuestionTypes {
		n := counts.Count(t)
		if n <= 0 {
			continue
		}
		key := BatchKey(t)
		props[key] = map[string]any{
			"type":     "array",
			"items":    ItemSchema(t),
			"minItems": n,
			"maxItems": n,
		}
		required = append(required, key)
	}
	return &llm.Schema{
		Name:        "question_batch",
		Description: "Exam questions generated from the reference text.",
		Definition: map[string]any{
			"type":                 "object",
			"properties":           props,
			"required":             required,
			"additionalProperties": false,
		},
	}
}

// SingleSchema describes a reply holding one item of type t under "question".
func SingleSchema(t model.QuestionType) *llm.Schema {
	return &llm.Schema{
		Name:        "single_question",
		Description: "One regenerated exam question.",
		Definition: map[string]any{
			"type":                 "object",
			"properties":           map[string]any{fieldQuestion: ItemSchema(t)},
			"required":             []string{fieldQuestion},
			"additionalProperties": false,
		},
	}
}
