package model

import (
	"encoding/json"
	"fmt"
)

// BlankMarker is the placeholder that marks each blank in a fill-in-blank question.
const BlankMarker = "[BLANK]"

// Payload is the type-specific part of a Question.
type Payload interface {
	Type() QuestionType
	isPayload()
}

// TrueFalseAnswer is the payload of a true/false question.
type TrueFalseAnswer struct {
	CorrectAnswer bool `json:"correct_answer"`
}

// MultipleChoiceAnswer is the payload of a multiple-choice question.
type MultipleChoiceAnswer struct {
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correct_answer_index"`
}

// OpenAnswer is the payload of an open question. It carries nothing checkable.
type OpenAnswer struct{}

// FillInBlankAnswer is the payload of a fill-in-blank question.
// Answers align with BlankMarker occurrences in the question text.
type FillInBlankAnswer struct {
	Answers []string `json:"answers"`
}

func (TrueFalseAnswer) Type() QuestionType      { return QuestionTrueFalse }
func (MultipleChoiceAnswer) Type() QuestionType { return QuestionMultipleChoice }
func (OpenAnswer) Type() QuestionType           { return QuestionOpen }
func (FillInBlankAnswer) Type() QuestionType    { return QuestionFillInBlank }

func (TrueFalseAnswer) isPayload()      {}
func (MultipleChoiceAnswer) isPayload() {}
func (OpenAnswer) isPayload()           {}
func (FillInBlankAnswer) isPayload()    {}

// Question is a validated question record. Values are built by the exam
// normalizer and are not modified afterwards.
type Question struct {
	ID          string
	Text        string
	Explanation string
	Payload     Payload
}

// Type returns the question type, or "" when the payload is missing.
func (q Question) Type() QuestionType {
	if q.Payload == nil {
		return ""
	}
	return q.Payload.Type()
}

type questionJSON struct {
	ID                 string       `json:"id"`
	Type               QuestionType `json:"type"`
	Text               string       `json:"text"`
	Explanation        string       `json:"explanation,omitempty"`
	CorrectAnswer      *bool        `json:"correct_answer,omitempty"`
	Options            []string     `json:"options,omitempty"`
	CorrectAnswerIndex *int         `json:"correct_answer_index,omitempty"`
	Answers            []string     `json:"answers,omitempty"`
}

// MarshalJSON writes the question as one flat object tagged by "type".
func (q Question) MarshalJSON() ([]byte, error) {
	out := questionJSON{
		ID:          q.ID,
		Type:        q.Type(),
		Text:        q.Text,
		Explanation: q.Explanation,
	}
	switch p := q.Payload.(type) {
	case TrueFalseAnswer:
		out.CorrectAnswer = &p.CorrectAnswer
	case MultipleChoiceAnswer:
		out.Options = p.Options
		out.CorrectAnswerIndex = &p.CorrectAnswerIndex
	case FillInBlankAnswer:
		out.Answers = p.Answers
	case OpenAnswer, nil:
	default:
		return nil, fmt.Errorf("unsupported payload %T", p)
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the flat form written by MarshalJSON. The type string
// goes through ParseQuestionType so legacy names are accepted.
func (q *Question) UnmarshalJSON(data []byte) error {
	var in questionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	t, err := ParseQuestionType(string(in.Type))
	if err != nil {
		return err
	}
	q.ID = in.ID
	q.Text = in.Text
	q.Explanation = in.Explanation
	switch t {
	case QuestionTrueFalse:
		var p TrueFalseAnswer
		if in.CorrectAnswer != nil {
			p.CorrectAnswer = *in.CorrectAnswer
		}
		q.Payload = p
	case QuestionMultipleChoice:
		p := MultipleChoiceAnswer{Options: in.Options}
		if in.CorrectAnswerIndex != nil {
			p.CorrectAnswerIndex = *in.CorrectAnswerIndex
		}
		q.Payload = p
	case QuestionOpen:
		q.Payload = OpenAnswer{}
	case QuestionFillInBlank:
		q.Payload = FillInBlankAnswer{Answers: in.Answers}
	}
	return nil
}

// SkipReason records why a generated item was dropped.
type SkipReason struct {
	Type   QuestionType `json:"type"`
	Index  int          `json:"index"`
	Text   string       `json:"text,omitempty"`
	Reason string       `json:"reason"`
}

func (s SkipReason) Error() string {
	return fmt.Sprintf("%s item %d skipped: %s", s.Type, s.Index, s.Reason)
}

// Unwrap lets errors.Is match ErrValidationSkipped.
func (s SkipReason) Unwrap() error {
	return ErrValidationSkipped
}
