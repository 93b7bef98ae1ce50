package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuestionType(t *testing.T) {
	tests := []struct {
		in      string
		want    QuestionType
		wantErr bool
	}{
		{"true_false", QuestionTrueFalse, false},
		{"V_F", QuestionTrueFalse, false},
		{"vf", QuestionTrueFalse, false},
		{"MC", QuestionMultipleChoice, false},
		{"multiple-choice", QuestionMultipleChoice, false},
		{"open_question", QuestionOpen, false},
		{" Open ", QuestionOpen, false},
		{"fill_in_the_blanks", QuestionFillInBlank, false},
		{"fill in blank", QuestionFillInBlank, false},
		{"essay", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuestionType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		in   string
		want Difficulty
	}{
		{"", DifficultyMedium},
		{"easy", DifficultyEasy},
		{"Fácil", DifficultyEasy},
		{"medio", DifficultyMedium},
		{"dificil", DifficultyHard},
		{"HARD", DifficultyHard},
	}
	for _, tt := range tests {
		got, err := ParseDifficulty(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseDifficulty("impossible")
	assert.Error(t, err)
}

func TestTypeCounts(t *testing.T) {
	c := TypeCounts{TrueFalse: 2, Open: 1}
	assert.Equal(t, 3, c.Total())
	assert.Equal(t, 2, c.Count(QuestionTrueFalse))
	assert.Equal(t, 0, c.Count(QuestionMultipleChoice))

	c.Add(QuestionFillInBlank, 2)
	assert.Equal(t, 5, c.Total())
}

func TestQuestionJSONRoundTrip(t *testing.T) {
	questions := []Question{
		{ID: "1", Text: "Go has goroutines.", Payload: TrueFalseAnswer{CorrectAnswer: true}},
		{ID: "2", Text: "Pick one", Explanation: "b is right", Payload: MultipleChoiceAnswer{Options: []string{"a", "b"}, CorrectAnswerIndex: 1}},
		{ID: "3", Text: "Explain channels.", Explanation: "typed conduits", Payload: OpenAnswer{}},
		{ID: "4", Text: "A [BLANK] is a lightweight [BLANK].", Payload: FillInBlankAnswer{Answers: []string{"goroutine", "thread"}}},
	}

	data, err := json.Marshal(questions)
	require.NoError(t, err)

	var got []Question
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, questions, got)
}

func TestQuestionUnmarshalLegacyType(t *testing.T) {
	var q Question
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","type":"V_F","text":"t","correct_answer":false}`), &q))
	assert.Equal(t, QuestionTrueFalse, q.Type())
	assert.Equal(t, TrueFalseAnswer{CorrectAnswer: false}, q.Payload)
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"wrapped not indexed", fmt.Errorf("retrieve: %w", ErrDocumentNotIndexed), CodeDocumentNotIndexed},
		{"rate limit type", &RateLimitError{Provider: "openai"}, CodeRateLimited},
		{"refusal type", &RefusalError{Provider: "gemini", Reason: "SAFETY"}, CodeModelRefused},
		{"skip reason", SkipReason{Type: QuestionOpen, Reason: "empty text"}, CodeValidationSkipped},
		{"other", errors.New("boom"), CodeUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestRetryAfter(t *testing.T) {
	err := fmt.Errorf("generate: %w", &RateLimitError{Provider: "gemini", RetryAfter: 3 * time.Second})
	d, ok := RetryAfter(err)
	assert.True(t, ok)
	assert.Equal(t, 3*time.Second, d)

	_, ok = RetryAfter(errors.New("other"))
	assert.False(t, ok)
}

func TestExamResultGenerated(t *testing.T) {
	r := ExamResult{
		Requested: TypeCounts{TrueFalse: 2, MultipleChoice: 1},
		Questions: []Question{
			{ID: "a", Text: "x", Payload: TrueFalseAnswer{}},
			{ID: "b", Text: "y", Payload: MultipleChoiceAnswer{Options: []string{"1", "2"}}},
		},
	}
	assert.Equal(t, TypeCounts{TrueFalse: 1, MultipleChoice: 1}, r.Generated())
	assert.False(t, r.Complete())
}
