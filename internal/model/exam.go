package model

// ExamResult is the outcome of one exam generation request. A partial result
// shows up as Generated() differing from Requested.
type ExamResult struct {
	DocumentID string       `json:"document_id"`
	Title      string       `json:"title"`
	Difficulty Difficulty   `json:"difficulty"`
	Language   string       `json:"language,omitempty"`
	Questions  []Question   `json:"questions"`
	Requested  TypeCounts   `json:"requested"`
	Skipped    []SkipReason `json:"skipped,omitempty"`
	Error      string       `json:"error,omitempty"`
	ErrorCode  string       `json:"error_code,omitempty"`
}

// Generated counts the accepted questions per type.
func (r ExamResult) Generated() TypeCounts {
	var c TypeCounts
	for _, q := range r.Questions {
		c.Add(q.Type(), 1)
	}
	return c
}

// Complete reports whether every requested question was produced.
func (r ExamResult) Complete() bool {
	return r.Error == "" && r.Generated() == r.Requested
}
