// Package chat answers questions about a document from retrieved passages,
// rewriting follow-ups into standalone queries first.
package chat

import (
	"strings"

	"github.com/pavelanni/docquiz/internal/model"
)

// History is an immutable, ordered sequence of conversation turns.
// The zero value is an empty history.
type History struct {
	turns []model.Turn
}

// Exchange is a user question and the assistant reply that followed it.
type Exchange struct {
	Question string
	Answer   string
}

// NewHistory copies turns into a new History.
func NewHistory(turns []model.Turn) History {
	if len(turns) == 0 {
		return History{}
	}
	return History{turns: append([]model.Turn(nil), turns...)}
}

// Append returns a new History with t added at the end.
func (h History) Append(t model.Turn) History {
	turns := make([]model.Turn, len(h.turns), len(h.turns)+1)
	copy(turns, h.turns)
	return History{turns: append(turns, t)}
}

// Turns returns a copy of the turns.
func (h History) Turns() []model.Turn {
	return append([]model.Turn(nil), h.turns...)
}

// Len returns the number of turns.
func (h History) Len() int { return len(h.turns) }

// Exchanges pairs each user turn with the assistant turn that follows it.
// User turns without a reply and empty replies are dropped, so failed
// cycles do not leak into the condensing prompt.
func (h History) Exchanges() []Exchange {
	var out []Exchange
	var pending string
	for _, t := range h.turns {
		text := strings.TrimSpace(t.Text)
		switch t.Role {
		case model.RoleUser:
			pending = text
		case model.RoleAssistant:
			if pending != "" && text != "" {
				out = append(out, Exchange{Question: pending, Answer: text})
			}
			pending = ""
		}
	}
	return out
}

// Render formats the exchanges for a prompt. It returns "" when there is
// nothing usable.
func (h History) Render() string {
	var sb strings.Builder
	for _, ex := range h.Exchanges() {
		sb.WriteString("User: " + ex.Question + "\n")
		sb.WriteString("Assistant: " + ex.Answer + "\n\n")
	}
	return strings.TrimSpace(sb.String())
}
