package exam

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pavelanni/docquiz/internal/model"
)

// RepairJSON extracts the first JSON value from raw model output. Code
// fences and surrounding prose are dropped. If the value is cut off, the
// text is truncated at the last point where no array item is left half
// written, and the containers still open there are closed. An item whose
// own closing brace never arrived is dropped whole.
func RepairJSON(raw string) (string, error) {
	s := stripFences(raw)
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", errors.New("no JSON value found")
	}

	var (
		stack      []byte
		items      []bool // frame is an object inside an array
		openItems  int
		inString   bool
		escaped    bool
		cut        = -1
		stackAtCut []byte
	)
	mark := func(pos int) {
		cut = pos
		stackAtCut = append(stackAtCut[:0], stack...)
	}
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			item := ch == '{' && len(stack) > 0 && stack[len(stack)-1] == ']'
			if ch == '{' {
				stack = append(stack, '}')
			} else {
				stack = append(stack, ']')
			}
			items = append(items, item)
			if item {
				openItems++
			}
			if ch == '[' && openItems == 0 {
				mark(i + 1)
			}
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != ch {
				return "", fmt.Errorf("unbalanced %q at offset %d", ch, i)
			}
			if items[len(items)-1] {
				openItems--
			}
			stack = stack[:len(stack)-1]
			items = items[:len(items)-1]
			if len(stack) == 0 {
				return s[start : i+1], nil
			}
			if openItems == 0 {
				mark(i + 1)
			}
		}
	}

	if cut < 0 {
		return "", errors.New("truncated before any complete element")
	}
	var sb strings.Builder
	sb.WriteString(s[start:cut])
	for i := len(stackAtCut) - 1; i >= 0; i-- {
		sb.WriteByte(stackAtCut[i])
	}
	return sb.String(), nil
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	open := strings.Index(s, "```")
	if open < 0 {
		return s
	}
	body := s[open+3:]
	// Drop the language tag line, e.g. ```json.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// decodeObject parses raw as a JSON object, with one repair attempt.
func decodeObject(raw string) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &obj); err == nil && obj != nil {
		return obj, nil
	}

	repaired, err := RepairJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedGeneration, err)
	}
	obj = nil
	if err := json.Unmarshal([]byte(repaired), &obj); err != nil || obj == nil {
		if err == nil {
			err = errors.New("top-level value is not an object")
		}
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedGeneration, err)
	}
	return obj, nil
}
