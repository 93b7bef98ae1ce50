package i18n

import (
	"context"
	"strings"

	"github.com/pavelanni/docquiz/internal/model"
)

var errorMessageIDs = map[string]string{
	model.CodeDocumentNotIndexed:  "ErrDocumentNotIndexed",
	model.CodeInsufficientContent: "ErrInsufficientContentEmpty",
	model.CodeRateLimited:         "ErrRateLimited",
	model.CodeMalformedGeneration: "ErrMalformedGeneration",
	model.CodeModelRefused:        "ErrModelRefused",
	model.CodeValidationSkipped:   "ErrValidationSkipped",
	model.CodeInvalidRequest:      "ErrInvalidRequestGeneric",
	model.CodeUnexpected:          "ErrUnexpected",
}

// ErrorMessage returns the localized user-facing message for err.
func ErrorMessage(ctx context.Context, err error) string {
	code := model.ErrorCode(err)
	if code == model.CodeInvalidRequest {
		return Td(ctx, "ErrInvalidRequest", map[string]any{"Detail": invalidDetail(err)})
	}
	return CodeMessage(ctx, code)
}

// CodeMessage returns the localized message for an error code.
func CodeMessage(ctx context.Context, code string) string {
	id, ok := errorMessageIDs[code]
	if !ok {
		id = "ErrUnexpected"
	}
	return T(ctx, id)
}

// invalidDetail drops the "invalid request" prefix from err's message.
func invalidDetail(err error) string {
	msg := strings.TrimPrefix(err.Error(), model.ErrInvalidRequest.Error())
	return strings.TrimLeft(msg, ": \n")
}
