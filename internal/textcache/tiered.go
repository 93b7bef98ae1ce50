package textcache

import (
	"context"
	"log/slog"
	"strings"
)

// Cache is the read/write surface shared by every text backend.
type Cache interface {
	GetText(ctx context.Context, documentID string) (string, error)
	PutText(ctx context.Context, documentID, text string) error
	DeleteText(ctx context.Context, documentID string) error
}

// Tiered reads through a fast cache to a durable store. Failures of the fast
// tier are logged and never fail the call.
type Tiered struct {
	fast    Cache
	durable Cache
}

// NewTiered layers fast over durable.
func NewTiered(fast, durable Cache) *Tiered {
	return &Tiered{fast: fast, durable: durable}
}

// GetText reads fast first and refills it from durable on a miss.
func (t *Tiered) GetText(ctx context.Context, documentID string) (string, error) {
	text, err := t.fast.GetText(ctx, documentID)
	if err != nil {
		slog.Warn("fast text cache read failed", "document_id", documentID, "error", err)
	} else if strings.TrimSpace(text) != "" {
		return text, nil
	}

	text, err = t.durable.GetText(ctx, documentID)
	if err != nil || text == "" {
		return text, err
	}
	if err := t.fast.PutText(ctx, documentID, text); err != nil {
		slog.Warn("fast text cache fill failed", "document_id", documentID, "error", err)
	}
	return text, nil
}

// PutText writes durable first. Only a durable failure is returned.
func (t *Tiered) PutText(ctx context.Context, documentID, text string) error {
	if err := t.durable.PutText(ctx, documentID, text); err != nil {
		return err
	}
	if err := t.fast.PutText(ctx, documentID, text); err != nil {
		slog.Warn("fast text cache write failed", "document_id", documentID, "error", err)
	}
	return nil
}

// DeleteText removes the text from both tiers.
func (t *Tiered) DeleteText(ctx context.Context, documentID string) error {
	if err := t.fast.DeleteText(ctx, documentID); err != nil {
		slog.Warn("fast text cache delete failed", "document_id", documentID, "error", err)
	}
	return t.durable.DeleteText(ctx, documentID)
}
