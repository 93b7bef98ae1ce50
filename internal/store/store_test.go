package store

import (
	"context"
	"testing"

	"github.com/pavelanni/docquiz/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDocumentText(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	text, err := s.GetText(ctx, "doc-1")
	if err != nil {
		t.Fatalf("GetText on empty store: %v", err)
	}
	if text != "" {
		t.Errorf("expected empty text, got %q", text)
	}

	if err := s.PutText(ctx, "doc-1", "first version"); err != nil {
		t.Fatalf("PutText: %v", err)
	}
	if err := s.PutText(ctx, "doc-1", "second version"); err != nil {
		t.Fatalf("PutText overwrite: %v", err)
	}
	text, err = s.GetText(ctx, "doc-1")
	if err != nil {
		t.Fatalf("GetText: %v", err)
	}
	if text != "second version" {
		t.Errorf("expected %q, got %q", "second version", text)
	}

	if err := s.DeleteText(ctx, "doc-1"); err != nil {
		t.Fatalf("DeleteText: %v", err)
	}
	text, _ = s.GetText(ctx, "doc-1")
	if text != "" {
		t.Errorf("expected text to be deleted, got %q", text)
	}
}

func TestFeedback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	list, err := s.ListFeedback(ctx, "doc-1")
	if err != nil {
		t.Fatalf("ListFeedback on empty store: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected no feedback, got %d", len(list))
	}

	first, err := s.InsertFeedback(ctx, model.Feedback{DocumentID: "doc-1", Query: "What is Go?", Answer: "A language.", Helpful: true})
	if err != nil {
		t.Fatalf("InsertFeedback: %v", err)
	}
	if first.ID == 0 || first.CreatedAt.IsZero() {
		t.Errorf("expected ID and CreatedAt to be set, got %+v", first)
	}
	if _, err := s.InsertFeedback(ctx, model.Feedback{DocumentID: "doc-1", Query: "Who made Go?", Correction: "Google"}); err != nil {
		t.Fatalf("InsertFeedback: %v", err)
	}
	if _, err := s.InsertFeedback(ctx, model.Feedback{DocumentID: "doc-2", Query: "Other"}); err != nil {
		t.Fatalf("InsertFeedback: %v", err)
	}

	list, err = s.ListFeedback(ctx, "doc-1")
	if err != nil {
		t.Fatalf("ListFeedback: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 feedback records, got %d", len(list))
	}
	if list[0].Query != "What is Go?" || !list[0].Helpful {
		t.Errorf("unexpected first record: %+v", list[0])
	}
	if list[1].Helpful || list[1].Correction != "Google" {
		t.Errorf("unexpected second record: %+v", list[1])
	}
}

func TestImportedFileHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hash, err := s.GetImportedFileHash(ctx, "passages/go.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "" {
		t.Errorf("expected empty hash, got %q", hash)
	}

	if err := s.SetImportedFileHash(ctx, "passages/go.json", "abc123"); err != nil {
		t.Fatalf("SetImportedFileHash: %v", err)
	}
	hash, _ = s.GetImportedFileHash(ctx, "passages/go.json")
	if hash != "abc123" {
		t.Errorf("expected abc123, got %q", hash)
	}

	if err := s.SetImportedFileHash(ctx, "passages/go.json", "def456"); err != nil {
		t.Fatalf("SetImportedFileHash update: %v", err)
	}
	hash, _ = s.GetImportedFileHash(ctx, "passages/go.json")
	if hash != "def456" {
		t.Errorf("expected def456, got %q", hash)
	}
}
