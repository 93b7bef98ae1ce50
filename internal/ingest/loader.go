// Package ingest loads pre-chunked document passages into the vector index.
// Chunking and text extraction happen upstream; a passage file carries the
// finished chunks and optionally the full text.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavelanni/docquiz/internal/model"
	"github.com/pavelanni/docquiz/internal/retriever"
	"github.com/pavelanni/docquiz/internal/validation"
)

// File is the JSON layout of a passage file.
type File struct {
	DocumentID string        `json:"document_id" validate:"required"`
	Text       string        `json:"text,omitempty"`
	Passages   []FilePassage `json:"passages" validate:"required,min=1,dive"`
}

// FilePassage is one chunk of a passage file. A missing ChunkIndex takes
// the passage position.
type FilePassage struct {
	Text       string `json:"text" validate:"required"`
	ChunkIndex *int   `json:"chunk_index,omitempty" validate:"omitempty,gte=0"`
	SourceFile string `json:"source_file,omitempty"`
}

// PassageIndexer stores embedded passages under a namespace.
type PassageIndexer interface {
	AddPassages(ctx context.Context, namespace string, passages []model.Passage) error
}

// TextStore keeps the full text of a document.
type TextStore interface {
	PutText(ctx context.Context, documentID, text string) error
}

// HashStore remembers the content hash of every loaded file.
type HashStore interface {
	GetImportedFileHash(ctx context.Context, path string) (string, error)
	SetImportedFileHash(ctx context.Context, path, hash string) error
}

// Result describes one Load call.
type Result struct {
	DocumentID string `json:"document_id"`
	Passages   int    `json:"passages"`
	TextStored bool   `json:"text_stored"`
	Unchanged  bool   `json:"unchanged"`
}

// Loader imports passage files into the index and the text store.
type Loader struct {
	index    PassageIndexer
	texts    TextStore
	hashes   HashStore
	validate *validation.Validator
}

// NewLoader creates a loader. texts and hashes may be nil.
func NewLoader(index PassageIndexer, texts TextStore, hashes HashStore) (*Loader, error) {
	v, err := validation.New("json")
	if err != nil {
		return nil, err
	}
	return &Loader{index: index, texts: texts, hashes: hashes, validate: v}, nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Load indexes the passage file data read from name. A file whose content
// hash matches the last load of name is skipped.
func (l *Loader) Load(ctx context.Context, name string, data []byte) (Result, error) {
	hash := sha256sum(data)
	if l.hashes != nil {
		stored, err := l.hashes.GetImportedFileHash(ctx, name)
		if err != nil {
			return Result{}, fmt.Errorf("check import status: %w", err)
		}
		if stored == hash {
			slog.Info("passage file unchanged, skipping", "path", name)
			return Result{Unchanged: true}, nil
		}
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return Result{}, fmt.Errorf("%w: parse %s: %s", model.ErrInvalidRequest, name, err)
	}
	if err := l.validate.Struct(f); err != nil {
		return Result{}, fmt.Errorf("%w: %s: %s", model.ErrInvalidRequest, name, err)
	}

	passages := make([]model.Passage, 0, len(f.Passages))
	for i, p := range f.Passages {
		idx := i
		if p.ChunkIndex != nil {
			idx = *p.ChunkIndex
		}
		passages = append(passages, model.Passage{
			Text:       strings.TrimSpace(p.Text),
			DocumentID: f.DocumentID,
			ChunkIndex: idx,
			SourceFile: p.SourceFile,
		})
	}
	if err := l.index.AddPassages(ctx, retriever.Namespace(f.DocumentID), passages); err != nil {
		return Result{}, err
	}

	res := Result{DocumentID: f.DocumentID, Passages: len(passages)}
	if l.texts != nil && strings.TrimSpace(f.Text) != "" {
		if err := l.texts.PutText(ctx, f.DocumentID, f.Text); err != nil {
			return res, fmt.Errorf("store text of %s: %w", f.DocumentID, err)
		}
		res.TextStored = true
	}

	if l.hashes != nil {
		if err := l.hashes.SetImportedFileHash(ctx, name, hash); err != nil {
			slog.Error("failed to record import", "path", name, "error", err)
		}
	}
	slog.Info("loaded passage file", "path", name, "document_id", f.DocumentID, "passages", len(passages), "text", res.TextStored)
	return res, nil
}
