// Package document supplies the full text of an ingested document.
package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pavelanni/docquiz/internal/model"
)

// Default sampling parameters for documents without a cached text.
const (
	DefaultSampleQuery    = "general summary of the key concepts, main topics and important details"
	DefaultSampleChunks   = 15
	DefaultMaxCachedRunes = 30000
	DefaultMaxIndexRunes  = 20000
	chunkSeparator        = "\n\n---\n\n"
)

// TextCache stores full document texts. GetText returns "" and a nil error
// when nothing is cached.
type TextCache interface {
	GetText(ctx context.Context, documentID string) (string, error)
	PutText(ctx context.Context, documentID, text string) error
}

// Sampler returns k passages of a document relevant to query.
type Sampler interface {
	RetrieveK(ctx context.Context, documentID, query string, k int) ([]model.Passage, error)
}

// Options tunes the fallback to the vector index.
type Options struct {
	SampleQuery    string
	SampleChunks   int
	MaxCachedRunes int
	MaxIndexRunes  int
}

// Provider reads a document's text from the cache, falling back to a sample
// of its indexed passages.
type Provider struct {
	cache   TextCache
	sampler Sampler
	opts    Options
}

// NewProvider creates a provider. cache may be nil.
func NewProvider(cache TextCache, sampler Sampler, opts Options) *Provider {
	if opts.SampleQuery == "" {
		opts.SampleQuery = DefaultSampleQuery
	}
	if opts.SampleChunks <= 0 {
		opts.SampleChunks = DefaultSampleChunks
	}
	if opts.MaxCachedRunes <= 0 {
		opts.MaxCachedRunes = DefaultMaxCachedRunes
	}
	if opts.MaxIndexRunes <= 0 {
		opts.MaxIndexRunes = DefaultMaxIndexRunes
	}
	return &Provider{cache: cache, sampler: sampler, opts: opts}
}

// GetText returns the document text. A cache failure is logged and the
// index is used instead.
func (p *Provider) GetText(ctx context.Context, documentID string) (string, error) {
	if p.cache != nil {
		text, err := p.cache.GetText(ctx, documentID)
		switch {
		case err != nil:
			slog.Warn("text cache lookup failed", "document_id", documentID, "error", err)
		case strings.TrimSpace(text) != "":
			slog.Debug("using cached document text", "document_id", documentID, "runes", utf8.RuneCountInString(text))
			return truncateRunes(text, p.opts.MaxCachedRunes), nil
		}
	}

	passages, err := p.sampler.RetrieveK(ctx, documentID, p.opts.SampleQuery, p.opts.SampleChunks)
	if err != nil {
		if errors.Is(err, model.ErrDocumentNotIndexed) {
			return "", err
		}
		return "", fmt.Errorf("sample document %s: %w", documentID, err)
	}

	parts := make([]string, 0, len(passages))
	for _, psg := range passages {
		if t := strings.TrimSpace(psg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("document %s has no passages: %w", documentID, model.ErrInsufficientContent)
	}
	slog.Debug("using sampled document text", "document_id", documentID, "chunks", len(parts))
	return truncateRunes(strings.Join(parts, chunkSeparator), p.opts.MaxIndexRunes), nil
}

// Put stores the full text of a document in the cache.
func (p *Provider) Put(ctx context.Context, documentID, text string) error {
	if p.cache == nil {
		return errors.New("no text cache configured")
	}
	return p.cache.PutText(ctx, documentID, text)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
