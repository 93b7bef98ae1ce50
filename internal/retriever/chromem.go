package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/pavelanni/docquiz/internal/model"
)

// Metadata keys stored with every passage.
const (
	metaDocumentID = "document_id"
	metaChunkIndex = "chunk_index"
	metaSourceFile = "source_file"
)

// Chromem is an Index backed by an in-process chromem-go database. Each
// namespace is one collection.
type Chromem struct {
	db    *chromem.DB
	embed chromem.EmbeddingFunc
}

// NewChromem wraps an open database. embed must match the function the
// collections were populated with.
func NewChromem(db *chromem.DB, embed chromem.EmbeddingFunc) *Chromem {
	return &Chromem{db: db, embed: embed}
}

// OpenChromem opens a persistent database at path, or an in-memory one when
// path is empty.
func OpenChromem(path string, embed chromem.EmbeddingFunc) (*Chromem, error) {
	if path == "" {
		return NewChromem(chromem.NewDB(), embed), nil
	}
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open vector db %s: %w", path, err)
	}
	slog.Info("opened vector db", "path", path, "collections", len(db.ListCollections()))
	return NewChromem(db, embed), nil
}

// SimilaritySearch returns up to k passages of namespace ordered by similarity.
func (c *Chromem) SimilaritySearch(ctx context.Context, namespace, query string, k int) ([]model.Passage, error) {
	col := c.db.GetCollection(namespace, c.embed)
	if col == nil || col.Count() == 0 {
		return nil, fmt.Errorf("namespace %s: %w", namespace, model.ErrDocumentNotIndexed)
	}
	// chromem rejects n larger than the collection.
	k = min(k, col.Count())
	if k <= 0 {
		return nil, nil
	}

	results, err := col.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", namespace, err)
	}

	passages := make([]model.Passage, 0, len(results))
	for _, r := range results {
		idx, _ := strconv.Atoi(r.Metadata[metaChunkIndex])
		passages = append(passages, model.Passage{
			Text:       r.Content,
			DocumentID: r.Metadata[metaDocumentID],
			ChunkIndex: idx,
			SourceFile: r.Metadata[metaSourceFile],
			Similarity: r.Similarity,
		})
	}
	return passages, nil
}

// DeleteNamespace drops the namespace and reports whether it existed.
func (c *Chromem) DeleteNamespace(_ context.Context, namespace string) (bool, error) {
	if c.db.GetCollection(namespace, c.embed) == nil {
		return false, nil
	}
	if err := c.db.DeleteCollection(namespace); err != nil {
		return false, fmt.Errorf("delete namespace %s: %w", namespace, err)
	}
	return true, nil
}

// AddPassages embeds and stores passages in namespace, creating it if needed.
// Chunking happens upstream.
func (c *Chromem) AddPassages(ctx context.Context, namespace string, passages []model.Passage) error {
	col, err := c.db.GetOrCreateCollection(namespace, nil, c.embed)
	if err != nil {
		return fmt.Errorf("collection %s: %w", namespace, err)
	}

	docs := make([]chromem.Document, 0, len(passages))
	for _, p := range passages {
		docs = append(docs, chromem.Document{
			ID: p.DocumentID + ":" + strconv.Itoa(p.ChunkIndex),
			Metadata: map[string]string{
				metaDocumentID: p.DocumentID,
				metaChunkIndex: strconv.Itoa(p.ChunkIndex),
				metaSourceFile: p.SourceFile,
			},
			Content: p.Text,
		})
	}
	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add passages to %s: %w", namespace, err)
	}
	slog.Info("indexed passages", "namespace", namespace, "count", len(docs))
	return nil
}
