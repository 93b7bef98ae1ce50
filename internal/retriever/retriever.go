// Package retriever finds the passages of one document that are most similar
// to a query.
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/docquiz/internal/model"
)

// DefaultTopK is the number of passages returned per query.
const DefaultTopK = 5

// Index is a vector index partitioned into namespaces.
type Index interface {
	SimilaritySearch(ctx context.Context, namespace, query string, k int) ([]model.Passage, error)
	DeleteNamespace(ctx context.Context, namespace string) (bool, error)
}

// Namespace returns the index namespace that holds a document's passages.
// The mapping is one-to-one; chromem accepts any collection name, so the ID
// is kept verbatim, case included.
func Namespace(documentID string) string {
	return "doc_" + documentID
}

// Retriever queries one document's namespace with a bounded time budget.
type Retriever struct {
	index   Index
	topK    int
	timeout time.Duration
}

// New creates a retriever. Non-positive topK falls back to DefaultTopK;
// zero timeout means no extra deadline.
func New(index Index, topK int, timeout time.Duration) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{index: index, topK: topK, timeout: timeout}
}

// Retrieve returns the top-K passages of documentID for query.
func (r *Retriever) Retrieve(ctx context.Context, documentID, query string) ([]model.Passage, error) {
	return r.RetrieveK(ctx, documentID, query, r.topK)
}

// RetrieveK is Retrieve with an explicit passage count.
func (r *Retriever) RetrieveK(ctx context.Context, documentID, query string, k int) ([]model.Passage, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	ns := Namespace(documentID)
	passages, err := r.index.SimilaritySearch(ctx, ns, query, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve from %s: %w", ns, err)
	}
	slog.Debug("retrieved passages", "namespace", ns, "k", k, "count", len(passages))
	return passages, nil
}

// Delete removes the document's namespace. It reports false if none existed.
func (r *Retriever) Delete(ctx context.Context, documentID string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.index.DeleteNamespace(ctx, Namespace(documentID))
}

func (r *Retriever) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}
