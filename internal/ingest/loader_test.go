package ingest

import (
	"context"
	"testing"

	chromem "github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/docquiz/internal/model"
	"github.com/pavelanni/docquiz/internal/retriever"
	"github.com/pavelanni/docquiz/internal/store"
)

const passageFile = `{
  "document_id": "go-tour",
  "text": "Go is a language. Goroutines are cheap.",
  "passages": [
    {"text": "Go is a language.", "source_file": "tour.pdf"},
    {"text": "Goroutines are cheap.", "chunk_index": 7}
  ]
}`

type recordingIndex struct {
	namespace string
	passages  []model.Passage
	calls     int
}

func (r *recordingIndex) AddPassages(_ context.Context, ns string, p []model.Passage) error {
	r.calls++
	r.namespace, r.passages = ns, p
	return nil
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	idx := &recordingIndex{}
	st := newStore(t)
	l, err := NewLoader(idx, st, st)
	require.NoError(t, err)

	res, err := l.Load(ctx, "tour.json", []byte(passageFile))
	require.NoError(t, err)
	assert.Equal(t, Result{DocumentID: "go-tour", Passages: 2, TextStored: true}, res)
	assert.Equal(t, retriever.Namespace("go-tour"), idx.namespace)
	assert.Equal(t, []model.Passage{
		{Text: "Go is a language.", DocumentID: "go-tour", ChunkIndex: 0, SourceFile: "tour.pdf"},
		{Text: "Goroutines are cheap.", DocumentID: "go-tour", ChunkIndex: 7},
	}, idx.passages)

	text, err := st.GetText(ctx, "go-tour")
	require.NoError(t, err)
	assert.Equal(t, "Go is a language. Goroutines are cheap.", text)

	res, err = l.Load(ctx, "tour.json", []byte(passageFile))
	require.NoError(t, err)
	assert.True(t, res.Unchanged)
	assert.Equal(t, 1, idx.calls, "unchanged file must not be indexed again")
}

func TestLoadInvalid(t *testing.T) {
	l, err := NewLoader(&recordingIndex{}, nil, nil)
	require.NoError(t, err)

	for name, data := range map[string]string{
		"not json":      `{"document_id":`,
		"no document":   `{"passages":[{"text":"x"}]}`,
		"no passages":   `{"document_id":"d","passages":[]}`,
		"empty passage": `{"document_id":"d","passages":[{"text":""}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := l.Load(context.Background(), name, []byte(data))
			assert.ErrorIs(t, err, model.ErrInvalidRequest)
		})
	}
}

func TestLoadIntoChromem(t *testing.T) {
	ctx := context.Background()
	index := retriever.NewChromem(chromem.NewDB(), retriever.HashEmbedding(256))
	l, err := NewLoader(index, nil, nil)
	require.NoError(t, err)

	_, err = l.Load(ctx, "tour.json", []byte(passageFile))
	require.NoError(t, err)

	got, err := retriever.New(index, 1, 0).Retrieve(ctx, "go-tour", "goroutines cheap")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Goroutines are cheap.", got[0].Text)
}
