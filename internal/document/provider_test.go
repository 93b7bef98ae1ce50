package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/docquiz/internal/model"
)

type mapCache struct {
	texts map[string]string
	err   error
}

func (m *mapCache) GetText(_ context.Context, id string) (string, error) {
	return m.texts[id], m.err
}

func (m *mapCache) PutText(_ context.Context, id, text string) error {
	if m.texts == nil {
		m.texts = map[string]string{}
	}
	m.texts[id] = text
	return nil
}

type fakeSampler struct {
	passages []model.Passage
	err      error
	calls    int
	gotK     int
}

func (f *fakeSampler) RetrieveK(_ context.Context, _, _ string, k int) ([]model.Passage, error) {
	f.calls++
	f.gotK = k
	return f.passages, f.err
}

func TestGetTextFromCache(t *testing.T) {
	cache := &mapCache{texts: map[string]string{"doc": "cached full text"}}
	sampler := &fakeSampler{}

	text, err := NewProvider(cache, sampler, Options{}).GetText(context.Background(), "doc")
	require.NoError(t, err)
	assert.Equal(t, "cached full text", text)
	assert.Zero(t, sampler.calls)
}

func TestGetTextCacheTruncated(t *testing.T) {
	cache := &mapCache{texts: map[string]string{"doc": strings.Repeat("é", 20)}}
	text, err := NewProvider(cache, &fakeSampler{}, Options{MaxCachedRunes: 5}).GetText(context.Background(), "doc")
	require.NoError(t, err)
	assert.Equal(t, "ééééé", text)
}

func TestGetTextFallsBackToIndex(t *testing.T) {
	sampler := &fakeSampler{passages: []model.Passage{{Text: "one"}, {Text: "  "}, {Text: "two"}}}

	for name, cache := range map[string]TextCache{
		"no cache":      nil,
		"cache miss":    &mapCache{},
		"cache failure": &mapCache{err: errors.New("redis down")},
	} {
		t.Run(name, func(t *testing.T) {
			text, err := NewProvider(cache, sampler, Options{SampleChunks: 7}).GetText(context.Background(), "doc")
			require.NoError(t, err)
			assert.Equal(t, "one\n\n---\n\ntwo", text)
			assert.Equal(t, 7, sampler.gotK)
		})
	}
}

func TestGetTextErrors(t *testing.T) {
	_, err := NewProvider(nil, &fakeSampler{err: fmt.Errorf("x: %w", model.ErrDocumentNotIndexed)}, Options{}).GetText(context.Background(), "doc")
	assert.ErrorIs(t, err, model.ErrDocumentNotIndexed)

	_, err = NewProvider(nil, &fakeSampler{}, Options{}).GetText(context.Background(), "doc")
	assert.ErrorIs(t, err, model.ErrInsufficientContent)
}

func TestPut(t *testing.T) {
	cache := &mapCache{}
	p := NewProvider(cache, &fakeSampler{}, Options{})
	require.NoError(t, p.Put(context.Background(), "doc", "text"))
	assert.Equal(t, "text", cache.texts["doc"])

	assert.Error(t, NewProvider(nil, &fakeSampler{}, Options{}).Put(context.Background(), "doc", "text"))
}
