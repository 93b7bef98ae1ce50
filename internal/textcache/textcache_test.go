package textcache

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	texts map[string]string
	err   error
	puts  int
}

func newMem() *memCache { return &memCache{texts: map[string]string{}} }

func (m *memCache) GetText(_ context.Context, id string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.texts[id], nil
}

func (m *memCache) PutText(_ context.Context, id, text string) error {
	m.puts++
	if m.err != nil {
		return m.err
	}
	m.texts[id] = text
	return nil
}

func (m *memCache) DeleteText(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	delete(m.texts, id)
	return nil
}

func TestTieredReadThrough(t *testing.T) {
	ctx := context.Background()
	fast, durable := newMem(), newMem()
	durable.texts["doc"] = "durable text"
	c := NewTiered(fast, durable)

	text, err := c.GetText(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, "durable text", text)
	assert.Equal(t, "durable text", fast.texts["doc"], "fast tier should be filled")

	durable.texts["doc"] = "changed"
	text, err = c.GetText(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, "durable text", text, "fast tier should answer first")
}

func TestTieredMiss(t *testing.T) {
	c := NewTiered(newMem(), newMem())
	text, err := c.GetText(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestTieredFastFailure(t *testing.T) {
	ctx := context.Background()
	fast, durable := newMem(), newMem()
	fast.err = errors.New("connection refused")
	c := NewTiered(fast, durable)

	require.NoError(t, c.PutText(ctx, "doc", "text"))
	text, err := c.GetText(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, "text", text)

	require.NoError(t, c.DeleteText(ctx, "doc"))
	assert.Empty(t, durable.texts)
}

func TestTieredDurableFailure(t *testing.T) {
	fast, durable := newMem(), newMem()
	durable.err = errors.New("disk full")
	c := NewTiered(fast, durable)

	assert.Error(t, c.PutText(context.Background(), "doc", "text"))
	assert.Zero(t, fast.puts)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("DOCQUIZ_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("DOCQUIZ_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	r, err := NewRedis(ctx, addr, 0)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	id := "textcache-test"
	require.NoError(t, r.DeleteText(ctx, id))

	text, err := r.GetText(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, text)

	require.NoError(t, r.PutText(ctx, id, "cached"))
	text, err = r.GetText(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "cached", text)
	require.NoError(t, r.DeleteText(ctx, id))
}

func TestNewRedisUnreachable(t *testing.T) {
	_, err := NewRedis(context.Background(), "127.0.0.1:1", 0)
	assert.Error(t, err)
}
