package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, args ...string) *viper.Viper {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	v := viper.New()
	require.NoError(t, v.BindPFlags(fs))
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "en", cfg.Lang)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, 500, cfg.MinTextLength)
	assert.Equal(t, "sqlite", cfg.CacheBackend)
	assert.InDelta(t, 0.3, cfg.AnswerTemperature, 1e-6)
	assert.Equal(t, 3*time.Minute, cfg.ExamTimeout)
	assert.Equal(t, uint(2), cfg.MaxRetries)
}

func TestLoadOverrides(t *testing.T) {
	v := newViper(t, "--lang=es", "--top-k=12", "--embedding=hash", "--exam-timeout=5m")
	v.Set("llm-model", "gemini-2.0-flash")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "es", cfg.Lang)
	assert.Equal(t, 12, cfg.TopK)
	assert.Equal(t, "hash", cfg.Embedding)
	assert.Equal(t, 5*time.Minute, cfg.ExamTimeout)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLMModel)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unsupported language", []string{"--lang=ru"}, "lang"},
		{"top-k too large", []string{"--top-k=51"}, "top-k"},
		{"bad embedding backend", []string{"--embedding=bert"}, "embedding"},
		{"redis without address", []string{"--cache-backend=redis"}, "redis-addr"},
		{"exam timeout shorter than chat", []string{"--exam-timeout=10s"}, "exam-timeout"},
		{"bad llm url", []string{"--llm-url=not a url"}, "llm-url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newViper(t, tt.args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
