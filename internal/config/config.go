// Package config loads the docquiz settings from a viper instance fed by
// cobra flags, DOCQUIZ_* environment variables and an optional config file.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pavelanni/docquiz/internal/document"
	"github.com/pavelanni/docquiz/internal/llm"
	"github.com/pavelanni/docquiz/internal/retriever"
	"github.com/pavelanni/docquiz/internal/validation"
)

// Config holds every tunable of the service and the CLI.
type Config struct {
	Addr string `mapstructure:"addr" validate:"required"`
	DB   string `mapstructure:"db" validate:"required"`
	// Index is the chromem persistence directory; empty keeps the index in memory.
	Index string `mapstructure:"index"`
	Lang  string `mapstructure:"lang" validate:"required,oneof=en es"`

	LLMURL     string `mapstructure:"llm-url" validate:"required,url"`
	LLMKey     string `mapstructure:"llm-key"`
	LLMModel   string `mapstructure:"llm-model" validate:"required"`
	EmbedModel string `mapstructure:"embed-model"`
	Embedding  string `mapstructure:"embedding" validate:"oneof=openai hash"`
	HashDims   int    `mapstructure:"hash-dims" validate:"gte=8,lte=4096"`
	GeminiURL  string `mapstructure:"gemini-url" validate:"omitempty,url"`
	GeminiKey  string `mapstructure:"gemini-key"`
	MaxRetries uint   `mapstructure:"max-retries" validate:"lte=10"`

	CacheBackend string        `mapstructure:"cache-backend" validate:"oneof=sqlite redis"`
	RedisAddr    string        `mapstructure:"redis-addr" validate:"required_if=CacheBackend redis"`
	RedisTTL     time.Duration `mapstructure:"redis-ttl" validate:"gte=0"`

	TopK          int    `mapstructure:"top-k" validate:"gte=1,lte=50"`
	SampleQuery   string `mapstructure:"sample-query"`
	SampleChunks  int    `mapstructure:"sample-chunks" validate:"gte=1,lte=100"`
	MaxTextCache  int    `mapstructure:"max-text-cache" validate:"gte=1000"`
	MaxTextIndex  int    `mapstructure:"max-text-index" validate:"gte=1000"`
	MinTextLength int    `mapstructure:"min-text-length" validate:"gte=0"`

	CondenseTemperature float32 `mapstructure:"condense-temperature" validate:"gte=0,lte=2"`
	AnswerTemperature   float32 `mapstructure:"answer-temperature" validate:"gte=0,lte=2"`
	ExamTemperature     float32 `mapstructure:"exam-temperature" validate:"gte=0,lte=2"`
	RegenTemperature    float32 `mapstructure:"regen-temperature" validate:"gte=0,lte=2"`
	ExamMaxTokens       int     `mapstructure:"exam-max-tokens" validate:"gte=0"`

	IndexTimeout time.Duration `mapstructure:"index-timeout" validate:"gt=0"`
	ChatTimeout  time.Duration `mapstructure:"chat-timeout" validate:"gt=0"`
	ExamTimeout  time.Duration `mapstructure:"exam-timeout" validate:"gtefield=ChatTimeout"`
}

// RegisterFlags adds every Config key with its default to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("addr", "a", ":8080", "HTTP listen address")
	fs.String("db", "docquiz.db", "SQLite database path")
	fs.String("index", "", "Vector index directory (empty = in memory)")
	fs.StringP("lang", "l", "en", "Default response language (en, es)")

	fs.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	fs.String("llm-key", "ollama", "API key for the OpenAI-compatible endpoint")
	fs.String("llm-model", "llama3.2", "Default chat model; gemini-* models go to Gemini")
	fs.String("embed-model", "nomic-embed-text", "Embedding model name")
	fs.String("embedding", "openai", "Embedding backend (openai, hash)")
	fs.Int("hash-dims", 256, "Dimensions of the hash embedding")
	fs.String("gemini-url", "", "Gemini API base URL (empty = public endpoint)")
	fs.String("gemini-key", "", "Gemini API key; enables gemini-* models")
	fs.Uint("max-retries", llm.DefaultMaxRetryAttempts, "Retries for transient model transport failures")

	fs.String("cache-backend", "sqlite", "Document text cache (sqlite, redis)")
	fs.String("redis-addr", "", "Redis address for the redis cache backend")
	fs.Duration("redis-ttl", 24*time.Hour, "Redis entry lifetime (0 = no expiry)")

	fs.Int("top-k", retriever.DefaultTopK, "Passages retrieved per chat question")
	fs.String("sample-query", document.DefaultSampleQuery, "Query used to sample uncached documents")
	fs.Int("sample-chunks", document.DefaultSampleChunks, "Passages sampled for uncached documents")
	fs.Int("max-text-cache", document.DefaultMaxCachedRunes, "Maximum characters of cached document text")
	fs.Int("max-text-index", document.DefaultMaxIndexRunes, "Maximum characters of sampled document text")
	fs.Int("min-text-length", 500, "Minimum document characters for exam generation")

	fs.Float32("condense-temperature", 0, "Temperature of the question condenser")
	fs.Float32("answer-temperature", 0.3, "Temperature of the answer synthesizer")
	fs.Float32("exam-temperature", 0.7, "Temperature of exam generation")
	fs.Float32("regen-temperature", 0.8, "Temperature of question regeneration")
	fs.Int("exam-max-tokens", 8000, "Maximum output tokens of exam generation (0 = provider default)")

	fs.Duration("index-timeout", 15*time.Second, "Timeout of vector index calls")
	fs.Duration("chat-timeout", 60*time.Second, "Timeout of chat model calls")
	fs.Duration("exam-timeout", 3*time.Minute, "Timeout of exam model calls")
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	val, err := validation.New("mapstructure")
	if err != nil {
		return nil, fmt.Errorf("create validator: %w", err)
	}
	if err := val.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
