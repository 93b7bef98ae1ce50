package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"github.com/pavelanni/docquiz/internal/chat"
	"github.com/pavelanni/docquiz/internal/config"
	"github.com/pavelanni/docquiz/internal/document"
	"github.com/pavelanni/docquiz/internal/exam"
	appI18n "github.com/pavelanni/docquiz/internal/i18n"
	"github.com/pavelanni/docquiz/internal/ingest"
	"github.com/pavelanni/docquiz/internal/llm"
	"github.com/pavelanni/docquiz/internal/llm/gemini"
	"github.com/pavelanni/docquiz/internal/retriever"
	"github.com/pavelanni/docquiz/internal/service"
	"github.com/pavelanni/docquiz/internal/store"
	"github.com/pavelanni/docquiz/internal/textcache"
)

// app is the wired component graph shared by every command.
type app struct {
	svc    *service.Service
	loader *ingest.Loader

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	db, err := store.New(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, db.Close)

	var texts textcache.Cache = db
	if cfg.CacheBackend == "redis" {
		rds, err := textcache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisTTL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, rds.Close)
		texts = textcache.NewTiered(rds, db)
	}

	openaiClient := llm.New(cfg.LLMURL, cfg.LLMKey, cfg.LLMModel, cfg.EmbedModel)
	var embed chromem.EmbeddingFunc = openaiClient.Embed
	if cfg.Embedding == "hash" {
		embed = retriever.HashEmbedding(cfg.HashDims)
	}

	index, err := retriever.OpenChromem(cfg.Index, embed)
	if err != nil {
		return nil, fmt.Errorf("open vector index: %w", err)
	}

	router := llm.NewRouter(llm.WithRetry(openaiClient, cfg.MaxRetries), cfg.LLMModel)
	if cfg.GeminiKey != "" {
		gem := gemini.NewClient(cfg.GeminiURL, cfg.GeminiKey, geminiDefault(cfg.LLMModel))
		a.closers = append(a.closers, gem.Close)
		router.Handle("gemini-", llm.WithRetry(gem, cfg.MaxRetries))
	} else if strings.HasPrefix(strings.ToLower(cfg.LLMModel), "gemini-") {
		slog.Warn("gemini model configured without gemini-key; requests go to the OpenAI-compatible endpoint", "model", cfg.LLMModel)
	}

	retr := retriever.New(index, cfg.TopK, cfg.IndexTimeout)
	normalizer, err := exam.NewNormalizer()
	if err != nil {
		return nil, fmt.Errorf("create normalizer: %w", err)
	}
	provider := document.NewProvider(texts, retr, document.Options{
		SampleQuery:    cfg.SampleQuery,
		SampleChunks:   cfg.SampleChunks,
		MaxCachedRunes: cfg.MaxTextCache,
		MaxIndexRunes:  cfg.MaxTextIndex,
	})
	orchestrator := chat.NewOrchestrator(
		chat.NewCondenser(router, cfg.CondenseTemperature, cfg.ChatTimeout),
		retr,
		chat.NewSynthesizer(router, cfg.AnswerTemperature, cfg.ChatTimeout),
		appI18n.LanguageDirective,
	)

	a.svc, err = service.New(service.Deps{
		Answerer:    orchestrator,
		Provider:    provider,
		Engine:      exam.NewEngine(router, cfg.ExamTemperature, cfg.ExamMaxTokens, cfg.ExamTimeout),
		Normalizer:  normalizer,
		Regenerator: exam.NewRegenerator(router, normalizer, cfg.RegenTemperature, cfg.ExamMaxTokens, cfg.ExamTimeout),
		Index:       retr,
		Texts:       texts,
		Feedback:    db,
	}, service.Options{
		DefaultLanguage: cfg.Lang,
		MinTextLength:   cfg.MinTextLength,
	})
	if err != nil {
		return nil, err
	}

	a.loader, err = ingest.NewLoader(index, texts, db)
	if err != nil {
		return nil, fmt.Errorf("create loader: %w", err)
	}

	ok = true
	return a, nil
}

// geminiDefault returns the model the Gemini client uses when a request
// names none.
func geminiDefault(defaultModel string) string {
	if strings.HasPrefix(strings.ToLower(defaultModel), "gemini-") {
		return defaultModel
	}
	return gemini.DefaultModel
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
