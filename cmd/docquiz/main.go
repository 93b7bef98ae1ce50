package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pavelanni/docquiz/internal/config"
	"github.com/pavelanni/docquiz/internal/handler"
	appI18n "github.com/pavelanni/docquiz/internal/i18n"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "docquiz",
		Short:        "Document-grounded chat and exam generation",
		SilenceUsage: true,
	}

	serve := serveCmd()
	root.AddCommand(serve, askCmd(), examCmd(), regenerateCmd(), loadCmd(), deleteIndexCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `docquiz --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// addCommonFlags registers the configuration and logging flags shared by
// every command.
func addCommonFlags(f *pflag.FlagSet) {
	config.RegisterFlags(f)
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	addCommonFlags(cmd.Flags())
	cmd.Flags().Bool("uploads", true, "Accept passage file uploads on /api/passages")
	return cmd
}

func setupLogging(v *viper.Viper) {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("DOCQUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("docquiz")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/docquiz")
	v.AddConfigPath("/etc/docquiz")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// setup prepares logging, i18n and the configuration of cmd.
func setup(cmd *cobra.Command) (*viper.Viper, *config.Config, error) {
	v := viperForCmd(cmd)
	setupLogging(v)

	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, err
	}
	if err := appI18n.Init(cfg.Lang); err != nil {
		return nil, nil, fmt.Errorf("init i18n: %w", err)
	}
	return v, cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	v, cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var loader handler.Loader
	if v.GetBool("uploads") {
		loader = a.loader
	}
	h := handler.New(a.svc, loader)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(cfg.Lang))
	h.Routes(r)

	slog.Info("starting server",
		"addr", cfg.Addr,
		"model", cfg.LLMModel,
		"llm_url", cfg.LLMURL,
		"gemini", cfg.GeminiKey != "",
		"embedding", cfg.Embedding,
		"cache", cfg.CacheBackend,
		"lang", cfg.Lang,
	)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
