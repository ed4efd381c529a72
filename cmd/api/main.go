package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanwahyu/sheetqa/internal/application"
	appdocs "github.com/bryanwahyu/sheetqa/internal/application/documents"
	appqa "github.com/bryanwahyu/sheetqa/internal/application/qa"
	"github.com/bryanwahyu/sheetqa/internal/config"
	"github.com/bryanwahyu/sheetqa/internal/domain/qa"
	"github.com/bryanwahyu/sheetqa/internal/infra/ai"
	"github.com/bryanwahyu/sheetqa/internal/infra/ai/prompt"
	"github.com/bryanwahyu/sheetqa/internal/infra/httpserver"
	"github.com/bryanwahyu/sheetqa/internal/infra/spreadsheet"
	"github.com/bryanwahyu/sheetqa/internal/infra/storage"
	"github.com/bryanwahyu/sheetqa/internal/middleware"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := storage.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	client, closeClient, err := ai.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeClient()

	docsSvc := &appdocs.Service{
		Store:  store,
		Parser: spreadsheet.NewParser(),
		Clock:  application.SystemClock{},
		Log:    log,
	}
	qaSvc := &appqa.Service{
		Documents:   docsSvc,
		Client:      client,
		Mode:        qa.AnswerMode(cfg.QA.AnswerMode),
		Extract:     prompt.ExtractAnswer,
		Concurrency: cfg.Ask.Concurrency,
		FailFast:    cfg.Ask.FailFast,
		Log:         log,
	}

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: httpserver.NewRouter(ctx, docsSvc, qaSvc, httpserver.Options{
			Log:                 log,
			Metrics:             middleware.NewMetrics(),
			CORSOrigins:         cfg.Server.CORSOrigins,
			RateLimitCapacity:   cfg.RateLimit.Capacity,
			RateLimitRefillRate: cfg.RateLimit.RefillRate,
		}),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			"addr", srv.Addr,
			"storage", cfg.Storage.Backend,
			"provider", cfg.QA.Provider,
			"answer_mode", cfg.QA.AnswerMode,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
