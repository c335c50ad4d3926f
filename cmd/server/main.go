package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/doodlewhat-backend/internal/config"
	"github.com/DoyleJ11/doodlewhat-backend/internal/engine"
	"github.com/DoyleJ11/doodlewhat-backend/internal/httpapi"
	"github.com/DoyleJ11/doodlewhat-backend/internal/hub"
	"github.com/DoyleJ11/doodlewhat-backend/internal/lobby"
	"github.com/DoyleJ11/doodlewhat-backend/internal/logging"
	"github.com/DoyleJ11/doodlewhat-backend/internal/results"
	"github.com/DoyleJ11/doodlewhat-backend/internal/words"
	"github.com/DoyleJ11/doodlewhat-backend/internal/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.DefaultLogger().Fatalf("load config: %v", err)
	}

	logger := logging.NewLogger(cfg.Debug)
	ctx = logging.WithLogger(ctx, logger)

	if err := realMain(ctx, cfg); err != nil {
		logger.Fatalf("main.realMain: %v", err)
	}
}

func realMain(ctx context.Context, cfg config.Config) (err error) {
	logger := logging.FromContext(ctx).Named("main.realMain")

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	archive, err := results.NewService(store, cfg.ResultsCacheSize)
	if err != nil {
		return multierr.Append(err, store.Close())
	}
	defer func() { err = multierr.Append(err, archive.Close()) }()

	h := hub.NewHub(ctx, lobby.Options{
		Rules: engine.Rules{
			RoundSeconds:        cfg.RoundSeconds,
			IntermissionSeconds: cfg.IntermissionSeconds,
		},
		Words:    words.Default(),
		Scorer:   engine.DefaultScorer{},
		Recorder:     archive,
		EmptyTimeout: cfg.EmptyRoomTimeout,
	})

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:       h,
			Results:   archive,
			PublicURL: cfg.PublicURL,
			WS: ws.Options{
				OriginPatterns: cfg.OriginPatterns,
				OutboxSize:     cfg.OutboxSize,
			},
			Logger: logger.Named("http"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infow("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		h.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config) (results.Store, error) {
	if cfg.DatabaseURL == "" {
		return results.NewMemoryStore(), nil
	}
	store, err := results.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("results store: %w", err)
	}
	return store, nil
}
