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

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/relaymail/relaymail/internal/bootstrap"
	"github.com/relaymail/relaymail/internal/config"
	"github.com/relaymail/relaymail/internal/pkg/logger"
)

func main() {
	// Local development reads a .env file; deployed environments set real
	// variables, so a missing file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load settings", "error", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.LogLevel)

	tenants, err := config.LoadTenants(os.LookupEnv, log)
	if err != nil {
		log.Error("tenant configuration invalid", "error", err)
		os.Exit(1)
	}
	for _, t := range tenants {
		log.Info("tenant configured",
			"tenant", t.Label,
			"channel", t.Channel,
			"category", string(t.Category),
			"to", t.ToEmail,
		)
	}

	c := bootstrap.New(cfg, tenants, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: cfg.OpsAddr, Handler: c.Router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Supervisor.Run(gctx)
	})
	g.Go(func() error {
		log.Info("ops endpoint listening", "addr", cfg.OpsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("relay stopped", "error", err)
		os.Exit(1)
	}
	log.Info("relay stopped")
}
