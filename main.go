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

	"github.com/gin-gonic/gin"

	"github.com/incridea-nmamit/incridea-server/internal/config"
	"github.com/incridea-nmamit/incridea-server/internal/fest"
	"github.com/incridea-nmamit/incridea-server/internal/httpapi"
	"github.com/incridea-nmamit/incridea-server/internal/notify"
	"github.com/incridea-nmamit/incridea-server/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.Dialect(cfg.DBDriver), cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	var publisher notify.Publisher = notify.LogPublisher{Logger: logger}
	if cfg.RedisAddr != "" {
		rp, err := notify.NewRedisPublisher(ctx, notify.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer rp.Close()
		publisher = rp
	}

	svc := fest.New(st, fest.WithLogger(logger), fest.WithPublisher(publisher))
	api := httpapi.New(svc, httpapi.Tokens{
		Secret:       []byte(cfg.JWTSecret),
		TTL:          cfg.TokenTTL,
		CookieSecure: cfg.CookieSecure,
	}, logger)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "db", cfg.DBDriver, "redis", cfg.RedisAddr != "")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
