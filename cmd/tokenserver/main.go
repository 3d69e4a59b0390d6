// Package main runs the HTTP token issuance server. It loads configuration,
// builds the issuer and gin router, and shuts down gracefully on
// SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Wang-tianhao/Vibrant-tokengen-go/internal/httpapi"
	"github.com/Wang-tianhao/Vibrant-tokengen-go/internal/metrics"
	"github.com/Wang-tianhao/Vibrant-tokengen-go/jwtgen"
)

func main() {
	configPath := flag.String("config", "configs/tokenserver.yaml", "path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	srv, err := newServer(cfg, logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("starting token server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("token server stopped gracefully")
}

// newServer wires the issuer, limiter, metrics and router from cfg.
func newServer(cfg *Config, logger *slog.Logger) (*http.Server, error) {
	secret, err := cfg.Token.LoadSecret()
	if err != nil {
		return nil, err
	}

	opts := []jwtgen.ConfigOption{jwtgen.WithLogger(logger)}
	if cfg.Token.JWTID {
		opts = append(opts, jwtgen.WithRandomJWTID())
	}
	issuer, err := jwtgen.NewIssuer(opts...)
	if err != nil {
		return nil, err
	}

	var collector *metrics.Collector
	if cfg.Metrics.IsEnabled() {
		collector = metrics.New()
	}

	logger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"issuer", cfg.Token.Issuer,
		"audience", cfg.Token.Audience,
		"default_expiration_hours", cfg.Token.DefaultExpirationHours,
		"max_expiration_hours", cfg.Token.MaxExpirationHours,
		"jti", cfg.Token.JWTID,
		"metrics_enabled", cfg.Metrics.IsEnabled(),
	)

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.Options{
		Issuer: issuer,
		Settings: httpapi.Settings{
			Issuer:                 cfg.Token.Issuer,
			Audience:               cfg.Token.Audience,
			Secret:                 secret,
			DefaultExpirationHours: cfg.Token.DefaultExpirationHours,
			MaxExpirationHours:     cfg.Token.MaxExpirationHours,
			JWTID:                  cfg.Token.JWTID,
		},
		Metrics: collector,
		Limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.BurstSize),
		Logger:  logger,
	})

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, nil
}
