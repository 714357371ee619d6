// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"libranexus/internal/auth"
	"libranexus/internal/catalog"
	"libranexus/internal/category"
	"libranexus/internal/circulation"
	"libranexus/internal/config"
	"libranexus/internal/integrity"
	"libranexus/internal/logger"
	"libranexus/internal/membership"
	"libranexus/internal/server"
	"libranexus/internal/storage"
	"libranexus/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load config: " + err.Error())
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
	log.Info().Str("env", cfg.App.Env).Str("app", cfg.App.Name).Msg("starting")

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	backend, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backend.Close()

	tokens, err := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiration)
	if err != nil {
		return err
	}
	authSvc := auth.NewService(backend.Users(), tokens, log, auth.Options{
		LoginRatePerMinute: cfg.Auth.LoginRatePerMinute,
		LoginBurst:         cfg.Auth.LoginBurst,
	})
	if _, err := authSvc.EnsureAdmin(ctx, cfg.Auth.BootstrapUsername, cfg.Auth.BootstrapEmail, cfg.Auth.BootstrapPassword); err != nil {
		return err
	}

	auditor := integrity.NewAuditor(log, integrity.DefaultMetrics(backend, cfg.Lending.LoanPeriodDays, time.Now))
	if cfg.Integrity.Schedule != "" {
		sched, err := integrity.NewScheduler(auditor, cfg.Integrity.Schedule, time.Minute)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
		log.Info().Str("schedule", cfg.Integrity.Schedule).Msg("integrity audit scheduled")
	}

	router := server.NewRouter(server.Deps{
		Log:         log,
		Metrics:     telemetry.NewMetrics(),
		Auth:        authSvc,
		Circulation: circulation.NewService(backend.Circulation(), log, circulation.WithLoanPeriod(cfg.Lending.LoanPeriodDays)),
		Categories:  category.NewService(backend.Categories(), log),
		Catalog:     catalog.NewService(backend.Catalog(), log),
		Membership:  membership.NewService(backend.Membership(), log),
		Auditor:     auditor,
		Ping:        backend.Ping,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
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

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
