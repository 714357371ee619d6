// cmd/audit/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"libranexus/internal/clients"
	"libranexus/internal/config"
	"libranexus/internal/integrity"
	"libranexus/internal/logger"
	"libranexus/internal/storage"
)

// audit runs the integrity checks once and exits 1 on violations. Without
// -remote it reads the configured storage directly; with -remote it asks a
// running server, logging in with -user and $LIBRANEXUS_PASSWORD.
func main() {
	remote := flag.String("remote", "", "base URL of a running server")
	user := flag.String("user", "admin", "username for -remote")
	timeout := flag.Duration("timeout", time.Minute, "audit timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var (
		report *integrity.Report
		err    error
	)
	if *remote != "" {
		log := logger.New(logger.Config{Env: os.Getenv("APP_ENV"), Level: os.Getenv("LOG_LEVEL")})
		report, err = auditRemote(ctx, *remote, *user, os.Getenv("LIBRANEXUS_PASSWORD"))
		if err != nil {
			log.Fatal().Err(err).Str("remote", *remote).Msg("remote audit failed")
		}
	} else {
		cfg, err := config.Load()
		if err != nil {
			panic("load config: " + err.Error())
		}
		log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
		report, err = auditLocal(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("audit failed")
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)

	if !report.Healthy {
		os.Exit(1)
	}
}

func auditLocal(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*integrity.Report, error) {
	backend, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	auditor := integrity.NewAuditor(log, integrity.DefaultMetrics(backend, cfg.Lending.LoanPeriodDays, time.Now))
	return auditor.Run(ctx)
}

func auditRemote(ctx context.Context, baseURL, user, password string) (*integrity.Report, error) {
	if password == "" {
		return nil, fmt.Errorf("LIBRANEXUS_PASSWORD is not set")
	}
	c := clients.NewAPIClient(baseURL)
	if err := c.Login(ctx, user, password); err != nil {
		return nil, err
	}
	return c.Integrity(ctx)
}
