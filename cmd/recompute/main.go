// cmd/recompute runs a synchronous recompute and exits.
// Usage: recompute [-company <uuid>]   (all companies when omitted)
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketstock/internal/app"
	"marketstock/internal/config"
	"marketstock/internal/infra"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	companyFlag := flag.String("company", "", "company id to recompute (default: every company)")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	// The CLI never enqueues, so Redis stays unset.
	svc, err := app.Build(cfg, db, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var ids []uuid.UUID
	if *companyFlag != "" {
		id, err := uuid.Parse(*companyFlag)
		if err != nil {
			log.Fatal().Str("company", *companyFlag).Msg("invalid company id")
		}
		ids = []uuid.UUID{id}
	} else if ids, err = svc.Companies.ListIDs(ctx); err != nil {
		log.Fatal().Err(err).Msg("list companies")
	}

	failed := 0
	for _, id := range ids {
		report, err := svc.Recompute.RecomputeAll(ctx, id)
		if err != nil {
			failed++
			log.Error().Err(err).Str("company_id", id.String()).Msg("recompute failed")
			if ctx.Err() != nil {
				break
			}
			continue
		}
		log.Info().
			Str("company_id", id.String()).
			Int("recommendations", report.Recommendations.Written).
			Int("supplier", report.Supplier.Written).
			Int("priority", report.Priority.Written).
			Dur("took", report.Duration).
			Msg("recomputed")
	}
	if failed > 0 {
		os.Exit(1)
	}
}
