package main

import (
	"context"
	"flag"
	"time"

	"github.com/dvloznov/ledger-bot/internal/config"
	"github.com/dvloznov/ledger-bot/internal/ledger"
	"github.com/dvloznov/ledger-bot/internal/logger"
)

// migrate prepares the configured ledger backend: it creates the BigQuery
// dataset and table, or writes the header row of an empty worksheet.
func main() {
	backend := flag.String("backend", "", "Ledger backend to provision (defaults to ledger.backend)")
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *backend != "" {
		cfg.Ledger.Backend = *backend
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid ledger timezone")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	w, closer, err := ledger.Open(ctx, cfg.LedgerOpenConfig(loc))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger")
	}
	defer closer.Close()

	p, ok := w.(ledger.Provisioner)
	if !ok {
		log.Info().Str("backend", cfg.Ledger.Backend).Msg("Backend needs no provisioning")
		return
	}

	log.Info().Str("backend", cfg.Ledger.Backend).Msg("Provisioning ledger")
	if err := p.Provision(ctx); err != nil {
		log.Fatal().Err(err).Msg("Provisioning failed")
	}
	log.Info().Msg("Ledger is ready")
}
