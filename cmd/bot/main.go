package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/ledger-bot/internal/api/middleware"
	"github.com/dvloznov/ledger-bot/internal/bot"
	"github.com/dvloznov/ledger-bot/internal/catalog"
	"github.com/dvloznov/ledger-bot/internal/config"
	"github.com/dvloznov/ledger-bot/internal/dialogue"
	"github.com/dvloznov/ledger-bot/internal/dispatch"
	"github.com/dvloznov/ledger-bot/internal/extract"
	"github.com/dvloznov/ledger-bot/internal/intake"
	"github.com/dvloznov/ledger-bot/internal/ledger"
	"github.com/dvloznov/ledger-bot/internal/logger"
	"github.com/dvloznov/ledger-bot/internal/receipts"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	// Bootstrap logger until the configured one exists
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log = logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	ctx := logger.WithContext(context.Background(), log)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid ledger timezone")
	}
	now := func() time.Time { return time.Now().In(loc) }

	cat := catalog.Default()
	if cfg.Catalog.Path != "" {
		if cat, err = catalog.Load(cfg.Catalog.Path); err != nil {
			log.Fatal().Err(err).Str("path", cfg.Catalog.Path).Msg("Failed to load concept catalog")
		}
	}

	var closers []io.Closer

	lw, ledgerCloser, err := ledger.Open(ctx, cfg.LedgerOpenConfig(loc))
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Ledger.Backend).Msg("Failed to open ledger")
	}
	closers = append(closers, ledgerCloser)

	var extractor extract.Extractor
	if cfg.AI.Enabled {
		extractor, err = extract.Open(ctx, cfg.AI.Provider, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout)
		if err != nil {
			log.Fatal().Err(err).Str("provider", cfg.AI.Provider).Msg("Failed to create extractor")
		}
		log.Info().Str("provider", cfg.AI.Provider).Msg("AI extraction enabled")
	} else {
		log.Info().Msg("AI extraction disabled - only shorthand and guided entry accepted")
	}

	var archive receipts.Archive
	if cfg.Features.ReceiptImages && cfg.Receipts.Bucket != "" {
		gcs, err := receipts.NewGCS(ctx, cfg.Receipts.Bucket)
		if err != nil {
			log.Fatal().Err(err).Str("bucket", cfg.Receipts.Bucket).Msg("Failed to create receipt archive")
		}
		closers = append(closers, gcs)
		archive = gcs
	}

	store := dialogue.NewMemoryStore()
	machine := dialogue.NewMachine(store, cat, lw, now)
	resolver := intake.NewResolver(cat, extractor, now)

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Telegram")
	}
	log.Info().Str("bot", api.Self.UserName).Msg("Authorized on Telegram")

	router := bot.NewRouter(api, machine, resolver, lw, bot.Options{
		ReceiptImages: cfg.Features.ReceiptImages,
		Archive:       archive,
		Now:           now,
	})

	queue := dispatch.NewQueue(cfg.Dispatch.Workers, cfg.Dispatch.BufferSize)

	webhookPath := "/webhook/" + strings.Trim(cfg.Telegram.WebhookPath, "/")
	webhookURL := strings.TrimRight(cfg.Telegram.WebhookURL, "/") + webhookPath
	if err := bot.SetWebhook(api, webhookURL, cfg.Telegram.WebhookSecret); err != nil {
		log.Fatal().Err(err).Msg("Failed to register webhook")
	}
	log.Info().Str("path", webhookPath).Msg("Webhook registered")

	// Create router
	mux := http.NewServeMux()

	mux.Handle(webhookPath, middleware.WebhookSecret(cfg.Telegram.WebhookSecret)(bot.WebhookHandler(router, queue)))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(mux),
		),
	)

	port := strconv.Itoa(cfg.Server.Port)
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Drop drafts nobody finished
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepSessions(sweepCtx, machine, cfg.Session.TTL, cfg.Session.SweepInterval)

	go func() {
		log.Info().Str("port", port).Msg("Starting bot server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stopSweep()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Finish updates already accepted from Telegram
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error draining update queue")
	}

	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close client")
		}
	}

	log.Info().Msg("Server exited")
}

func sweepSessions(ctx context.Context, machine *dialogue.Machine, ttl, interval time.Duration) {
	if ttl <= 0 || interval <= 0 {
		return
	}
	log := logger.FromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := machine.Sweep(ctx, ttl)
			if err != nil {
				log.Error().Err(err).Msg("Session sweep failed")
				continue
			}
			if n > 0 {
				log.Info().Int("removed", n).Msg("Removed idle sessions")
			}
		}
	}
}
