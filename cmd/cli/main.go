package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dvloznov/ledger-bot/internal/catalog"
	"github.com/dvloznov/ledger-bot/internal/config"
	"github.com/dvloznov/ledger-bot/internal/domain"
	"github.com/dvloznov/ledger-bot/internal/extract"
	"github.com/dvloznov/ledger-bot/internal/intake"
	"github.com/dvloznov/ledger-bot/internal/ledger"
	"github.com/dvloznov/ledger-bot/internal/logger"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	switch os.Args[1] {
	case "parse":
		runParse(log, cfg)
	case "last":
		runLast(log, cfg)
	case "catalog":
		runCatalog(log, cfg)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Ledger Bot CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  parse     Resolve a chat message and print the ledger row it produces")
	fmt.Println("  last      Print the most recent ledger record")
	fmt.Println("  catalog   List the concepts and their classification")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nConfiguration is read like the bot's: LEDGERBOT_CONFIG and LEDGERBOT_* variables.")
	fmt.Println("Run 'cli <command> -h' for more information on a command.")
}

func loadCatalog(log zerolog.Logger, cfg config.Config) *catalog.Catalog {
	if cfg.Catalog.Path == "" {
		return catalog.Default()
	}
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Catalog.Path).Msg("Failed to load concept catalog")
	}
	return cat
}

func location(log zerolog.Logger, cfg config.Config) *time.Location {
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid ledger timezone")
	}
	return loc
}

func runParse(log zerolog.Logger, cfg config.Config) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	text := fs.String("text", "", `Message to resolve, e.g. "GASTO 50 ALIMENTOS"`)
	user := fs.String("user", "cli", "Submitter name written to the row")
	useAI := fs.Bool("ai", cfg.AI.Enabled, "Fall back to AI extraction (needs ai.api_key)")
	write := fs.Bool("write", false, "Append the row to the configured ledger instead of a dry run")
	fs.Parse(os.Args[2:])

	if *text == "" {
		log.Fatal().Msg("Error: -text is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	loc := location(log, cfg)
	now := func() time.Time { return time.Now().In(loc) }
	cat := loadCatalog(log, cfg)

	var extractor extract.Extractor
	if *useAI {
		var err error
		extractor, err = extract.Open(ctx, cfg.AI.Provider, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create extractor")
		}
	}

	tx, err := intake.NewResolver(cat, extractor, now).Resolve(ctx, intake.Message{Submitter: *user, Text: *text})
	if err != nil {
		color.New(color.BgRed, color.FgWhite).Printf(" REJECTED ")
		fmt.Printf(" %v\n", err)
		os.Exit(2)
	}

	var lw ledger.Writer = ledger.NewMemory(loc)
	if *write {
		w, closer, err := ledger.Open(ctx, cfg.LedgerOpenConfig(loc))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open ledger")
		}
		defer closer.Close()
		lw = w
	}
	if err := lw.Append(ctx, tx); err != nil {
		log.Fatal().Err(err).Msg("Failed to append transaction")
	}

	printRow(tx.Source, ledger.Row(tx, loc))
	if tx.InferredDate != "" {
		fmt.Printf("  inferred date: %s\n", tx.InferredDate)
	}
	if !*write {
		fmt.Println("  (dry run, nothing written)")
	}
}

func printRow(src domain.Source, row []string) {
	color.New(color.BgBlue, color.FgWhite).Printf(" %-9s ", strings.ToUpper(string(src)))
	for i, col := range row {
		fmt.Printf("\n  %-10s %s", ledger.Header[i]+":", col)
	}
	fmt.Println()
}

func runLast(log zerolog.Logger, cfg config.Config) {
	fs := flag.NewFlagSet("last", flag.ExitOnError)
	backend := fs.String("backend", cfg.Ledger.Backend, "Ledger backend to read (sheets, bigquery, notion)")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	cfg.Ledger.Backend = *backend
	lw, closer, err := ledger.Open(ctx, cfg.LedgerOpenConfig(location(log, cfg)))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger")
	}
	defer closer.Close()

	rec, err := lw.LastRecord(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read last record")
	}
	if rec == nil {
		fmt.Println("No records.")
		return
	}

	fmt.Println("\n=== Last Record ===")
	printRow(domain.Source(*backend), []string{rec.Timestamp, rec.Submitter, rec.Type, rec.Category, rec.Concept, rec.Amount, rec.Period})
}

func runCatalog(log zerolog.Logger, cfg config.Config) {
	fs := flag.NewFlagSet("catalog", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	cat := loadCatalog(log, cfg)

	for _, t := range domain.TxTypes {
		concepts := cat.Concepts(t)
		fmt.Printf("\n=== %s (%d) ===\n", t.Label(), len(concepts))
		for _, c := range concepts {
			switch cat.Classify(c) {
			case domain.Fixed:
				color.New(color.BgGreen, color.FgBlack).Printf(" %-8s ", domain.LabelFixed)
			default:
				color.New(color.BgYellow, color.FgBlack).Printf(" %-8s ", domain.LabelVariable)
			}
			fmt.Printf(" %s\n", c)
		}
	}
	fmt.Printf("\nFixed markers: %s\n", strings.Join(cat.FixedConcepts(), ", "))
}
