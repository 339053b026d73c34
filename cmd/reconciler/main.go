package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Tipster/internal/api/sportsfeed"
	"github.com/Alias1177/Tipster/internal/config"
	"github.com/Alias1177/Tipster/internal/database"
	"github.com/Alias1177/Tipster/internal/ledger"
	"github.com/Alias1177/Tipster/internal/resolver"
)

func main() {
	once := flag.Bool("once", false, "run a single reconciliation pass and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	lvl, _ := zerolog.ParseLevel(cfg.LogLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)

	db, err := database.New(database.ConnectionParams{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	results := sportsfeed.NewClient(sportsfeed.ClientOptions{
		APIKey:         cfg.ResultsAPIKey,
		BaseURL:        cfg.ResultsBaseURL,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
	})

	book := ledger.New(db, cfg.FlatStake, cfg.FallbackOdds)
	reconciler := resolver.New(db, book, results, time.Duration(cfg.LookbackHours)*time.Hour)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run := func() {
		report, err := reconciler.ReconcilePending(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Reconciliation failed")
			return
		}
		log.Info().
			Int("total_pending", report.TotalPending).
			Int("resolved", report.ResolvedCount).
			Msg("Reconciliation pass complete")
	}

	// Run immediately on start
	run()

	if *once {
		return
	}

	interval := time.Duration(cfg.ReconcileIntervalMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("Reconciler loop started")

	for {
		select {
		case <-ticker.C:
			run()
		case <-ctx.Done():
			log.Info().Msg("Reconciler stopped")
			return
		}
	}
}
