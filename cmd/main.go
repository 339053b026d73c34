package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Tipster/internal/api/sportsfeed"
	"github.com/Alias1177/Tipster/internal/config"
	"github.com/Alias1177/Tipster/internal/database"
	"github.com/Alias1177/Tipster/internal/ledger"
	"github.com/Alias1177/Tipster/internal/resolver"
	"github.com/Alias1177/Tipster/internal/server"
	"github.com/Alias1177/Tipster/internal/stats"
	"github.com/Alias1177/Tipster/internal/weights"
)

func main() {
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
	aggregator := stats.New(db, cfg.FlatStake)
	weightCache := weights.New(aggregator, weights.Options{
		TTL:          time.Duration(cfg.WeightsTTLMinutes) * time.Minute,
		MinSample:    cfg.WeightsMinSample,
		StatsTimeout: time.Duration(cfg.StatsTimeoutSeconds) * time.Second,
		WinRateHigh:  cfg.WinRateHigh,
		WinRateLow:   cfg.WinRateLow,
	})

	handler := server.NewHandler(book, reconciler, aggregator, weightCache)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", handler.HealthCheck)
	r.Post("/api/v1/predictions", handler.RecordPrediction)
	r.Get("/api/v1/predictions/recent", handler.RecentPredictions)
	r.Post("/api/v1/reconcile", handler.Reconcile)
	r.Get("/api/v1/stats", handler.Stats)
	r.Get("/api/v1/weights", handler.Weights)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("Tipster service started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}
