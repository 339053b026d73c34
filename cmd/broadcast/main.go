package main

import (
	"context"
	"flag"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Tipster/internal/config"
	"github.com/Alias1177/Tipster/internal/database"
	"github.com/Alias1177/Tipster/internal/notify"
	"github.com/Alias1177/Tipster/internal/stats"
	"github.com/Alias1177/Tipster/models"
)

func main() {
	period := flag.String("period", models.PeriodToday, "stats window to broadcast (today, week, month, all)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	lvl, _ := zerolog.ParseLevel(cfg.LogLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)

	if !models.ValidPeriod(*period) {
		log.Fatal().Str("period", *period).Msg("Unknown stats period")
	}
	if cfg.TelegramBotToken == "" || cfg.TelegramChatID == 0 {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set")
	}

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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	aggregator := stats.New(db, cfg.FlatStake)
	ws, err := aggregator.Compute(ctx, *period)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to compute stats")
	}

	digest, err := notify.NewTelegramDigest(cfg.TelegramBotToken, cfg.TelegramChatID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}

	if err := digest.SendStats(ws); err != nil {
		log.Fatal().Err(err).Msg("Failed to send digest")
	}

	log.Info().Str("period", *period).Int("total", ws.Total).Msg("Digest sent")
}
