package models

import (
	"context"
	"time"
)

// ResultsClient fetches finished events from the external match-data
// provider for a bounded lookback window.
type ResultsClient interface {
	GetFinishedEvents(ctx context.Context, lookback time.Duration) ([]FinishedEvent, error)
}

// PredictionStore is the durable row store behind the ledger. All
// methods that touch the store report storage failures as plain errors;
// the ledger layer tags them for callers.
type PredictionStore interface {
	UpsertPrediction(ctx context.Context, p *PredictionRecord) (created bool, err error)
	GetPrediction(ctx context.Context, matchID string) (*PredictionRecord, error)
	SaveSettlement(ctx context.Context, matchID string, s *Settlement) error
	GetPendingPredictions(ctx context.Context) ([]PredictionRecord, error)
	GetResolvedSince(ctx context.Context, cutoff time.Time) ([]PredictionRecord, error)
	GetRecentPredictions(ctx context.Context, limit int) ([]PredictionRecord, error)
}
