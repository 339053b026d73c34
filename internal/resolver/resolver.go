package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Tipster/internal/ledger"
	"github.com/Alias1177/Tipster/models"
)

// Reconciler bridges pending ledger records to real-world results. It
// is driven by an external periodic trigger and is safe to invoke
// redundantly: replays are absorbed by the ledger's idempotent resolve.
type Reconciler struct {
	store    models.PredictionStore
	ledger   *ledger.Ledger
	results  models.ResultsClient
	lookback time.Duration
	logger   zerolog.Logger
}

// New creates a reconciler. Lookback bounds the window of finished
// events requested from the results provider.
func New(store models.PredictionStore, l *ledger.Ledger, results models.ResultsClient, lookback time.Duration) *Reconciler {
	if lookback <= 0 {
		lookback = 48 * time.Hour
	}
	return &Reconciler{
		store:    store,
		ledger:   l,
		results:  results,
		lookback: lookback,
		logger:   log.With().Str("component", "resolver").Logger(),
	}
}

// ReconcilePending matches every pending prediction against the
// provider's finished events and settles the matches found. Unmatched
// records are left pending and retried next run; individual settlement
// failures are logged and do not abort the batch.
func (r *Reconciler) ReconcilePending(ctx context.Context) (*models.ReconcileReport, error) {
	pending, err := r.store.GetPendingPredictions(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading pending predictions: %w", err)
	}

	report := &models.ReconcileReport{TotalPending: len(pending)}
	if len(pending) == 0 {
		return report, nil
	}

	events, err := r.results.GetFinishedEvents(ctx, r.lookback)
	if err != nil {
		return nil, fmt.Errorf("fetching finished events: %w", err)
	}

	byID, byNames := index(events, r.logger)

	for i := range pending {
		rec := &pending[i]

		event, matched := r.match(rec, byID, byNames)
		if !matched {
			// Not yet resolvable; retried on the next run.
			r.logger.Debug().Str("match_id", rec.MatchID).Msg("No finished counterpart yet")
			continue
		}

		settlement, err := r.ledger.Resolve(ctx, rec.MatchID, event.Winner(), event.Score())
		if err != nil {
			r.logger.Error().Err(err).Str("match_id", rec.MatchID).Msg("Failed to settle prediction")
			continue
		}
		if settlement.AlreadyResolved {
			continue
		}

		report.ResolvedCount++
		report.Resolved = append(report.Resolved, *settlement)
	}

	r.logger.Info().
		Int("total_pending", report.TotalPending).
		Int("resolved", report.ResolvedCount).
		Msg("Reconciliation run complete")

	return report, nil
}

// match prefers an exact external-id hit and falls back to an exact
// case-sensitive (home, away) name pair.
func (r *Reconciler) match(rec *models.PredictionRecord, byID map[string]*models.FinishedEvent, byNames map[string]*models.FinishedEvent) (*models.FinishedEvent, bool) {
	if e, ok := byID[rec.MatchID]; ok {
		return e, true
	}
	if e, ok := byNames[nameKey(rec.HomeTeam, rec.AwayTeam)]; ok {
		return e, true
	}
	return nil, false
}

// index builds the id and name-pair lookup tables. When two finished
// events share a name pair inside one lookback window (doubleheaders),
// the earlier completion wins and the collision is logged so it can be
// audited rather than silently mis-settled.
func index(events []models.FinishedEvent, logger zerolog.Logger) (map[string]*models.FinishedEvent, map[string]*models.FinishedEvent) {
	byID := make(map[string]*models.FinishedEvent, len(events))
	byNames := make(map[string]*models.FinishedEvent, len(events))

	for i := range events {
		e := &events[i]
		if e.ID != "" {
			byID[e.ID] = e
		}

		key := nameKey(e.HomeTeam, e.AwayTeam)
		if prev, ok := byNames[key]; ok {
			kept, ignored := prev, e
			if e.CompletedAt.Before(prev.CompletedAt) {
				byNames[key] = e
				kept, ignored = e, prev
			}
			logger.Warn().
				Str("home", e.HomeTeam).
				Str("away", e.AwayTeam).
				Str("kept_id", kept.ID).
				Str("ignored_id", ignored.ID).
				Msg("Ambiguous name-pair match in lookback window")
			continue
		}
		byNames[key] = e
	}

	return byID, byNames
}

func nameKey(home, away string) string {
	return home + "|" + away
}
