package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Tipster/models"
)

var (
	// ErrUnavailable tags storage failures. Callers treat it as
	// non-fatal and proceed without history for that call.
	ErrUnavailable = errors.New("ledger unavailable")

	// ErrNotFound is returned by Resolve for an unknown match id;
	// resolving never creates records implicitly.
	ErrNotFound = errors.New("prediction not found")
)

const defaultRecentLimit = 20

// Ledger is the durable, keyed store of prediction records. It owns the
// pending → won/lost lifecycle and the profit arithmetic; the actual
// rows live in a PredictionStore.
type Ledger struct {
	store        models.PredictionStore
	stake        float64
	fallbackOdds float64
	now          func() time.Time
	logger       zerolog.Logger
}

// New creates a ledger over the given store. Stake is the flat notional
// wager used for every profit calculation; fallbackOdds is used when a
// record carries no usable odds for the winning side.
func New(store models.PredictionStore, stake, fallbackOdds float64) *Ledger {
	return &Ledger{
		store:        store,
		stake:        stake,
		fallbackOdds: fallbackOdds,
		now:          time.Now,
		logger:       log.With().Str("component", "ledger").Logger(),
	}
}

// Record upserts a prediction by match id. An existing row is updated
// in place and reported with IsNew=false. An unknown predicted winner
// or an out-of-range confidence is rejected; malformed odds are
// normalized to "absent" here so they can never reach profit arithmetic.
func (l *Ledger) Record(ctx context.Context, p *models.PredictionRecord) (*models.RecordHandle, error) {
	if p.MatchID == "" {
		return nil, fmt.Errorf("record: empty match id")
	}
	switch p.PredictedWinner {
	case models.WinnerHome, models.WinnerAway, models.WinnerDraw:
	default:
		return nil, fmt.Errorf("record %s: unknown predicted winner %q", p.MatchID, p.PredictedWinner)
	}
	if p.Confidence < 0 || p.Confidence > 100 {
		return nil, fmt.Errorf("record %s: confidence %v out of range", p.MatchID, p.Confidence)
	}

	rec := *p
	rec.Status = models.StatusPending
	rec.HomeOdds = normalizeOdds(rec.HomeOdds)
	rec.AwayOdds = normalizeOdds(rec.AwayOdds)
	rec.DrawOdds = normalizeOdds(rec.DrawOdds)

	created, err := l.store.UpsertPrediction(ctx, &rec)
	if err != nil {
		return nil, fmt.Errorf("%w: upserting %s: %v", ErrUnavailable, p.MatchID, err)
	}

	l.logger.Debug().
		Str("match_id", p.MatchID).
		Bool("is_new", created).
		Str("predicted", p.PredictedWinner).
		Msg("Recorded prediction")

	return &models.RecordHandle{MatchID: p.MatchID, IsNew: created}, nil
}

// Resolve settles a pending prediction against the actual outcome.
// Resolving an already-resolved record is a no-op that returns the
// stored settlement, so redundant reconciliation runs never double-count.
func (l *Ledger) Resolve(ctx context.Context, matchID, actualWinner, finalScore string) (*models.Settlement, error) {
	rec, err := l.store.GetPrediction(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading %s: %v", ErrUnavailable, matchID, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, matchID)
	}

	if rec.Resolved() {
		resolvedAt := l.now()
		if rec.ResolvedAt != nil {
			resolvedAt = *rec.ResolvedAt
		}
		return &models.Settlement{
			MatchID:         matchID,
			IsWin:           rec.Status == models.StatusWon,
			ActualWinner:    rec.ActualWinner,
			FinalScore:      rec.FinalScore,
			Profit:          rec.Profit,
			ResolvedAt:      resolvedAt,
			AlreadyResolved: true,
		}, nil
	}

	isWin := rec.PredictedWinner == actualWinner

	profit := -l.stake
	if isWin {
		profit = round2(l.stake * (l.oddsFor(rec, actualWinner) - 1))
	}

	settlement := &models.Settlement{
		MatchID:      matchID,
		IsWin:        isWin,
		ActualWinner: actualWinner,
		FinalScore:   finalScore,
		Profit:       profit,
		ResolvedAt:   l.now(),
	}

	if err := l.store.SaveSettlement(ctx, matchID, settlement); err != nil {
		return nil, fmt.Errorf("%w: settling %s: %v", ErrUnavailable, matchID, err)
	}

	l.logger.Info().
		Str("match_id", matchID).
		Bool("is_win", isWin).
		Str("actual", actualWinner).
		Str("score", finalScore).
		Float64("profit", profit).
		Msg("Resolved prediction")

	return settlement, nil
}

// FetchRecent returns the latest predictions ordered by scheduled
// kickoff time, newest first.
func (l *Ledger) FetchRecent(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	records, err := l.store.GetRecentPredictions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching recent: %v", ErrUnavailable, err)
	}

	return records, nil
}

// oddsFor picks the recorded decimal odds for the winning side, falling
// back to the conservative default when the field is absent.
func (l *Ledger) oddsFor(rec *models.PredictionRecord, winner string) float64 {
	var odds float64
	switch winner {
	case models.WinnerHome:
		odds = rec.HomeOdds
	case models.WinnerAway:
		odds = rec.AwayOdds
	case models.WinnerDraw:
		odds = rec.DrawOdds
	}

	if odds = normalizeOdds(odds); odds == 0 {
		l.logger.Warn().
			Str("match_id", rec.MatchID).
			Str("winner", winner).
			Float64("fallback", l.fallbackOdds).
			Msg("No usable odds on record, using fallback")
		return l.fallbackOdds
	}

	return odds
}

// normalizeOdds maps non-finite or impossible decimal odds to zero,
// the "absent" value. Decimal odds below 1.0 cannot pay out.
func normalizeOdds(odds float64) float64 {
	if math.IsNaN(odds) || math.IsInf(odds, 0) || odds <= 1.0 {
		return 0
	}
	return odds
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
