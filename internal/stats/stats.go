package stats

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Tipster/internal/ledger"
	"github.com/Alias1177/Tipster/models"
)

// Aggregator computes windowed accuracy and profitability views over
// resolved ledger records. It never persists anything; every call is a
// fresh scan of the window.
type Aggregator struct {
	store  models.PredictionStore
	stake  float64
	now    func() time.Time
	logger zerolog.Logger
}

// New creates an aggregator. Stake must match the flat stake the ledger
// settles with, otherwise ROI is meaningless.
func New(store models.PredictionStore, stake float64) *Aggregator {
	return &Aggregator{
		store:  store,
		stake:  stake,
		now:    time.Now,
		logger: log.With().Str("component", "stats").Logger(),
	}
}

// Compute aggregates the resolved records of the given period into a
// WindowedStats. A window with no resolved records reports all zeros.
func (a *Aggregator) Compute(ctx context.Context, period string) (*models.WindowedStats, error) {
	cutoff := models.PeriodCutoff(period, a.now())

	records, err := a.store.GetResolvedSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("%w: loading resolved predictions: %v", ledger.ErrUnavailable, err)
	}

	ws := &models.WindowedStats{
		Period: period,
		Streak: models.Streak{Type: models.StreakNone},
	}

	for i := range records {
		rec := &records[i]
		if !rec.Resolved() {
			continue
		}

		ws.Total++
		win := rec.Status == models.StatusWon
		if win {
			ws.Wins++
		} else {
			ws.Losses++
		}
		ws.TotalProfit += rec.Profit
	}

	ws.TierHigh, ws.TierMid, ws.TierLow = tierBreakdown(records)

	ws.TotalProfit = round2(ws.TotalProfit)
	ws.WinRate = winRate(ws.Wins, ws.Total)
	if ws.Total > 0 && a.stake > 0 {
		ws.ROI = round1(ws.TotalProfit / (float64(ws.Total) * a.stake) * 100)
	}
	ws.Streak = streak(records)

	a.logger.Debug().
		Str("period", period).
		Int("total", ws.Total).
		Float64("win_rate", ws.WinRate).
		Msg("Computed windowed stats")

	return ws, nil
}

// tierBreakdown buckets resolved records into the three confidence
// tiers: high >= 75, mid 65-74, low < 65.
func tierBreakdown(records []models.PredictionRecord) (high, mid, low models.TierStats) {
	for i := range records {
		rec := &records[i]
		if !rec.Resolved() {
			continue
		}

		bucket := &low
		switch {
		case rec.Confidence >= models.TierHighMin:
			bucket = &high
		case rec.Confidence >= models.TierMidMin:
			bucket = &mid
		}

		bucket.Total++
		if rec.Status == models.StatusWon {
			bucket.Wins++
		}
	}

	high.WinRate = winRate(high.Wins, high.Total)
	mid.WinRate = winRate(mid.Wins, mid.Total)
	low.WinRate = winRate(low.Wins, low.Total)
	return high, mid, low
}

// streak finds the current unbroken run of same-outcome resolutions.
// Records must already be ordered by resolved_at descending, which is
// how the store returns them.
func streak(records []models.PredictionRecord) models.Streak {
	s := models.Streak{Type: models.StreakNone}

	for i := range records {
		rec := &records[i]
		if !rec.Resolved() {
			continue
		}

		outcome := models.StreakLoss
		if rec.Status == models.StatusWon {
			outcome = models.StreakWin
		}

		if s.Type == models.StreakNone {
			s.Type = outcome
		}
		if outcome != s.Type {
			break
		}
		s.Count++
	}

	return s
}

func winRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(wins) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
