package models

import (
	"fmt"
	"time"
)

// Prediction outcomes for the moneyline markets we track.
const (
	WinnerHome = "home"
	WinnerAway = "away"
	WinnerDraw = "draw"
)

// Lifecycle statuses of a prediction record. A record starts as pending
// and moves exactly once to won or lost; both are terminal.
const (
	StatusPending = "pending"
	StatusWon     = "won"
	StatusLost    = "lost"
)

// Confidence tier boundaries (inclusive on the lower edge of each tier).
const (
	TierHighMin = 75
	TierMidMin  = 65
)

// PredictionRecord is one row of the prediction ledger, keyed by the
// external match identifier. Odds are decimal odds captured at
// prediction time; a zero value means the odds were not available.
type PredictionRecord struct {
	MatchID         string    `json:"match_id"`
	HomeTeam        string    `json:"home_team"`
	AwayTeam        string    `json:"away_team"`
	League          string    `json:"league,omitempty"`
	Sport           string    `json:"sport,omitempty"`
	KickoffAt       time.Time `json:"kickoff_at"`
	PredictedWinner string    `json:"predicted_winner"`
	Confidence      int       `json:"confidence"`
	Rationale       string    `json:"rationale,omitempty"`
	HomeOdds        float64   `json:"home_odds,omitempty"`
	AwayOdds        float64   `json:"away_odds,omitempty"`
	DrawOdds        float64   `json:"draw_odds,omitempty"`

	Status string `json:"status"`

	// Settlement payload, populated only once the record is resolved.
	ActualWinner string     `json:"actual_winner,omitempty"`
	FinalScore   string     `json:"final_score,omitempty"`
	Profit       float64    `json:"profit"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

// Resolved reports whether the record carries a terminal status.
func (p *PredictionRecord) Resolved() bool {
	return p.Status == StatusWon || p.Status == StatusLost
}

// RecordHandle is returned by the ledger for every upsert.
type RecordHandle struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// Settlement is the outcome of resolving a single prediction.
// AlreadyResolved is set when the resolve call was a no-op replay.
type Settlement struct {
	MatchID         string    `json:"match_id"`
	IsWin           bool      `json:"is_win"`
	ActualWinner    string    `json:"actual_winner"`
	FinalScore      string    `json:"final_score"`
	Profit          float64   `json:"profit"`
	ResolvedAt      time.Time `json:"resolved_at"`
	AlreadyResolved bool      `json:"already_resolved,omitempty"`
}

// FinishedEvent is a completed match as reported by the results provider.
type FinishedEvent struct {
	ID          string    `json:"id"`
	HomeTeam    string    `json:"home_team"`
	AwayTeam    string    `json:"away_team"`
	HomeScore   int       `json:"home_score"`
	AwayScore   int       `json:"away_score"`
	Completed   bool      `json:"completed"`
	CompletedAt time.Time `json:"completed_at"`
}

// Winner derives the moneyline outcome from the final score.
func (e *FinishedEvent) Winner() string {
	switch {
	case e.HomeScore > e.AwayScore:
		return WinnerHome
	case e.AwayScore > e.HomeScore:
		return WinnerAway
	default:
		return WinnerDraw
	}
}

// Score formats the final score from the home side's perspective.
func (e *FinishedEvent) Score() string {
	return fmt.Sprintf("%d-%d", e.HomeScore, e.AwayScore)
}

// ReconcileReport summarizes one batch reconciliation run.
// TotalPending counts the pending records seen before the run; pending
// records the provider had no finished counterpart for are not errors,
// they are simply retried on the next run.
type ReconcileReport struct {
	TotalPending  int          `json:"total_pending"`
	ResolvedCount int          `json:"resolved_count"`
	Resolved      []Settlement `json:"resolved,omitempty"`
}

// TierStats is the accuracy breakdown of one confidence bucket.
type TierStats struct {
	Total   int     `json:"total"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"win_rate"`
}

// Streak types for WindowedStats.
const (
	StreakWin  = "win"
	StreakLoss = "loss"
	StreakNone = "none"
)

// Streak is the current unbroken run of same-outcome resolutions,
// scanning most recent first.
type Streak struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// WindowedStats is a derived view over the resolved records of a time
// window. Zero-record windows report all zeros.
type WindowedStats struct {
	Period      string    `json:"period"`
	Total       int       `json:"total"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	WinRate     float64   `json:"win_rate"`
	TotalProfit float64   `json:"total_profit"`
	ROI         float64   `json:"roi"`
	TierHigh    TierStats `json:"tier_high"`
	TierMid     TierStats `json:"tier_mid"`
	TierLow     TierStats `json:"tier_low"`
	Streak      Streak    `json:"streak"`
}

// WeightConfig is the cached set of named weights biasing the scoring
// model. Relative magnitudes matter; the sum is not normalized.
// DataPoints and OptimizedAt carry provenance for downstream display.
type WeightConfig struct {
	OddsWeight       float64   `json:"odds_weight"`
	FormWeight       float64   `json:"form_weight"`
	HeadToHeadWeight float64   `json:"head_to_head_weight"`
	MotivationWeight float64   `json:"motivation_weight"`
	Version          string    `json:"version"`
	DataPoints       int       `json:"data_points"`
	OptimizedAt      time.Time `json:"optimized_at"`
}
