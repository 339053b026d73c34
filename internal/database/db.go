package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Alias1177/Tipster/models"
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New creates a new database connection
func New(params ConnectionParams) (*DB, error) {
	// Create PostgreSQL connection string
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Check connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS predictions (
			match_id TEXT PRIMARY KEY,
			home_team TEXT NOT NULL,
			away_team TEXT NOT NULL,
			league TEXT,
			sport TEXT,
			kickoff_at TIMESTAMP NOT NULL,
			predicted_winner TEXT NOT NULL,
			confidence INTEGER NOT NULL,
			rationale TEXT,
			home_odds DOUBLE PRECISION,
			away_odds DOUBLE PRECISION,
			draw_odds DOUBLE PRECISION,
			status TEXT NOT NULL,
			actual_winner TEXT,
			final_score TEXT,
			profit DOUBLE PRECISION,
			resolved_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_predictions_status_resolved
		ON predictions (status, resolved_at)
	`)

	return err
}

// UpsertPrediction inserts a prediction by match_id or updates the
// descriptive and prediction fields of an existing row. The returned
// flag reports whether the row was created. Settlement fields are never
// touched here; only the resolver writes those.
func (db *DB) UpsertPrediction(ctx context.Context, p *models.PredictionRecord) (bool, error) {
	var created bool

	err := db.QueryRowContext(ctx, `
		INSERT INTO predictions (
			match_id, home_team, away_team, league, sport, kickoff_at,
			predicted_winner, confidence, rationale,
			home_odds, away_odds, draw_odds, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (match_id)
		DO UPDATE SET
			home_team = EXCLUDED.home_team,
			away_team = EXCLUDED.away_team,
			league = EXCLUDED.league,
			sport = EXCLUDED.sport,
			kickoff_at = EXCLUDED.kickoff_at,
			predicted_winner = EXCLUDED.predicted_winner,
			confidence = EXCLUDED.confidence,
			rationale = EXCLUDED.rationale,
			home_odds = EXCLUDED.home_odds,
			away_odds = EXCLUDED.away_odds,
			draw_odds = EXCLUDED.draw_odds
		RETURNING (xmax = 0)
	`,
		p.MatchID, p.HomeTeam, p.AwayTeam, p.League, p.Sport, p.KickoffAt,
		p.PredictedWinner, p.Confidence, p.Rationale,
		p.HomeOdds, p.AwayOdds, p.DrawOdds, models.StatusPending,
	).Scan(&created)

	if err != nil {
		return false, err
	}

	return created, nil
}

// GetPrediction retrieves a single prediction by match id.
// Returns nil without error when no row exists.
func (db *DB) GetPrediction(ctx context.Context, matchID string) (*models.PredictionRecord, error) {
	row := db.QueryRowContext(ctx, selectColumns+`
		FROM predictions
		WHERE match_id = $1
	`, matchID)

	p, err := scanPrediction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No prediction found
		}
		return nil, err
	}

	return p, nil
}

// SaveSettlement writes the settlement payload and moves the row to its
// terminal status. Only pending rows are updated, so a replay after a
// concurrent resolve leaves the stored settlement untouched.
func (db *DB) SaveSettlement(ctx context.Context, matchID string, s *models.Settlement) error {
	status := models.StatusLost
	if s.IsWin {
		status = models.StatusWon
	}

	_, err := db.ExecContext(ctx, `
		UPDATE predictions
		SET status = $1, actual_winner = $2, final_score = $3, profit = $4, resolved_at = $5
		WHERE match_id = $6 AND status = $7
	`, status, s.ActualWinner, s.FinalScore, s.Profit, s.ResolvedAt, matchID, models.StatusPending)

	return err
}

// GetPendingPredictions retrieves all unresolved predictions, oldest
// kickoff first so long-waiting records are matched first.
func (db *DB) GetPendingPredictions(ctx context.Context) ([]models.PredictionRecord, error) {
	rows, err := db.QueryContext(ctx, selectColumns+`
		FROM predictions
		WHERE status = $1
		ORDER BY kickoff_at ASC
	`, models.StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPredictions(rows)
}

// GetResolvedSince retrieves resolved predictions with resolved_at at or
// after cutoff, most recently resolved first.
func (db *DB) GetResolvedSince(ctx context.Context, cutoff time.Time) ([]models.PredictionRecord, error) {
	rows, err := db.QueryContext(ctx, selectColumns+`
		FROM predictions
		WHERE status IN ($1, $2) AND resolved_at >= $3
		ORDER BY resolved_at DESC
	`, models.StatusWon, models.StatusLost, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPredictions(rows)
}

// GetRecentPredictions retrieves the latest predictions by scheduled
// kickoff time, newest first.
func (db *DB) GetRecentPredictions(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	rows, err := db.QueryContext(ctx, selectColumns+`
		FROM predictions
		ORDER BY kickoff_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPredictions(rows)
}

const selectColumns = `
	SELECT
		match_id, home_team, away_team, league, sport, kickoff_at,
		predicted_winner, confidence, rationale,
		home_odds, away_odds, draw_odds, status,
		actual_winner, final_score, profit, resolved_at`

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrediction(row rowScanner) (*models.PredictionRecord, error) {
	var p models.PredictionRecord
	var league, sport, rationale sql.NullString
	var homeOdds, awayOdds, drawOdds, profit sql.NullFloat64
	var actualWinner, finalScore sql.NullString
	var resolvedAt sql.NullTime

	err := row.Scan(
		&p.MatchID, &p.HomeTeam, &p.AwayTeam, &league, &sport, &p.KickoffAt,
		&p.PredictedWinner, &p.Confidence, &rationale,
		&homeOdds, &awayOdds, &drawOdds, &p.Status,
		&actualWinner, &finalScore, &profit, &resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	if league.Valid {
		p.League = league.String
	}
	if sport.Valid {
		p.Sport = sport.String
	}
	if rationale.Valid {
		p.Rationale = rationale.String
	}
	if homeOdds.Valid {
		p.HomeOdds = homeOdds.Float64
	}
	if awayOdds.Valid {
		p.AwayOdds = awayOdds.Float64
	}
	if drawOdds.Valid {
		p.DrawOdds = drawOdds.Float64
	}
	if actualWinner.Valid {
		p.ActualWinner = actualWinner.String
	}
	if finalScore.Valid {
		p.FinalScore = finalScore.String
	}
	if profit.Valid {
		p.Profit = profit.Float64
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		p.ResolvedAt = &t
	}

	return &p, nil
}

func scanPredictions(rows *sql.Rows) ([]models.PredictionRecord, error) {
	var out []models.PredictionRecord
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}

	return out, rows.Err()
}
