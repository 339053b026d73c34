package ledger

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/Alias1177/Tipster/models"
)

// fakeStore is an in-memory PredictionStore. failAll simulates an
// unreachable database.
type fakeStore struct {
	records map[string]*models.PredictionRecord
	failAll bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*models.PredictionRecord)}
}

var errDown = errors.New("connection refused")

func (s *fakeStore) UpsertPrediction(_ context.Context, p *models.PredictionRecord) (bool, error) {
	if s.failAll {
		return false, errDown
	}

	existing, ok := s.records[p.MatchID]
	if !ok {
		cp := *p
		cp.Status = models.StatusPending
		s.records[p.MatchID] = &cp
		return true, nil
	}

	// Settlement fields are never touched by an upsert.
	existing.HomeTeam = p.HomeTeam
	existing.AwayTeam = p.AwayTeam
	existing.League = p.League
	existing.Sport = p.Sport
	existing.KickoffAt = p.KickoffAt
	existing.PredictedWinner = p.PredictedWinner
	existing.Confidence = p.Confidence
	existing.Rationale = p.Rationale
	existing.HomeOdds = p.HomeOdds
	existing.AwayOdds = p.AwayOdds
	existing.DrawOdds = p.DrawOdds
	return false, nil
}

func (s *fakeStore) GetPrediction(_ context.Context, matchID string) (*models.PredictionRecord, error) {
	if s.failAll {
		return nil, errDown
	}
	rec, ok := s.records[matchID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeStore) SaveSettlement(_ context.Context, matchID string, set *models.Settlement) error {
	if s.failAll {
		return errDown
	}
	rec, ok := s.records[matchID]
	if !ok || rec.Status != models.StatusPending {
		return nil
	}
	rec.Status = models.StatusLost
	if set.IsWin {
		rec.Status = models.StatusWon
	}
	rec.ActualWinner = set.ActualWinner
	rec.FinalScore = set.FinalScore
	rec.Profit = set.Profit
	t := set.ResolvedAt
	rec.ResolvedAt = &t
	return nil
}

func (s *fakeStore) GetPendingPredictions(_ context.Context) ([]models.PredictionRecord, error) {
	if s.failAll {
		return nil, errDown
	}
	var out []models.PredictionRecord
	for _, rec := range s.records {
		if rec.Status == models.StatusPending {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *fakeStore) GetResolvedSince(_ context.Context, cutoff time.Time) ([]models.PredictionRecord, error) {
	if s.failAll {
		return nil, errDown
	}
	var out []models.PredictionRecord
	for _, rec := range s.records {
		if rec.Resolved() && rec.ResolvedAt != nil && !rec.ResolvedAt.Before(cutoff) {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ResolvedAt.After(*out[j].ResolvedAt)
	})
	return out, nil
}

func (s *fakeStore) GetRecentPredictions(_ context.Context, limit int) ([]models.PredictionRecord, error) {
	if s.failAll {
		return nil, errDown
	}
	var out []models.PredictionRecord
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].KickoffAt.After(out[j].KickoffAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func testPrediction(matchID string) *models.PredictionRecord {
	return &models.PredictionRecord{
		MatchID:         matchID,
		HomeTeam:        "A",
		AwayTeam:        "B",
		League:          "Premier League",
		Sport:           "football",
		KickoffAt:       time.Now().Add(2 * time.Hour),
		PredictedWinner: models.WinnerHome,
		Confidence:      80,
		HomeOdds:        1.8,
		AwayOdds:        4.2,
		DrawOdds:        3.5,
	}
}

func TestRecordUpsert(t *testing.T) {
	store := newFakeStore()
	l := New(store, 100, 1.90)
	ctx := context.Background()

	first, err := l.Record(ctx, testPrediction("M1"))
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if !first.IsNew {
		t.Errorf("first Record() IsNew = false, want true")
	}

	updated := testPrediction("M1")
	updated.Confidence = 65
	updated.PredictedWinner = models.WinnerAway

	second, err := l.Record(ctx, updated)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if second.IsNew {
		t.Errorf("second Record() IsNew = true, want false")
	}

	recent, err := l.FetchRecent(ctx, 10)
	if err != nil {
		t.Fatalf("FetchRecent() error = %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("FetchRecent() returned %d records, want 1", len(recent))
	}
	if recent[0].Confidence != 65 || recent[0].PredictedWinner != models.WinnerAway {
		t.Errorf("stored record does not reflect latest payload: %+v", recent[0])
	}
}

func TestResolveProfit(t *testing.T) {
	tests := []struct {
		name         string
		modify       func(p *models.PredictionRecord)
		actualWinner string
		wantWin      bool
		wantProfit   float64
	}{
		{
			name:         "win at recorded odds",
			modify:       func(p *models.PredictionRecord) {},
			actualWinner: models.WinnerHome,
			wantWin:      true,
			wantProfit:   80, // 100 * (1.8 - 1)
		},
		{
			name:         "loss costs the flat stake",
			modify:       func(p *models.PredictionRecord) {},
			actualWinner: models.WinnerAway,
			wantWin:      false,
			wantProfit:   -100,
		},
		{
			name: "win with absent odds uses fallback",
			modify: func(p *models.PredictionRecord) {
				p.HomeOdds = 0
			},
			actualWinner: models.WinnerHome,
			wantWin:      true,
			wantProfit:   90, // 100 * (1.90 - 1)
		},
		{
			name: "win with malformed odds uses fallback",
			modify: func(p *models.PredictionRecord) {
				p.HomeOdds = math.NaN()
			},
			actualWinner: models.WinnerHome,
			wantWin:      true,
			wantProfit:   90,
		},
		{
			name: "predicted draw pays draw odds",
			modify: func(p *models.PredictionRecord) {
				p.PredictedWinner = models.WinnerDraw
			},
			actualWinner: models.WinnerDraw,
			wantWin:      true,
			wantProfit:   250, // 100 * (3.5 - 1)
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			l := New(store, 100, 1.90)
			ctx := context.Background()

			p := testPrediction("M1")
			tt.modify(p)
			if _, err := l.Record(ctx, p); err != nil {
				t.Fatalf("Record() error = %v", err)
			}

			settlement, err := l.Resolve(ctx, "M1", tt.actualWinner, "2-1")
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if settlement.IsWin != tt.wantWin {
				t.Errorf("Resolve() IsWin = %v, want %v", settlement.IsWin, tt.wantWin)
			}
			if settlement.Profit != tt.wantProfit {
				t.Errorf("Resolve() Profit = %v, want %v", settlement.Profit, tt.wantProfit)
			}
		})
	}
}

func TestResolveIdempotent(t *testing.T) {
	store := newFakeStore()
	l := New(store, 100, 1.90)
	ctx := context.Background()

	if _, err := l.Record(ctx, testPrediction("M1")); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	first, err := l.Resolve(ctx, "M1", models.WinnerHome, "2-1")
	if err != nil {
		t.Fatalf("first Resolve() error = %v", err)
	}

	// A replay with a contradictory outcome must not rewrite anything.
	second, err := l.Resolve(ctx, "M1", models.WinnerAway, "0-3")
	if err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}

	if !second.AlreadyResolved {
		t.Errorf("second Resolve() AlreadyResolved = false, want true")
	}
	if second.Profit != first.Profit {
		t.Errorf("second Resolve() Profit = %v, want %v", second.Profit, first.Profit)
	}
	if second.ActualWinner != first.ActualWinner {
		t.Errorf("second Resolve() ActualWinner = %q, want %q", second.ActualWinner, first.ActualWinner)
	}

	stored := store.records["M1"]
	if stored.Profit != first.Profit || stored.Status != models.StatusWon {
		t.Errorf("stored settlement changed after replay: %+v", stored)
	}
}

func TestResolveNotFound(t *testing.T) {
	l := New(newFakeStore(), 100, 1.90)

	_, err := l.Resolve(context.Background(), "unknown", models.WinnerHome, "1-0")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve() error = %v, want ErrNotFound", err)
	}
}

func TestStorageUnavailable(t *testing.T) {
	store := newFakeStore()
	store.failAll = true
	l := New(store, 100, 1.90)
	ctx := context.Background()

	if _, err := l.Record(ctx, testPrediction("M1")); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Record() error = %v, want ErrUnavailable", err)
	}
	if _, err := l.Resolve(ctx, "M1", models.WinnerHome, "1-0"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Resolve() error = %v, want ErrUnavailable", err)
	}
	if _, err := l.FetchRecent(ctx, 5); !errors.Is(err, ErrUnavailable) {
		t.Errorf("FetchRecent() error = %v, want ErrUnavailable", err)
	}
}

func TestRecordRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(p *models.PredictionRecord)
		wantErr bool
	}{
		{
			name:    "unknown predicted winner",
			modify:  func(p *models.PredictionRecord) { p.PredictedWinner = "overtime" },
			wantErr: true,
		},
		{
			name:    "empty predicted winner",
			modify:  func(p *models.PredictionRecord) { p.PredictedWinner = "" },
			wantErr: true,
		},
		{
			name:    "negative confidence",
			modify:  func(p *models.PredictionRecord) { p.Confidence = -5 },
			wantErr: true,
		},
		{
			name:    "confidence above 100",
			modify:  func(p *models.PredictionRecord) { p.Confidence = 101 },
			wantErr: true,
		},
		{
			name:   "confidence at the lower bound",
			modify: func(p *models.PredictionRecord) { p.Confidence = 0 },
		},
		{
			name:   "confidence at the upper bound",
			modify: func(p *models.PredictionRecord) { p.Confidence = 100 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			l := New(store, 100, 1.90)

			p := testPrediction("M1")
			tt.modify(p)
			_, err := l.Record(context.Background(), p)

			if tt.wantErr {
				if err == nil {
					t.Fatal("Record() error = nil, want validation failure")
				}
				if errors.Is(err, ErrUnavailable) {
					t.Errorf("Record() error = %v, validation must not look like a storage failure", err)
				}
				if len(store.records) != 0 {
					t.Errorf("rejected prediction reached the store: %+v", store.records)
				}
				return
			}
			if err != nil {
				t.Fatalf("Record() error = %v", err)
			}
		})
	}
}

func TestRecordNormalizesOdds(t *testing.T) {
	store := newFakeStore()
	l := New(store, 100, 1.90)
	ctx := context.Background()

	p := testPrediction("M1")
	p.HomeOdds = math.Inf(1)
	p.AwayOdds = 0.5 // below the minimum payable decimal odds
	if _, err := l.Record(ctx, p); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	stored := store.records["M1"]
	if stored.HomeOdds != 0 || stored.AwayOdds != 0 {
		t.Errorf("malformed odds not normalized: home=%v away=%v", stored.HomeOdds, stored.AwayOdds)
	}
	if stored.DrawOdds != 3.5 {
		t.Errorf("valid odds were altered: draw=%v", stored.DrawOdds)
	}
}
