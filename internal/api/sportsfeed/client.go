package sportsfeed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpClient "github.com/Alias1177/Tipster/internal/platform/http"
	"github.com/Alias1177/Tipster/models"
)

// Client is the score feed API client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new score feed client
type ClientOptions struct {
	APIKey          string
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new score feed API client
func NewClient(options ClientOptions) *Client {
	httpOpts := httpClient.ClientOptions{
		Timeout:         options.RequestTimeout,
		RequestsPerSec:  options.RequestsPerSec,
		MaxRetryTimeout: options.MaxRetryTimeout,
	}

	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = "https://api.scorefeed.io/v1"
	}

	return &Client{
		apiKey:     options.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient.NewClient(httpOpts),
		logger:     log.With().Str("component", "sportsfeed_client").Logger(),
	}
}

// scoresResponse is the provider's payload for the scores endpoint.
// Scores come back as strings; an event without an id is still usable
// for name-based matching.
type scoresResponse struct {
	Status string `json:"status,omitempty"`
	Events []struct {
		ID          string    `json:"id"`
		HomeTeam    string    `json:"home_team"`
		AwayTeam    string    `json:"away_team"`
		HomeScore   string    `json:"home_score"`
		AwayScore   string    `json:"away_score"`
		Completed   bool      `json:"completed"`
		CompletedAt time.Time `json:"completed_at"`
	} `json:"events"`
}

// GetFinishedEvents fetches completed events within the lookback window.
// Events the provider still marks in progress are dropped here.
func (c *Client) GetFinishedEvents(ctx context.Context, lookback time.Duration) ([]models.FinishedEvent, error) {
	hours := int(lookback.Hours())
	if hours < 1 {
		hours = 1
	}

	url := fmt.Sprintf("%s/scores?hours=%d&apikey=%s", c.baseURL, hours, c.apiKey)

	c.logger.Debug().Int("lookback_hours", hours).Msg("Fetching finished events")

	var data scoresResponse
	if err := c.httpClient.GetJSON(ctx, url, &data); err != nil {
		return nil, fmt.Errorf("fetching scores: %w", err)
	}

	if data.Status == "error" {
		return nil, fmt.Errorf("score feed API error")
	}

	var events []models.FinishedEvent
	for _, e := range data.Events {
		if !e.Completed {
			continue
		}

		homeScore, err := strconv.Atoi(e.HomeScore)
		if err != nil {
			c.logger.Warn().Str("id", e.ID).Str("home_score", e.HomeScore).Msg("Unparseable home score, skipping event")
			continue
		}
		awayScore, err := strconv.Atoi(e.AwayScore)
		if err != nil {
			c.logger.Warn().Str("id", e.ID).Str("away_score", e.AwayScore).Msg("Unparseable away score, skipping event")
			continue
		}

		events = append(events, models.FinishedEvent{
			ID:          e.ID,
			HomeTeam:    e.HomeTeam,
			AwayTeam:    e.AwayTeam,
			HomeScore:   homeScore,
			AwayScore:   awayScore,
			Completed:   true,
			CompletedAt: e.CompletedAt,
		})
	}

	c.logger.Debug().Int("count", len(events)).Msg("Fetched finished events")
	return events, nil
}
