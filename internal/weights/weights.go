package weights

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Tipster/models"
)

// Weight config versions exposed to downstream consumers.
const (
	VersionStatic    = "static-v1"
	VersionOptimized = "optimized-v1"
)

// StatsSource supplies the aggregated history the cache calibrates on.
type StatsSource interface {
	Compute(ctx context.Context, period string) (*models.WindowedStats, error)
}

// Options configures the cache. Clock is injectable so tests can force
// TTL expiry deterministically.
type Options struct {
	TTL          time.Duration
	MinSample    int
	StatsTimeout time.Duration
	WinRateHigh  float64
	WinRateLow   float64
	Clock        func() time.Time
}

// Cache holds the current weight configuration and recomputes it only
// when empty or older than the TTL. Consumers always receive a valid
// config: on timeout, failure or insufficient data the static defaults
// are served instead, never an error.
//
// The adjustment is a deliberate three-regime step function rather than
// an optimizer: a clearly profitable history shifts mass toward the
// market-odds signal, a clearly losing one toward recent form and
// motivation, and anything in between keeps the default magnitudes.
type Cache struct {
	stats  StatsSource
	opts   Options
	logger zerolog.Logger

	mu          sync.Mutex
	current     *models.WeightConfig
	validUntil  time.Time
	recomputing bool
}

// New creates a weight cache in the empty state.
func New(stats StatsSource, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.MinSample <= 0 {
		opts.MinSample = 30
	}
	if opts.StatsTimeout <= 0 {
		opts.StatsTimeout = 3 * time.Second
	}
	if opts.WinRateHigh == 0 {
		opts.WinRateHigh = 58
	}
	if opts.WinRateLow == 0 {
		opts.WinRateLow = 45
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Cache{
		stats:  stats,
		opts:   opts,
		logger: log.With().Str("component", "weights").Logger(),
	}
}

// Defaults returns the static weight set, tagged as non-optimized.
func Defaults(now time.Time) *models.WeightConfig {
	return &models.WeightConfig{
		OddsWeight:       0.40,
		FormWeight:       0.30,
		HeadToHeadWeight: 0.20,
		MotivationWeight: 0.10,
		Version:          VersionStatic,
		OptimizedAt:      now,
	}
}

// GetWeights returns the cached configuration, recomputing it when the
// cache is empty or expired. Readers arriving while a recompute is in
// flight are served the last-known value (or the defaults on a cold
// start) rather than blocking on it.
func (c *Cache) GetWeights(ctx context.Context) *models.WeightConfig {
	c.mu.Lock()
	now := c.opts.Clock()

	if c.current != nil && now.Before(c.validUntil) {
		w := *c.current
		c.mu.Unlock()
		return &w
	}

	if c.recomputing {
		if c.current != nil {
			w := *c.current
			c.mu.Unlock()
			return &w
		}
		c.mu.Unlock()
		return Defaults(now)
	}

	c.recomputing = true
	c.mu.Unlock()

	w := c.recompute(ctx)

	c.mu.Lock()
	c.current = w
	c.validUntil = c.opts.Clock().Add(c.opts.TTL)
	c.recomputing = false
	out := *c.current
	c.mu.Unlock()

	return &out
}

// recompute derives weights from all-time stats under a hard timeout.
func (c *Cache) recompute(ctx context.Context) *models.WeightConfig {
	ctx, cancel := context.WithTimeout(ctx, c.opts.StatsTimeout)
	defer cancel()

	now := c.opts.Clock()

	ws, err := c.stats.Compute(ctx, models.PeriodAll)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Stats unavailable, serving default weights")
		return Defaults(now)
	}

	if ws.Total < c.opts.MinSample {
		c.logger.Info().
			Int("total", ws.Total).
			Int("min_sample", c.opts.MinSample).
			Msg("Insufficient history, serving default weights")
		return Defaults(now)
	}

	w := Defaults(now)
	w.Version = VersionOptimized
	w.DataPoints = ws.Total

	switch {
	case ws.WinRate >= c.opts.WinRateHigh:
		// The market signal is carrying the model; lean on it harder.
		w.OddsWeight = 0.50
		w.FormWeight = 0.25
		w.HeadToHeadWeight = 0.15
		w.MotivationWeight = 0.10
	case ws.WinRate <= c.opts.WinRateLow:
		// The market signal is failing us; favor recent form and give
		// the motivational factor a little more room.
		w.OddsWeight = 0.30
		w.FormWeight = 0.40
		w.HeadToHeadWeight = 0.15
		w.MotivationWeight = 0.15
	}

	c.logger.Info().
		Float64("win_rate", ws.WinRate).
		Int("data_points", w.DataPoints).
		Str("version", w.Version).
		Msg("Recomputed model weights")

	return w
}
