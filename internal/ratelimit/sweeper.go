package ratelimit

import (
	"context"
	"time"

	"github.com/Gor0d/FisioHUB-sub000/internal/clock"
	"go.uber.org/zap"
)

// SweeperConfig controls the idle-bucket cleanup loop.
type SweeperConfig struct {
	Interval time.Duration
}

func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{Interval: 5 * time.Minute}
}

func (c SweeperConfig) withDefaults() SweeperConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultSweeperConfig().Interval
	}
	return c
}

// Sweeper periodically removes buckets with no activity inside the window,
// bounding memory without touching correctness: expired timestamps are
// already ignored on the request path.
type Sweeper struct {
	registry *Registry
	clk      clock.Clock
	log      *zap.Logger
	cfg      SweeperConfig
}

func NewSweeper(registry *Registry, clk clock.Clock, log *zap.Logger, cfg SweeperConfig) *Sweeper {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Sweeper{
		registry: registry,
		clk:      clk,
		log:      log.Named("ratelimit.sweeper"),
		cfg:      cfg.withDefaults(),
	}
}

func (s *Sweeper) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		s.RunOnce()
	}
}

func (s *Sweeper) RunOnce() {
	removed := s.registry.SweepAll(s.clk.Now())
	if removed > 0 {
		s.log.Debug("removed idle rate limit buckets", zap.Int("buckets", removed))
	}
}
