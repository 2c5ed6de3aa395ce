package directory

import (
	"context"
	"time"

	"github.com/Gor0d/FisioHUB-sub000/internal/cache"
	"github.com/Gor0d/FisioHUB-sub000/internal/tenant/domain"
	"go.uber.org/zap"
)

// SweeperConfig controls the cache eviction loop.
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

// Sweeper evicts expired directory entries on a fixed interval. Reads
// already ignore expired entries, so this only bounds memory.
type Sweeper struct {
	store cache.Cache[string, *domain.Tenant]
	log   *zap.Logger
	cfg   SweeperConfig
}

func NewSweeper(store cache.Cache[string, *domain.Tenant], log *zap.Logger, cfg SweeperConfig) *Sweeper {
	return &Sweeper{
		store: store,
		log:   log.Named("tenant.directory.sweeper"),
		cfg:   cfg.withDefaults(),
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
	evicted := s.store.Sweep()
	if evicted > 0 {
		s.log.Debug("evicted expired tenant cache entries", zap.Int("entries", evicted))
	}
}
