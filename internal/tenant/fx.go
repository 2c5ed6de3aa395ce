// Package tenant wires the directory, repository, and lifecycle service.
package tenant

import (
	"context"

	"github.com/Gor0d/FisioHUB-sub000/internal/cache"
	"github.com/Gor0d/FisioHUB-sub000/internal/clock"
	"github.com/Gor0d/FisioHUB-sub000/internal/config"
	"github.com/Gor0d/FisioHUB-sub000/internal/observability/metrics"
	"github.com/Gor0d/FisioHUB-sub000/internal/tenant/directory"
	"github.com/Gor0d/FisioHUB-sub000/internal/tenant/domain"
	"github.com/Gor0d/FisioHUB-sub000/internal/tenant/publicid"
	"github.com/Gor0d/FisioHUB-sub000/internal/tenant/repository"
	"github.com/Gor0d/FisioHUB-sub000/internal/tenant/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("tenant",
	fx.Provide(func(cfg config.Config) (*publicid.Deriver, error) {
		return publicid.NewDeriver(cfg.Tenant.PublicIDSalt)
	}),
	fx.Provide(repository.Provide),
	fx.Provide(func(clk clock.Clock) cache.Cache[string, *domain.Tenant] {
		return cache.NewTTLCache[string, *domain.Tenant](clk)
	}),
	fx.Provide(func(repo domain.Repository, store cache.Cache[string, *domain.Tenant], cfg config.Config, log *zap.Logger, m *metrics.Metrics) *directory.Directory {
		return directory.New(repo, store, cfg.Tenant.CacheTTL, log, m)
	}),
	fx.Provide(func(cfg config.Config) directory.SweeperConfig {
		return directory.SweeperConfig{Interval: cfg.Tenant.SweepInterval}
	}),
	fx.Provide(directory.NewSweeper),
	fx.Provide(service.Provide),
	fx.Invoke(runSweeper),
)

func runSweeper(lc fx.Lifecycle, sweeper *directory.Sweeper) {
	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go sweeper.RunForever(runCtx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return nil
		},
	})
}
