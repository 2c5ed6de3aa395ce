package ratelimit

import (
	"context"

	"github.com/Gor0d/FisioHUB-sub000/internal/clock"
	"github.com/Gor0d/FisioHUB-sub000/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("ratelimit",
	fx.Provide(func(cfg config.Config, clk clock.Clock) *Registry {
		return NewRegistry(cfg.RateLimit, clk)
	}),
	fx.Provide(DefaultSweeperConfig),
	fx.Provide(NewSweeper),
	fx.Invoke(runSweeper),
)

func runSweeper(lc fx.Lifecycle, sweeper *Sweeper) {
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
