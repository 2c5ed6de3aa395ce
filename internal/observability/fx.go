// Package observability bundles logging and metrics wiring.
package observability

import (
	"github.com/Gor0d/FisioHUB-sub000/internal/config"
	"github.com/Gor0d/FisioHUB-sub000/internal/observability/logger"
	"github.com/Gor0d/FisioHUB-sub000/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("observability",
	fx.Provide(func(cfg config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})
	}),
	fx.Provide(metrics.New),
)
