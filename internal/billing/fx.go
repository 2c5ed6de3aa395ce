// Package billing wires plan storage and the quota enforcer.
package billing

import (
	"github.com/Gor0d/FisioHUB-sub000/internal/billing/quota"
	"github.com/Gor0d/FisioHUB-sub000/internal/billing/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("billing",
	fx.Provide(repository.Provide),
	fx.Provide(quota.NewEnforcer),
)
