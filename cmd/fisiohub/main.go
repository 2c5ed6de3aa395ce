package main

import (
	"github.com/Gor0d/FisioHUB-sub000/internal/audit"
	"github.com/Gor0d/FisioHUB-sub000/internal/billing"
	"github.com/Gor0d/FisioHUB-sub000/internal/clock"
	"github.com/Gor0d/FisioHUB-sub000/internal/config"
	"github.com/Gor0d/FisioHUB-sub000/internal/migration"
	"github.com/Gor0d/FisioHUB-sub000/internal/observability"
	"github.com/Gor0d/FisioHUB-sub000/internal/partition"
	"github.com/Gor0d/FisioHUB-sub000/internal/ratelimit"
	"github.com/Gor0d/FisioHUB-sub000/internal/seed"
	"github.com/Gor0d/FisioHUB-sub000/internal/server"
	"github.com/Gor0d/FisioHUB-sub000/internal/tenant"
	"github.com/Gor0d/FisioHUB-sub000/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		clock.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		fx.Invoke(func(conn *gorm.DB) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			return seed.EnsurePlans(conn)
		}),
		audit.Module,
		tenant.Module,
		billing.Module,
		partition.Module,
		ratelimit.Module,
		server.Module,
	)
	app.Run()
}
