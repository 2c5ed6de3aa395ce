// Package seed bootstraps the plan catalog on startup.
package seed

import (
	"context"
	"errors"

	billingdomain "github.com/Gor0d/FisioHUB-sub000/internal/billing/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type planSeed struct {
	slug     string
	name     string
	limits   datatypes.JSONMap
	features datatypes.JSONMap
}

// defaultPlans is the reference catalog. Limits use -1 for unlimited;
// features default to false when absent.
var defaultPlans = []planSeed{
	{
		slug: "trial",
		name: "Período de Teste",
		limits: datatypes.JSONMap{
			"patients":   10,
			"indicators": 100,
		},
		features: datatypes.JSONMap{
			"indicator_dashboard": false,
			"exports":             false,
		},
	},
	{
		slug: "essencial",
		name: "Essencial",
		limits: datatypes.JSONMap{
			"patients":   100,
			"indicators": 5000,
		},
		features: datatypes.JSONMap{
			"indicator_dashboard": true,
			"exports":             false,
		},
	},
	{
		slug: "profissional",
		name: "Profissional",
		limits: datatypes.JSONMap{
			"patients":   -1,
			"indicators": -1,
		},
		features: datatypes.JSONMap{
			"indicator_dashboard": true,
			"exports":             true,
		},
	},
}

// EnsurePlans creates any missing catalog plans. Existing plans are left
// untouched so operators can tune limits without being overwritten.
func EnsurePlans(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entry := range defaultPlans {
			var plan billingdomain.Plan
			err := tx.Where("slug = ?", entry.slug).First(&plan).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			plan = billingdomain.Plan{
				ID:       node.Generate(),
				Slug:     entry.slug,
				Name:     entry.name,
				Limits:   entry.limits,
				Features: entry.features,
			}
			if err := tx.Create(&plan).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
