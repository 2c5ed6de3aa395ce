// Package repository persists plans and subscriptions on gorm.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gor0d/FisioHUB-sub000/internal/billing/domain"
	tenantdomain "github.com/Gor0d/FisioHUB-sub000/internal/tenant/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func Provide(db *gorm.DB) domain.Repository {
	return New(db)
}

func (r *Repository) FindPlanBySlug(ctx context.Context, slug string) (*domain.Plan, error) {
	var plan domain.Plan
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, storageErr(err)
	}
	return &plan, nil
}

// FindLiveSubscription returns the tenant's current entitlement. Missing or
// lapsed subscriptions surface as ErrNoActiveSubscription so quota checks
// fail closed.
func (r *Repository) FindLiveSubscription(ctx context.Context, tenantID snowflake.ID) (*domain.Subscription, error) {
	now := time.Now().UTC()
	var sub domain.Subscription
	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("tenant_id = ? AND status IN ?", tenantID, []domain.SubscriptionStatus{
			domain.StatusTrialing,
			domain.StatusActive,
		}).
		Where("current_period_end IS NULL OR current_period_end > ?", now).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNoActiveSubscription
		}
		return nil, storageErr(err)
	}
	return &sub, nil
}

func (r *Repository) CreateSubscription(ctx context.Context, sub *domain.Subscription) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		return storageErr(err)
	}
	return nil
}

// CancelSubscriptions marks every live subscription of a tenant canceled.
// Called on tenant deletion.
func (r *Repository) CancelSubscriptions(ctx context.Context, tenantID snowflake.ID) error {
	err := r.db.WithContext(ctx).Model(&domain.Subscription{}).
		Where("tenant_id = ? AND status IN ?", tenantID, []domain.SubscriptionStatus{
			domain.StatusTrialing,
			domain.StatusActive,
			domain.StatusPastDue,
		}).
		Updates(map[string]any{
			"status":     domain.StatusCanceled,
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return storageErr(err)
	}
	return nil
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", tenantdomain.ErrStorageUnavailable, err)
}
