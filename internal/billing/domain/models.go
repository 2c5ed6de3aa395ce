// Package domain holds plan and subscription models for quota enforcement.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// UnlimitedLimit marks a resource with no numeric ceiling.
const UnlimitedLimit = int64(-1)

// SubscriptionStatus is the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	StatusTrialing SubscriptionStatus = "trialing"
	StatusActive   SubscriptionStatus = "active"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
)

var (
	ErrPlanNotFound         = errors.New("plan_not_found")
	ErrNoActiveSubscription = errors.New("no_active_subscription")
	ErrPlanLimitExceeded    = errors.New("plan_limit_exceeded")
	ErrFeatureNotAvailable  = errors.New("feature_not_available")
	ErrUnknownResource      = errors.New("unknown_resource")
)

// Plan is an immutable tier of resource limits and feature flags. Limits map
// resource names to integer ceilings, with -1 meaning unlimited; absent
// resources are unlimited too.
type Plan struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"-"`
	Slug      string            `gorm:"type:text;not null;uniqueIndex" json:"slug"`
	Name      string            `gorm:"type:text;not null" json:"name"`
	Limits    datatypes.JSONMap `gorm:"type:jsonb" json:"limits"`
	Features  datatypes.JSONMap `gorm:"type:jsonb" json:"features"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

func (Plan) TableName() string { return "plans" }

// LimitFor returns the ceiling for a resource. limited is false when the
// plan does not gate the resource at all.
func (p Plan) LimitFor(resource string) (limit int64, limited bool) {
	raw, ok := p.Limits[resource]
	if !ok {
		return 0, false
	}
	value, ok := numeric(raw)
	if !ok || value == UnlimitedLimit {
		return 0, false
	}
	return value, true
}

// HasFeature reports whether a feature flag is enabled on the plan.
func (p Plan) HasFeature(feature string) bool {
	raw, ok := p.Features[feature]
	if !ok {
		return false
	}
	enabled, ok := raw.(bool)
	return ok && enabled
}

// Subscription binds a tenant to a plan with a validity window. At most one
// subscription may be live (trialing or active) per tenant at any time.
type Subscription struct {
	ID                 snowflake.ID       `gorm:"primaryKey" json:"-"`
	TenantID           snowflake.ID       `gorm:"not null;index" json:"-"`
	PlanID             snowflake.ID       `gorm:"not null" json:"-"`
	Plan               Plan               `gorm:"foreignKey:PlanID" json:"plan"`
	Status             SubscriptionStatus `gorm:"type:text;not null" json:"status"`
	CurrentPeriodStart time.Time          `gorm:"not null" json:"current_period_start"`
	CurrentPeriodEnd   *time.Time         `json:"current_period_end,omitempty"`
	CreatedAt          time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt          time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

func (Subscription) TableName() string { return "subscriptions" }

// IsLive reports whether the subscription currently entitles the tenant.
func (s Subscription) IsLive(now time.Time) bool {
	if s.Status != StatusTrialing && s.Status != StatusActive {
		return false
	}
	if s.CurrentPeriodEnd != nil && now.After(*s.CurrentPeriodEnd) {
		return false
	}
	return true
}

// Repository loads plans and the currently live subscription. Quota checks
// must always go through FindLiveSubscription: the live subscription is
// deliberately never cached.
type Repository interface {
	FindPlanBySlug(ctx context.Context, slug string) (*Plan, error)
	FindLiveSubscription(ctx context.Context, tenantID snowflake.ID) (*Subscription, error)
	CreateSubscription(ctx context.Context, sub *Subscription) error
	CancelSubscriptions(ctx context.Context, tenantID snowflake.ID) error
}

func numeric(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
