// Package domain holds the tenant identity model shared across the core.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// TenantStatus is the lifecycle state of a tenant.
type TenantStatus string

const (
	StatusTrial     TenantStatus = "trial"
	StatusActive    TenantStatus = "active"
	StatusSuspended TenantStatus = "suspended"
)

var (
	ErrInvalidIdentifier    = errors.New("invalid_identifier")
	ErrTenantNotFound       = errors.New("tenant_not_found")
	ErrTenantInactive       = errors.New("tenant_inactive")
	ErrInvalidSlug          = errors.New("invalid_slug")
	ErrInvalidName          = errors.New("invalid_name")
	ErrSlugTaken            = errors.New("slug_taken")
	ErrDeleteNotConfirmed   = errors.New("delete_not_confirmed")
	ErrManagementKeyInvalid = errors.New("management_key_invalid")
	ErrStorageUnavailable   = errors.New("storage_unavailable")
)

// Tenant is one isolated customer organization. Slug is the internal,
// human-chosen identifier and never crosses the API boundary; PublicID is
// the opaque token derived from it. ManagementKeyHash guards the lifecycle
// operations; the plaintext key is shown once at registration.
type Tenant struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"-"`
	Slug              string       `gorm:"type:text;not null;uniqueIndex" json:"-"`
	PublicID          string       `gorm:"type:text;not null;uniqueIndex" json:"public_id"`
	Name              string       `gorm:"type:text;not null" json:"name"`
	Status            TenantStatus `gorm:"type:text;not null;default:trial" json:"status"`
	IsActive          bool         `gorm:"not null;default:true" json:"is_active"`
	ManagementKeyHash string       `gorm:"type:text;not null" json:"-"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Tenant) TableName() string { return "tenants" }

// Repository is the persistent tenant lookup behind the directory cache.
// Implementations must report storage faults as ErrStorageUnavailable,
// never as ErrTenantNotFound.
type Repository interface {
	FindByPublicID(ctx context.Context, publicID string) (*Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*Tenant, error)
	Create(ctx context.Context, tenant *Tenant) error
	UpdateStatus(ctx context.Context, id snowflake.ID, status TenantStatus, isActive bool) error
	Delete(ctx context.Context, id snowflake.ID) error
}

// RegisterRequest carries the registration input.
type RegisterRequest struct {
	Slug string
	Name string
}

// Registration is the result of a successful Register call. ManagementKey
// is the only time the plaintext key is available.
type Registration struct {
	Tenant        *Tenant
	ManagementKey string
}

// Service covers the tenant lifecycle operations. Suspend, Reactivate, and
// Delete require the management key issued at registration.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Registration, error)
	SlugAvailable(ctx context.Context, slug string) (bool, error)
	Suspend(ctx context.Context, publicID, managementKey string) (*Tenant, error)
	Reactivate(ctx context.Context, publicID, managementKey string) (*Tenant, error)
	// Delete is irreversible: it destroys the tenant's partition before
	// removing the record, and requires the caller to echo the slug back.
	Delete(ctx context.Context, publicID, confirmSlug, managementKey string) error
}
