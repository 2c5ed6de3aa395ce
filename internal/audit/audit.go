// Package audit keeps an immutable trail of tenant lifecycle actions.
package audit

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Lifecycle actions recorded by the tenant service.
const (
	ActionTenantRegistered  = "tenant.registered"
	ActionTenantSuspended   = "tenant.suspended"
	ActionTenantReactivated = "tenant.reactivated"
	ActionTenantDeleted     = "tenant.deleted"
)

// Entry is one audit record. Entries are append-only; nothing updates or
// deletes them, and they outlive the tenant they describe.
type Entry struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"-"`
	TenantID  snowflake.ID      `gorm:"not null;index" json:"-"`
	Action    string            `gorm:"type:text;not null;index" json:"action"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Entry) TableName() string { return "audit_entries" }

// Recorder persists audit entries.
type Recorder struct {
	db    *gorm.DB
	genID *snowflake.Node
	log   *zap.Logger
}

func NewRecorder(db *gorm.DB, genID *snowflake.Node, log *zap.Logger) *Recorder {
	return &Recorder{db: db, genID: genID, log: log.Named("audit")}
}

// Record appends one entry. Best effort: a failed audit write is logged and
// never fails the operation it describes.
func (r *Recorder) Record(ctx context.Context, tenantID snowflake.ID, action string, metadata datatypes.JSONMap) {
	if r == nil {
		return
	}
	entry := Entry{
		ID:        r.genID.Generate(),
		TenantID:  tenantID,
		Action:    action,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		r.log.Warn("audit write failed",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

// List returns a tenant's entries, newest first.
func (r *Recorder) List(ctx context.Context, tenantID snowflake.ID, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []Entry
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
