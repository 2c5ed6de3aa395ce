// Package repository implements persistent tenant lookup on gorm.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gor0d/FisioHUB-sub000/internal/tenant/domain"
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

func (r *Repository) FindByPublicID(ctx context.Context, publicID string) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, storageErr(err)
	}
	return &tenant, nil
}

func (r *Repository) FindBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, storageErr(err)
	}
	return &tenant, nil
}

func (r *Repository) Create(ctx context.Context, tenant *domain.Tenant) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Tenant{}).
			Where("slug = ? OR public_id = ?", tenant.Slug, tenant.PublicID).
			Count(&count).Error; err != nil {
			return storageErr(err)
		}
		if count > 0 {
			return domain.ErrSlugTaken
		}
		return tx.Create(tenant).Error
	})
	if err != nil {
		if errors.Is(err, domain.ErrSlugTaken) {
			return err
		}
		// the unique index backstops the in-transaction check under
		// concurrent registration of the same slug
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrSlugTaken
		}
		return storageErr(err)
	}
	return nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id snowflake.ID, status domain.TenantStatus, isActive bool) error {
	result := r.db.WithContext(ctx).Model(&domain.Tenant{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"is_active":  isActive,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return storageErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id snowflake.ID) error {
	result := r.db.WithContext(ctx).Delete(&domain.Tenant{}, "id = ?", id)
	if result.Error != nil {
		return storageErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
}
