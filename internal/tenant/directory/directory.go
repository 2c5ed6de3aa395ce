// Package directory resolves public identifiers to tenants with a
// time-bounded cache in front of persistent lookup.
package directory

import (
	"context"
	"errors"
	"time"

	"github.com/Gor0d/FisioHUB-sub000/internal/cache"
	"github.com/Gor0d/FisioHUB-sub000/internal/observability/metrics"
	"github.com/Gor0d/FisioHUB-sub000/internal/tenant/domain"
	"github.com/Gor0d/FisioHUB-sub000/internal/tenant/publicid"
	"go.uber.org/zap"
)

// DefaultTTL bounds how stale a cached tenant may be.
const DefaultTTL = 5 * time.Minute

// Directory is the cached tenant resolver. Entries older than the TTL are
// treated as absent on read; negative results are never cached so a tenant
// created right after a failed lookup resolves immediately.
type Directory struct {
	repo    domain.Repository
	cache   cache.Cache[string, *domain.Tenant]
	ttl     time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics
}

func New(repo domain.Repository, store cache.Cache[string, *domain.Tenant], ttl time.Duration, log *zap.Logger, m *metrics.Metrics) *Directory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Directory{
		repo:    repo,
		cache:   store,
		ttl:     ttl,
		log:     log.Named("tenant.directory"),
		metrics: m,
	}
}

// Resolve maps a public identifier to its tenant. Inactive tenants are
// returned alongside ErrTenantInactive so callers can still inspect status.
func (d *Directory) Resolve(ctx context.Context, publicID string) (*domain.Tenant, error) {
	if !publicid.IsWellFormed(publicID) {
		return nil, domain.ErrInvalidIdentifier
	}

	if tenant, ok := d.cache.Get(publicID); ok {
		d.countLookup("hit")
		return withActivity(tenant)
	}
	d.countLookup("miss")

	tenant, err := d.lookup(ctx, publicID)
	if err != nil {
		return nil, err
	}

	d.cache.Set(publicID, tenant, d.ttl)
	return withActivity(tenant)
}

// lookup queries storage with a single retry on transient faults.
func (d *Directory) lookup(ctx context.Context, publicID string) (*domain.Tenant, error) {
	tenant, err := d.repo.FindByPublicID(ctx, publicID)
	if err == nil {
		return tenant, nil
	}
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		return nil, err
	}
	d.log.Warn("tenant lookup failed, retrying once", zap.Error(err))
	return d.repo.FindByPublicID(ctx, publicID)
}

// Invalidate drops the cache entry so the next resolution observes fresh
// state. Every tenant status mutation must call this.
func (d *Directory) Invalidate(publicID string) {
	d.cache.Delete(publicID)
}

func (d *Directory) countLookup(outcome string) {
	if d.metrics != nil {
		d.metrics.CacheLookups.WithLabelValues(outcome).Inc()
	}
}

func withActivity(tenant *domain.Tenant) (*domain.Tenant, error) {
	if !tenant.IsActive {
		return tenant, domain.ErrTenantInactive
	}
	return tenant, nil
}
