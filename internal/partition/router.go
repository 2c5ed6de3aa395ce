// Package partition routes each request to the isolated storage namespace
// of its resolved tenant. One partition per tenant, keyed by the internal
// identifier only: the public identifier scheme can rotate without touching
// partition naming.
package partition

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/Gor0d/FisioHUB-sub000/internal/observability/metrics"
	"github.com/Gor0d/FisioHUB-sub000/internal/tenant/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

var (
	ErrProvisioningFailed = errors.New("partition_provisioning_failed")
	ErrDestroyFailed      = errors.New("partition_destroy_failed")
)

// partitionTables are the per-tenant tables provisioned inside each
// partition. DDL sticks to the dialect subset shared by postgres and the
// sqlite test driver.
var partitionTables = map[string]string{
	"patients": `CREATE TABLE IF NOT EXISTS %s (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		document TEXT,
		birth_date TIMESTAMP,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	"indicator_entries": `CREATE TABLE IF NOT EXISTS %s (
		id BIGINT PRIMARY KEY,
		patient_id BIGINT NOT NULL,
		kind TEXT NOT NULL,
		value DOUBLE PRECISION NOT NULL,
		recorded_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
}

// Key derives the partition namespace from the internal tenant identifier.
func Key(id snowflake.ID) string {
	return "t" + strconv.FormatInt(int64(id), 10)
}

// Handle scopes all data access for one request to one tenant's partition.
type Handle struct {
	db  *gorm.DB
	key string
}

// Key returns the partition namespace.
func (h Handle) Key() string { return h.key }

// TableName returns the partition-qualified name of a logical table.
func (h Handle) TableName(table string) string {
	return h.key + "_" + table
}

// Table opens a query against a logical table inside the partition.
func (h Handle) Table(ctx context.Context, table string) *gorm.DB {
	return h.db.WithContext(ctx).Table(h.TableName(table))
}

// Router provisions and hands out partition handles. Provisioning is
// idempotent; concurrent first access for the same tenant is collapsed to a
// single storage round trip.
type Router struct {
	db      *gorm.DB
	log     *zap.Logger
	metrics *metrics.Metrics

	group singleflight.Group

	mu          sync.RWMutex
	provisioned map[string]struct{}
}

func NewRouter(db *gorm.DB, log *zap.Logger, m *metrics.Metrics) *Router {
	return &Router{
		db:          db,
		log:         log.Named("partition.router"),
		metrics:     m,
		provisioned: make(map[string]struct{}),
	}
}

// HandleFor returns the partition handle for a tenant, provisioning the
// partition on first access.
func (r *Router) HandleFor(ctx context.Context, tenant *domain.Tenant) (Handle, error) {
	key := Key(tenant.ID)

	r.mu.RLock()
	_, ready := r.provisioned[key]
	r.mu.RUnlock()
	if ready {
		return Handle{db: r.db, key: key}, nil
	}

	_, err, _ := r.group.Do(key, func() (any, error) {
		return nil, r.provision(ctx, key)
	})
	if err != nil {
		return Handle{}, fmt.Errorf("%w: %v", ErrProvisioningFailed, err)
	}

	r.mu.Lock()
	if _, seen := r.provisioned[key]; !seen {
		r.provisioned[key] = struct{}{}
		if r.metrics != nil {
			r.metrics.PartitionsActive.Inc()
		}
	}
	r.mu.Unlock()

	return Handle{db: r.db, key: key}, nil
}

func (r *Router) provision(ctx context.Context, key string) error {
	for table, ddl := range partitionTables {
		stmt := fmt.Sprintf(ddl, key+"_"+table)
		if err := r.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return err
		}
	}
	r.log.Info("tenant partition provisioned", zap.String("partition", key))
	return nil
}

// Destroy irreversibly drops a tenant's partition. Callers must only delete
// the tenant record after Destroy succeeds; a silent no-op here would orphan
// partition data.
func (r *Router) Destroy(ctx context.Context, tenant *domain.Tenant) error {
	key := Key(tenant.ID)
	for table := range partitionTables {
		stmt := "DROP TABLE IF EXISTS " + key + "_" + table
		if err := r.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrDestroyFailed, err)
		}
	}

	r.mu.Lock()
	if _, seen := r.provisioned[key]; seen {
		delete(r.provisioned, key)
		if r.metrics != nil {
			r.metrics.PartitionsActive.Dec()
		}
	}
	r.mu.Unlock()

	r.log.Info("tenant partition destroyed", zap.String("partition", key))
	return nil
}
