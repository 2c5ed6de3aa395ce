package quota

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Gor0d/FisioHUB-sub000/internal/billing/domain"
	billingrepo "github.com/Gor0d/FisioHUB-sub000/internal/billing/repository"
	"github.com/Gor0d/FisioHUB-sub000/internal/partition"
	tenantdomain "github.com/Gor0d/FisioHUB-sub000/internal/tenant/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type quotaFixture struct {
	db       *gorm.DB
	enforcer *Enforcer
	router   *partition.Router
	tenant   *tenantdomain.Tenant
	handle   partition.Handle
}

func setupQuotaFixture(t *testing.T, limits datatypes.JSONMap, features datatypes.JSONMap) *quotaFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&domain.Plan{}, &domain.Subscription{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	plan := domain.Plan{
		ID:       snowflake.ID(1),
		Slug:     "essencial",
		Name:     "Essencial",
		Limits:   limits,
		Features: features,
	}
	if err := db.Create(&plan).Error; err != nil {
		t.Fatalf("create plan: %v", err)
	}

	tenant := &tenantdomain.Tenant{
		ID:       snowflake.ID(900),
		Slug:     "hospital-sao-jose",
		PublicID: "aaaabbbbcccc",
		Name:     "Hospital São José",
		Status:   tenantdomain.StatusActive,
		IsActive: true,
	}

	sub := domain.Subscription{
		ID:                 snowflake.ID(2),
		TenantID:           tenant.ID,
		PlanID:             plan.ID,
		Status:             domain.StatusActive,
		CurrentPeriodStart: time.Now().UTC().Add(-time.Hour),
	}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	router := partition.NewRouter(db, zap.NewNop(), nil)
	handle, err := router.HandleFor(context.Background(), tenant)
	if err != nil {
		t.Fatalf("partition handle: %v", err)
	}

	enforcer := NewEnforcer(billingrepo.New(db), zap.NewNop(), nil)
	return &quotaFixture{db: db, enforcer: enforcer, router: router, tenant: tenant, handle: handle}
}

func (f *quotaFixture) seedPatients(t *testing.T, n int) {
	t.Helper()
	now := time.Now().UTC()
	for i := 0; i < n; i++ {
		err := f.handle.Table(context.Background(), "patients").Create(map[string]any{
			"id":         int64(i + 1),
			"name":       "Paciente",
			"created_at": now,
			"updated_at": now,
		}).Error
		if err != nil {
			t.Fatalf("seed patient %d: %v", i, err)
		}
	}
}

func TestCheckLimitBelowCeiling(t *testing.T) {
	f := setupQuotaFixture(t, datatypes.JSONMap{"patients": 10}, nil)
	f.seedPatients(t, 9)

	verdict, err := f.enforcer.CheckLimit(context.Background(), f.tenant, f.handle, "patients")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !verdict.Allowed || verdict.Limit != 10 || verdict.Current != 9 {
		t.Fatalf("expected allowed 9/10, got %+v", verdict)
	}
}

func TestCheckLimitAtCeiling(t *testing.T) {
	f := setupQuotaFixture(t, datatypes.JSONMap{"patients": 10}, nil)
	f.seedPatients(t, 10)

	verdict, err := f.enforcer.CheckLimit(context.Background(), f.tenant, f.handle, "patients")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if verdict.Allowed {
		t.Fatalf("expected exceeded at 10/10, got %+v", verdict)
	}
	if verdict.Limit != 10 || verdict.Current != 10 {
		t.Fatalf("expected limit/current 10/10 in verdict, got %+v", verdict)
	}
}

func TestCheckLimitUnlimited(t *testing.T) {
	f := setupQuotaFixture(t, datatypes.JSONMap{"patients": domain.UnlimitedLimit}, nil)
	f.seedPatients(t, 50)

	verdict, err := f.enforcer.CheckLimit(context.Background(), f.tenant, f.handle, "patients")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !verdict.Allowed || !verdict.Unlimited {
		t.Fatalf("expected unlimited allowance, got %+v", verdict)
	}
}

func TestCheckLimitUngatedResource(t *testing.T) {
	f := setupQuotaFixture(t, datatypes.JSONMap{}, nil)

	verdict, err := f.enforcer.CheckLimit(context.Background(), f.tenant, f.handle, "patients")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !verdict.Allowed || !verdict.Unlimited {
		t.Fatalf("resources absent from the plan must be ungated, got %+v", verdict)
	}
}

func TestCheckLimitFailsClosedWithoutSubscription(t *testing.T) {
	f := setupQuotaFixture(t, datatypes.JSONMap{"patients": 10}, nil)
	if err := f.db.Exec("DELETE FROM subscriptions").Error; err != nil {
		t.Fatalf("clear subscriptions: %v", err)
	}

	_, err := f.enforcer.CheckLimit(context.Background(), f.tenant, f.handle, "patients")
	if !errors.Is(err, domain.ErrNoActiveSubscription) {
		t.Fatalf("expected ErrNoActiveSubscription, got %v", err)
	}
}

func TestLapsedSubscriptionFailsClosed(t *testing.T) {
	f := setupQuotaFixture(t, datatypes.JSONMap{"patients": 10}, nil)
	past := time.Now().UTC().Add(-time.Hour)
	if err := f.db.Model(&domain.Subscription{}).
		Where("tenant_id = ?", f.tenant.ID).
		Update("current_period_end", past).Error; err != nil {
		t.Fatalf("expire subscription: %v", err)
	}

	_, err := f.enforcer.CheckLimit(context.Background(), f.tenant, f.handle, "patients")
	if !errors.Is(err, domain.ErrNoActiveSubscription) {
		t.Fatalf("expected ErrNoActiveSubscription for lapsed window, got %v", err)
	}
}

func TestCheckFeature(t *testing.T) {
	f := setupQuotaFixture(t, nil, datatypes.JSONMap{"indicator_dashboard": true, "exports": false})

	if err := f.enforcer.CheckFeature(context.Background(), f.tenant, "indicator_dashboard"); err != nil {
		t.Fatalf("expected feature enabled, got %v", err)
	}
	if err := f.enforcer.CheckFeature(context.Background(), f.tenant, "exports"); !errors.Is(err, domain.ErrFeatureNotAvailable) {
		t.Fatalf("expected ErrFeatureNotAvailable, got %v", err)
	}
	if err := f.enforcer.CheckFeature(context.Background(), f.tenant, "unknown"); !errors.Is(err, domain.ErrFeatureNotAvailable) {
		t.Fatalf("expected unknown features to be unavailable, got %v", err)
	}
}

func TestReserveStopsAtLimit(t *testing.T) {
	f := setupQuotaFixture(t, datatypes.JSONMap{"patients": 10}, nil)
	f.seedPatients(t, 10)

	created := false
	verdict, err := f.enforcer.Reserve(context.Background(), f.tenant, f.handle, "patients", func(ctx context.Context) error {
		created = true
		return nil
	})
	if !errors.Is(err, domain.ErrPlanLimitExceeded) {
		t.Fatalf("expected ErrPlanLimitExceeded, got %v", err)
	}
	if created {
		t.Fatal("create closure must not run past the ceiling")
	}
	if verdict.Limit != 10 || verdict.Current != 10 {
		t.Fatalf("expected verdict 10/10, got %+v", verdict)
	}
}

func TestReserveSerializesConcurrentCreators(t *testing.T) {
	f := setupQuotaFixture(t, datatypes.JSONMap{"patients": 10}, nil)
	f.seedPatients(t, 9)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	nextID := int64(100)

	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.enforcer.Reserve(context.Background(), f.tenant, f.handle, "patients", func(ctx context.Context) error {
				mu.Lock()
				id := nextID
				nextID++
				mu.Unlock()
				now := time.Now().UTC()
				return f.handle.Table(ctx, "patients").Create(map[string]any{
					"id": id, "name": "Paciente", "created_at": now, "updated_at": now,
				}).Error
			})
			if err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 1 {
		t.Fatalf("only one creator may take the last slot, admitted=%d", admitted)
	}
}
