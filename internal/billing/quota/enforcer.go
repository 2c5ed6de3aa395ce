// Package quota enforces per-plan resource ceilings and feature gates.
//
// The count-then-compare sequence is a check-then-act race under concurrent
// creation at the limit boundary. The enforcer serializes the whole
// check+create sequence per (tenant, resource) with a keyed mutex, so two
// simultaneous creators cannot both observe count = limit-1. This holds for
// a single process, matching the in-memory cache and rate limiter; a
// multi-instance deployment needs a storage-level conditional insert instead.
package quota

import (
	"context"
	"sync"

	"github.com/Gor0d/FisioHUB-sub000/internal/billing/domain"
	"github.com/Gor0d/FisioHUB-sub000/internal/observability/metrics"
	"github.com/Gor0d/FisioHUB-sub000/internal/partition"
	tenantdomain "github.com/Gor0d/FisioHUB-sub000/internal/tenant/domain"
	"go.uber.org/zap"
)

// Counter reports the current live count of a resource inside a partition.
type Counter func(ctx context.Context, handle partition.Handle) (int64, error)

// Verdict carries the numeric context of a limit decision so callers can
// surface "upgrade required" messaging.
type Verdict struct {
	Allowed   bool  `json:"allowed"`
	Unlimited bool  `json:"unlimited"`
	Limit     int64 `json:"limit"`
	Current   int64 `json:"current"`
}

// Enforcer gates create operations against the tenant's live plan.
type Enforcer struct {
	repo     domain.Repository
	log      *zap.Logger
	metrics  *metrics.Metrics
	counters map[string]Counter

	locks keyedMutex
}

func NewEnforcer(repo domain.Repository, log *zap.Logger, m *metrics.Metrics) *Enforcer {
	e := &Enforcer{
		repo:     repo,
		log:      log.Named("billing.quota"),
		metrics:  m,
		counters: make(map[string]Counter),
	}
	e.RegisterCounter("patients", countTable("patients"))
	e.RegisterCounter("indicators", countTable("indicator_entries"))
	return e
}

// RegisterCounter binds a resource name to its live-count query.
func (e *Enforcer) RegisterCounter(resource string, counter Counter) {
	e.counters[resource] = counter
}

// CheckLimit decides whether creating one more instance of resource would
// exceed the tenant's plan ceiling. Only create operations are quota-gated.
func (e *Enforcer) CheckLimit(ctx context.Context, tenant *tenantdomain.Tenant, handle partition.Handle, resource string) (Verdict, error) {
	sub, err := e.liveSubscription(ctx, tenant)
	if err != nil {
		return Verdict{}, err
	}
	return e.checkAgainstPlan(ctx, sub.Plan, handle, resource)
}

// Reserve runs the limit check and the creation closure as one serialized
// sequence per (tenant, resource). On an exceeded limit the closure never
// runs and the verdict is returned with ErrPlanLimitExceeded.
func (e *Enforcer) Reserve(ctx context.Context, tenant *tenantdomain.Tenant, handle partition.Handle, resource string, create func(ctx context.Context) error) (Verdict, error) {
	sub, err := e.liveSubscription(ctx, tenant)
	if err != nil {
		return Verdict{}, err
	}

	unlock := e.locks.lock(partition.Key(tenant.ID) + ":" + resource)
	defer unlock()

	verdict, err := e.checkAgainstPlan(ctx, sub.Plan, handle, resource)
	if err != nil {
		return verdict, err
	}
	if !verdict.Allowed {
		return verdict, domain.ErrPlanLimitExceeded
	}
	if err := create(ctx); err != nil {
		return verdict, err
	}
	return verdict, nil
}

// CheckFeature gates a boolean plan feature. Fails closed without a live
// subscription.
func (e *Enforcer) CheckFeature(ctx context.Context, tenant *tenantdomain.Tenant, feature string) error {
	sub, err := e.liveSubscription(ctx, tenant)
	if err != nil {
		return err
	}
	if !sub.Plan.HasFeature(feature) {
		return domain.ErrFeatureNotAvailable
	}
	return nil
}

func (e *Enforcer) liveSubscription(ctx context.Context, tenant *tenantdomain.Tenant) (*domain.Subscription, error) {
	sub, err := e.repo.FindLiveSubscription(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (e *Enforcer) checkAgainstPlan(ctx context.Context, plan domain.Plan, handle partition.Handle, resource string) (Verdict, error) {
	limit, limited := plan.LimitFor(resource)
	if !limited {
		e.countDecision(resource, "allowed")
		return Verdict{Allowed: true, Unlimited: true}, nil
	}

	counter, ok := e.counters[resource]
	if !ok {
		// an unregistered gated resource is a wiring bug; failing open
		// here would silently bypass the plan
		return Verdict{}, domain.ErrUnknownResource
	}

	current, err := counter(ctx, handle)
	if err != nil {
		return Verdict{}, err
	}

	verdict := Verdict{
		Allowed: current < limit,
		Limit:   limit,
		Current: current,
	}
	if verdict.Allowed {
		e.countDecision(resource, "allowed")
	} else {
		e.countDecision(resource, "exceeded")
	}
	return verdict, nil
}

func (e *Enforcer) countDecision(resource, outcome string) {
	if e.metrics != nil {
		e.metrics.QuotaDecisions.WithLabelValues(resource, outcome).Inc()
	}
}

func countTable(table string) Counter {
	return func(ctx context.Context, handle partition.Handle) (int64, error) {
		var count int64
		if err := handle.Table(ctx, table).Count(&count).Error; err != nil {
			return 0, err
		}
		return count, nil
	}
}

// keyedMutex hands out one mutex per key, created on demand.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	entry, ok := k.locks[key]
	if !ok {
		entry = &sync.Mutex{}
		k.locks[key] = entry
	}
	k.mu.Unlock()

	entry.Lock()
	return entry.Unlock
}
