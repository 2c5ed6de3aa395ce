// Package service implements the tenant lifecycle: registration with trial
// subscription and partition provisioning, suspension, reactivation, and
// confirmed deletion.
package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/Gor0d/FisioHUB-sub000/internal/audit"
	"github.com/Gor0d/FisioHUB-sub000/internal/auth/password"
	billingdomain "github.com/Gor0d/FisioHUB-sub000/internal/billing/domain"
	"github.com/Gor0d/FisioHUB-sub000/internal/partition"
	"github.com/Gor0d/FisioHUB-sub000/internal/tenant/directory"
	"github.com/Gor0d/FisioHUB-sub000/internal/tenant/domain"
	"github.com/Gor0d/FisioHUB-sub000/internal/tenant/publicid"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	trialPlanSlug = "trial"
	trialPeriod   = 14 * 24 * time.Hour
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{1,48}[a-z0-9])?$`)

type Service struct {
	repo        domain.Repository
	billingRepo billingdomain.Repository
	directory   *directory.Directory
	router      *partition.Router
	deriver     *publicid.Deriver
	genID       *snowflake.Node
	recorder    *audit.Recorder
	log         *zap.Logger
}

func New(
	repo domain.Repository,
	billingRepo billingdomain.Repository,
	dir *directory.Directory,
	router *partition.Router,
	deriver *publicid.Deriver,
	genID *snowflake.Node,
	recorder *audit.Recorder,
	log *zap.Logger,
) *Service {
	return &Service{
		repo:        repo,
		billingRepo: billingRepo,
		directory:   dir,
		router:      router,
		deriver:     deriver,
		genID:       genID,
		recorder:    recorder,
		log:         log.Named("tenant.service"),
	}
}

func Provide(
	repo domain.Repository,
	billingRepo billingdomain.Repository,
	dir *directory.Directory,
	router *partition.Router,
	deriver *publicid.Deriver,
	genID *snowflake.Node,
	recorder *audit.Recorder,
	log *zap.Logger,
) domain.Service {
	return New(repo, billingRepo, dir, router, deriver, genID, recorder, log)
}

// Register creates the tenant, opens its trial subscription, and provisions
// its partition. The partition step is idempotent, so a crash between steps
// heals on the tenant's first request. The returned management key is shown
// exactly once; only its hash is stored.
func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Registration, error) {
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if !slugPattern.MatchString(slug) {
		return nil, domain.ErrInvalidSlug
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	pubID, err := s.deriver.Derive(slug)
	if err != nil {
		return nil, err
	}

	managementKey, keyHash, err := newManagementKey()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tenant := &domain.Tenant{
		ID:                s.genID.Generate(),
		Slug:              slug,
		PublicID:          pubID,
		Name:              name,
		Status:            domain.StatusTrial,
		IsActive:          true,
		ManagementKeyHash: keyHash,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, tenant); err != nil {
		return nil, err
	}

	if err := s.openTrialSubscription(ctx, tenant, now); err != nil {
		return nil, err
	}

	if _, err := s.router.HandleFor(ctx, tenant); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, tenant.ID, audit.ActionTenantRegistered, datatypes.JSONMap{
		"public_id": tenant.PublicID,
	})
	s.log.Info("tenant registered",
		zap.String("public_id", tenant.PublicID),
		zap.String("partition", partition.Key(tenant.ID)),
	)
	return &domain.Registration{Tenant: tenant, ManagementKey: managementKey}, nil
}

func (s *Service) openTrialSubscription(ctx context.Context, tenant *domain.Tenant, now time.Time) error {
	plan, err := s.billingRepo.FindPlanBySlug(ctx, trialPlanSlug)
	if err != nil {
		return err
	}
	end := now.Add(trialPeriod)
	return s.billingRepo.CreateSubscription(ctx, &billingdomain.Subscription{
		ID:                 s.genID.Generate(),
		TenantID:           tenant.ID,
		PlanID:             plan.ID,
		Status:             billingdomain.StatusTrialing,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   &end,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
}

// SlugAvailable reports whether a slug can still be registered. The HTTP
// layer surfaces this identically to a not-found lookup so it cannot be
// used to enumerate tenants.
func (s *Service) SlugAvailable(ctx context.Context, slug string) (bool, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !slugPattern.MatchString(slug) {
		return false, domain.ErrInvalidSlug
	}
	_, err := s.repo.FindBySlug(ctx, slug)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, domain.ErrTenantNotFound) {
		return true, nil
	}
	return false, err
}

// Suspend deactivates a tenant and invalidates its directory entry so the
// next resolution observes the new state immediately.
func (s *Service) Suspend(ctx context.Context, publicID, managementKey string) (*domain.Tenant, error) {
	return s.transition(ctx, publicID, managementKey, domain.StatusSuspended, false, audit.ActionTenantSuspended)
}

// Reactivate restores a suspended tenant.
func (s *Service) Reactivate(ctx context.Context, publicID, managementKey string) (*domain.Tenant, error) {
	return s.transition(ctx, publicID, managementKey, domain.StatusActive, true, audit.ActionTenantReactivated)
}

func (s *Service) transition(ctx context.Context, publicID, managementKey string, status domain.TenantStatus, isActive bool, action string) (*domain.Tenant, error) {
	if !publicid.IsWellFormed(publicID) {
		return nil, domain.ErrInvalidIdentifier
	}
	tenant, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if err := s.verifyManagementKey(tenant, managementKey); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, tenant.ID, status, isActive); err != nil {
		return nil, err
	}
	s.directory.Invalidate(publicID)

	tenant.Status = status
	tenant.IsActive = isActive
	s.recorder.Record(ctx, tenant.ID, action, nil)
	s.log.Info("tenant status changed",
		zap.String("public_id", publicID),
		zap.String("status", string(status)),
	)
	return tenant, nil
}

// Delete destroys the tenant's partition and then removes the record. The
// order matters: when the partition drop fails the tenant row stays so the
// data is never orphaned.
func (s *Service) Delete(ctx context.Context, publicID, confirmSlug, managementKey string) error {
	if !publicid.IsWellFormed(publicID) {
		return domain.ErrInvalidIdentifier
	}
	tenant, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return err
	}
	if err := s.verifyManagementKey(tenant, managementKey); err != nil {
		return err
	}
	if strings.TrimSpace(confirmSlug) != tenant.Slug {
		return domain.ErrDeleteNotConfirmed
	}

	if err := s.billingRepo.CancelSubscriptions(ctx, tenant.ID); err != nil {
		return err
	}
	if err := s.router.Destroy(ctx, tenant); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, tenant.ID); err != nil {
		return err
	}
	s.directory.Invalidate(publicID)

	s.recorder.Record(ctx, tenant.ID, audit.ActionTenantDeleted, datatypes.JSONMap{
		"public_id": publicID,
	})
	s.log.Info("tenant deleted", zap.String("public_id", publicID))
	return nil
}

func (s *Service) verifyManagementKey(tenant *domain.Tenant, managementKey string) error {
	match, err := password.Verify(managementKey, tenant.ManagementKeyHash)
	if err != nil || !match {
		return domain.ErrManagementKeyInvalid
	}
	return nil
}

// newManagementKey returns the plaintext key and its argon2id hash.
func newManagementKey() (string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	key := "mk_" + base64.RawURLEncoding.EncodeToString(raw)
	hash, err := password.Hash(key)
	if err != nil {
		return "", "", err
	}
	return key, hash, nil
}
