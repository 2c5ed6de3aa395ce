package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	billingdomain "github.com/Gor0d/FisioHUB-sub000/internal/billing/domain"
	tenantdomain "github.com/Gor0d/FisioHUB-sub000/internal/tenant/domain"
	"github.com/Gor0d/FisioHUB-sub000/internal/tenantcontext"
	"github.com/gin-gonic/gin"
)

// patientRow mirrors the patients table provisioned in every partition.
type patientRow struct {
	ID        int64      `gorm:"column:id;primaryKey" json:"id,string"`
	Name      string     `gorm:"column:name" json:"name"`
	Document  string     `gorm:"column:document" json:"document,omitempty"`
	BirthDate *time.Time `gorm:"column:birth_date" json:"birth_date,omitempty"`
	IsActive  bool       `gorm:"column:is_active" json:"is_active"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

type indicatorEntryRow struct {
	ID         int64     `gorm:"column:id;primaryKey" json:"id,string"`
	PatientID  int64     `gorm:"column:patient_id" json:"patient_id,string"`
	Kind       string    `gorm:"column:kind" json:"kind"`
	Value      float64   `gorm:"column:value" json:"value"`
	RecordedAt time.Time `gorm:"column:recorded_at" json:"recorded_at"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

type createPatientRequest struct {
	Name      string     `json:"name" binding:"required"`
	Document  string     `json:"document"`
	BirthDate *time.Time `json:"birth_date"`
}

// CreatePatient inserts a patient into the tenant's partition, gated by the
// plan's patient ceiling. Check and insert run as one reserved sequence so
// concurrent creates at the boundary cannot both pass.
func (s *Server) CreatePatient(c *gin.Context) {
	scope, ok := tenantcontext.ScopeFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, tenantdomain.ErrTenantNotFound)
		return
	}

	var req createPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	now := time.Now().UTC()
	row := patientRow{
		ID:        s.genID.Generate().Int64(),
		Name:      req.Name,
		Document:  req.Document,
		BirthDate: req.BirthDate,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	verdict, err := s.enforcer.Reserve(c.Request.Context(), scope.Tenant, scope.Partition, "patients",
		func(ctx context.Context) error {
			return scope.Partition.Table(ctx, "patients").Create(&row).Error
		})
	if err != nil {
		if errors.Is(err, billingdomain.ErrPlanLimitExceeded) {
			abortQuotaExceeded(c, verdict.Limit, verdict.Current)
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": row})
}

// ListPatients returns the partition's patients. Reads are never
// quota-gated.
func (s *Server) ListPatients(c *gin.Context) {
	scope, ok := tenantcontext.ScopeFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, tenantdomain.ErrTenantNotFound)
		return
	}

	var rows []patientRow
	err := scope.Partition.Table(c.Request.Context(), "patients").
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if rows == nil {
		rows = []patientRow{}
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

type createIndicatorEntryRequest struct {
	PatientID  int64      `json:"patient_id,string" binding:"required"`
	Kind       string     `json:"kind" binding:"required"`
	Value      float64    `json:"value"`
	RecordedAt *time.Time `json:"recorded_at"`
}

// CreateIndicatorEntry records a clinical indicator measurement. Behind the
// indicator_dashboard feature gate and the indicators ceiling.
func (s *Server) CreateIndicatorEntry(c *gin.Context) {
	scope, ok := tenantcontext.ScopeFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, tenantdomain.ErrTenantNotFound)
		return
	}

	var req createIndicatorEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	recordedAt := time.Now().UTC()
	if req.RecordedAt != nil {
		recordedAt = req.RecordedAt.UTC()
	}
	row := indicatorEntryRow{
		ID:         s.genID.Generate().Int64(),
		PatientID:  req.PatientID,
		Kind:       req.Kind,
		Value:      req.Value,
		RecordedAt: recordedAt,
		CreatedAt:  time.Now().UTC(),
	}

	verdict, err := s.enforcer.Reserve(c.Request.Context(), scope.Tenant, scope.Partition, "indicators",
		func(ctx context.Context) error {
			return scope.Partition.Table(ctx, "indicator_entries").Create(&row).Error
		})
	if err != nil {
		if errors.Is(err, billingdomain.ErrPlanLimitExceeded) {
			abortQuotaExceeded(c, verdict.Limit, verdict.Current)
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": row})
}
