package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Gor0d/FisioHUB-sub000/internal/tenant/domain"
	"github.com/Gor0d/FisioHUB-sub000/internal/tenantcontext"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type registerTenantRequest struct {
	Slug string `json:"slug" binding:"required"`
	Name string `json:"name" binding:"required"`
}

// RegisterTenant creates a tenant, opens its trial subscription, and
// provisions its partition. The response carries the public identifier the
// client will use from now on; the slug never appears in it.
func (s *Server) RegisterTenant(c *gin.Context) {
	var req registerTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	reg, err := s.tenantSvc.Register(c.Request.Context(), domain.RegisterRequest{
		Slug: strings.TrimSpace(req.Slug),
		Name: strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("tenant registered",
		zap.String("public_id", reg.Tenant.PublicID),
		zap.String("status", string(reg.Tenant.Status)),
	)
	c.JSON(http.StatusCreated, gin.H{"data": gin.H{
		"tenant": reg.Tenant,
		// shown exactly once; required for suspend, reactivate, and delete
		"management_key": reg.ManagementKey,
	}})
}

// CheckSlugAvailability answers whether a slug can still be registered. A
// free slug responds 404 with the same body as an unknown tenant lookup, so
// the endpoint reveals nothing beyond what registration itself would.
func (s *Server) CheckSlugAvailability(c *gin.Context) {
	slug := c.Query("slug")

	available, err := s.tenantSvc.SlugAvailable(c.Request.Context(), slug)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if available {
		AbortWithError(c, domain.ErrTenantNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"available": false}})
}

// GetTenant returns the resolved tenant from the request scope.
func (s *Server) GetTenant(c *gin.Context) {
	scope, ok := tenantcontext.ScopeFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, domain.ErrTenantNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": scope.Tenant})
}

// GetSubscription reports the live subscription with its plan limits and
// the tenant's current usage against each gated resource.
func (s *Server) GetSubscription(c *gin.Context) {
	scope, ok := tenantcontext.ScopeFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, domain.ErrTenantNotFound)
		return
	}

	sub, err := s.billingRep.FindLiveSubscription(c.Request.Context(), scope.Tenant.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	usage := gin.H{}
	for _, resource := range []string{"patients", "indicators"} {
		verdict, err := s.enforcer.CheckLimit(c.Request.Context(), scope.Tenant, scope.Partition, resource)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		usage[resource] = verdict
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"subscription": sub,
		"usage":        usage,
	}})
}

// managementKeyHeader authorizes the lifecycle operations. Issued once at
// registration.
const managementKeyHeader = "X-Management-Key"

// SuspendTenant disables a tenant. Deliberately not behind TenantRequired:
// the operation must reach already-inactive tenants too.
func (s *Server) SuspendTenant(c *gin.Context) {
	tenant, err := s.tenantSvc.Suspend(c.Request.Context(), c.Param("publicId"), c.GetHeader(managementKeyHeader))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tenant})
}

// ReactivateTenant re-enables a suspended tenant.
func (s *Server) ReactivateTenant(c *gin.Context) {
	tenant, err := s.tenantSvc.Reactivate(c.Request.Context(), c.Param("publicId"), c.GetHeader(managementKeyHeader))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tenant})
}

type deleteTenantRequest struct {
	ConfirmSlug string `json:"confirm_slug"`
}

// DeleteTenant irreversibly removes a tenant and its partition. The caller
// must echo the slug back as confirmation.
func (s *Server) DeleteTenant(c *gin.Context) {
	var req deleteTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, domain.ErrDeleteNotConfirmed)
		return
	}

	if err := s.tenantSvc.Delete(c.Request.Context(), c.Param("publicId"), req.ConfirmSlug, c.GetHeader(managementKeyHeader)); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

// GetAuditTrail lists the tenant's lifecycle audit entries, newest first.
func (s *Server) GetAuditTrail(c *gin.Context) {
	scope, ok := tenantcontext.ScopeFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, domain.ErrTenantNotFound)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := s.recorder.List(c.Request.Context(), scope.Tenant.ID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}
