package server

import (
	"github.com/Gor0d/FisioHUB-sub000/internal/ratelimit"
	tenantdomain "github.com/Gor0d/FisioHUB-sub000/internal/tenant/domain"
	"github.com/Gor0d/FisioHUB-sub000/internal/tenantcontext"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// fingerprintHeader lets distinct clients behind a shared NAT keep
// independent rate-limit budgets.
const fingerprintHeader = "X-Client-Fingerprint"

// RateLimit throttles the route with the named limiter. The limiter set is
// fixed at startup, so a missing name is a wiring bug and fails every
// request loudly rather than running the route unthrottled.
func (s *Server) RateLimit(name string) gin.HandlerFunc {
	limiter, err := s.limiters.Get(name)
	if err != nil {
		s.log.Error("rate limiter not configured", zap.String("limiter", name))
		return func(c *gin.Context) {
			AbortWithError(c, err)
		}
	}

	return func(c *gin.Context) {
		key := ratelimit.CallerKey(c.ClientIP(), c.GetHeader(fingerprintHeader))
		decision := limiter.Allow(key)
		if !decision.Allowed {
			s.countRateLimit(name, "throttled")
			abortRateLimited(c, decision.ResetAfter)
			return
		}
		s.countRateLimit(name, "allowed")
		c.Next()
	}
}

// TenantRequired resolves the :publicId path parameter into a tenant scope:
// directory lookup, activity check, and partition handle. Handlers past this
// middleware can assume a valid, active, partition-backed tenant.
func (s *Server) TenantRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant, err := s.directory.Resolve(c.Request.Context(), c.Param("publicId"))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		handle, err := s.router.HandleFor(c.Request.Context(), tenant)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := tenantcontext.WithScope(c.Request.Context(), tenantcontext.Scope{
			Tenant:    tenant,
			Partition: handle,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireFeature gates a route on a boolean plan feature. Runs after
// TenantRequired.
func (s *Server) RequireFeature(feature string) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, ok := tenantcontext.ScopeFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, tenantdomain.ErrTenantNotFound)
			return
		}
		if err := s.enforcer.CheckFeature(c.Request.Context(), scope.Tenant, feature); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) countRateLimit(name, outcome string) {
	if s.metrics != nil {
		s.metrics.RateLimitDecisions.WithLabelValues(name, outcome).Inc()
	}
}
