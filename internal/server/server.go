// Package server composes the request pipeline: rate limiting, tenant
// resolution, partition routing, and quota gating in front of the domain
// handlers.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gor0d/FisioHUB-sub000/internal/audit"
	billingdomain "github.com/Gor0d/FisioHUB-sub000/internal/billing/domain"
	"github.com/Gor0d/FisioHUB-sub000/internal/billing/quota"
	"github.com/Gor0d/FisioHUB-sub000/internal/config"
	"github.com/Gor0d/FisioHUB-sub000/internal/observability/logger"
	"github.com/Gor0d/FisioHUB-sub000/internal/observability/metrics"
	"github.com/Gor0d/FisioHUB-sub000/internal/partition"
	"github.com/Gor0d/FisioHUB-sub000/internal/ratelimit"
	"github.com/Gor0d/FisioHUB-sub000/internal/tenant/directory"
	tenantdomain "github.com/Gor0d/FisioHUB-sub000/internal/tenant/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config     config.Config
	Log        *zap.Logger
	GenID      *snowflake.Node
	TenantSvc  tenantdomain.Service
	Directory  *directory.Directory
	Router     *partition.Router
	Enforcer   *quota.Enforcer
	BillingRep billingdomain.Repository
	Recorder   *audit.Recorder
	Limiters   *ratelimit.Registry
	Metrics    *metrics.Metrics
}

type Server struct {
	cfg        config.Config
	log        *zap.Logger
	genID      *snowflake.Node
	tenantSvc  tenantdomain.Service
	directory  *directory.Directory
	router     *partition.Router
	enforcer   *quota.Enforcer
	billingRep billingdomain.Repository
	recorder   *audit.Recorder
	limiters   *ratelimit.Registry
	metrics    *metrics.Metrics
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:        p.Config,
		log:        p.Log.Named("server"),
		genID:      p.GenID,
		tenantSvc:  p.TenantSvc,
		directory:  p.Directory,
		router:     p.Router,
		enforcer:   p.Enforcer,
		billingRep: p.BillingRep,
		recorder:   p.Recorder,
		limiters:   p.Limiters,
		metrics:    p.Metrics,
	}
}

// NewEngine builds the gin engine with the ambient middleware stack.
func NewEngine(cfg config.Config, m *metrics.Metrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	engine.Use(metrics.GinMiddleware(m))
	return engine
}

// RegisterRoutes attaches the full HTTP surface to the engine.
func (s *Server) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/healthz", s.Health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api/v1")

	api.POST("/tenants/register", s.RateLimit("registration"), s.RegisterTenant)
	api.GET("/tenants/check-slug", s.RateLimit("public"), s.CheckSlugAvailability)

	scoped := api.Group("/t/:publicId")
	scoped.Use(s.RateLimit("api"))

	scoped.GET("", s.TenantRequired(), s.GetTenant)
	scoped.GET("/subscription", s.TenantRequired(), s.GetSubscription)
	scoped.GET("/audit", s.TenantRequired(), s.GetAuditTrail)
	scoped.POST("/suspend", s.SuspendTenant)
	scoped.POST("/reactivate", s.ReactivateTenant)
	scoped.DELETE("", s.DeleteTenant)

	scoped.POST("/patients", s.TenantRequired(), s.CreatePatient)
	scoped.GET("/patients", s.TenantRequired(), s.ListPatients)
	scoped.POST("/indicators", s.TenantRequired(), s.RequireFeature("indicator_dashboard"), s.CreateIndicatorEntry)
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RunHTTP starts the HTTP listener under the fx lifecycle with graceful
// shutdown.
func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, s *Server) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				s.log.Info("http server listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			timeout := s.cfg.Server.GracefulShutdownTimeout
			if timeout <= 0 {
				timeout = 30 * time.Second
			}
			shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
