package router

import (
	"github.com/erp/portal/internal/infrastructure/config"
	"github.com/erp/portal/internal/infrastructure/logger"
	"github.com/erp/portal/internal/infrastructure/telemetry"
	"github.com/erp/portal/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EngineOption customizes NewEngine
type EngineOption func(*engineOptions)

type engineOptions struct {
	meterProvider *telemetry.MeterProvider
}

// WithMeterProvider enables the HTTP request metrics middleware
func WithMeterProvider(mp *telemetry.MeterProvider) EngineOption {
	return func(o *engineOptions) {
		o.meterProvider = mp
	}
}

// NewEngine creates a gin engine with the global middleware stack, in order:
// request id, recovery, access log, tracing, request metrics, security
// headers, CORS and the body size limit.
func NewEngine(cfg *config.Config, log *zap.Logger, opts ...EngineOption) *gin.Engine {
	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanEnricher())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: o.meterProvider,
		Enabled:       o.meterProvider != nil,
	}))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}
	return engine
}

// DefaultAdminRoles are allowed on the triage routes when none are configured
var DefaultAdminRoles = []string{"admin", "super_admin"}

// AdminRoles returns the roles allowed on the triage routes
func AdminRoles(cfg config.PortalConfig) []string {
	if len(cfg.AdminRoles) == 0 {
		return DefaultAdminRoles
	}
	return cfg.AdminRoles
}
