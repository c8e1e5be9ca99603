package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/upb/expert-gateway/config"
	"github.com/upb/expert-gateway/internal/observability"
	"github.com/upb/expert-gateway/internal/policy"
	"github.com/upb/expert-gateway/jwtutil"
	"github.com/upb/expert-gateway/middleware"
	"github.com/upb/expert-gateway/repositories"
	"github.com/upb/expert-gateway/repositories/memory"
	"github.com/upb/expert-gateway/repositories/postgres"
	"github.com/upb/expert-gateway/services/audit"
	"go.uber.org/zap"
)

// ServiceName identifies the gateway in telemetry
const ServiceName = "expert-gateway"

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB // nil when no database is configured
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	AdminAccessLogs repositories.AdminAccessRepository

	// Services
	AuditService *audit.AuditService

	// Observability
	Metrics     *observability.PrometheusProvider // nil when metrics are disabled
	GateMetrics *observability.GateMetrics
	Tracing     *observability.TracerProvider // nil when tracing is disabled

	// Auth
	TokenValidator *jwtutil.Validator
	AccessPolicy   policy.AccessPolicy
	AuthMiddleware *middleware.AuthMiddleware
	AdminGuard     *middleware.AdminGuard

	closeOnce sync.Once
	closeErr  error
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initStorage(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initAudit(cfg); err != nil {
		deps.closeStorage()
		return nil, fmt.Errorf("failed to initialize audit service: %w", err)
	}

	if err := deps.initMetrics(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	if err := deps.initTracing(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err := deps.initAuth(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initStorage opens PostgreSQL when configured, otherwise falls back to the in-memory store
func (d *Dependencies) initStorage(ctx context.Context, cfg *config.Config) error {
	if cfg.Database == nil {
		d.AdminAccessLogs = memory.NewAdminAccessRepository(cfg.Audit.MemoryCapacity)
		d.Logger.Warn("no database configured, admin access records are kept in memory",
			zap.Int("capacity", cfg.Audit.MemoryCapacity))
		return nil
	}

	factory, err := postgres.NewRepositoryFactory(*cfg.Database, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	if cfg.Database.InitSchema {
		if err := factory.InitSchema(ctx); err != nil {
			_ = factory.Close()
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	d.RepoFactory = factory
	d.DB = factory.DB()
	d.AdminAccessLogs = factory.NewRepositories().AdminAccessLogs
	return nil
}

func (d *Dependencies) initAudit(cfg *config.Config) error {
	d.AuditService = audit.NewAuditService(d.AdminAccessLogs, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
	})
	return d.AuditService.Start()
}

func (d *Dependencies) initMetrics(ctx context.Context, cfg *config.Config) error {
	if !cfg.Observability.MetricsEnabled {
		d.GateMetrics = observability.NewNoopGateMetrics()
		d.Logger.Info("metrics disabled")
		return nil
	}

	push, err := observability.NewPushReader(ctx, cfg.Observability.MetricsPushExporter)
	if err != nil {
		return err
	}

	var provider *observability.PrometheusProvider
	if push != nil {
		provider, err = observability.NewPrometheusProvider(push)
	} else {
		provider, err = observability.NewPrometheusProvider()
	}
	if err != nil {
		return err
	}
	d.Metrics = provider

	gateMetrics, err := observability.NewGateMetrics(provider.Meter())
	if err != nil {
		return err
	}
	d.GateMetrics = gateMetrics
	return nil
}

func (d *Dependencies) initTracing(ctx context.Context, cfg *config.Config) error {
	if !cfg.Observability.TracingEnabled {
		return nil
	}

	tp, err := observability.NewTracerProvider(ctx, observability.TracingConfig{
		ServiceName: ServiceName,
		Exporter:    cfg.Observability.TracingExporter,
		SamplePct:   cfg.Observability.TracingSamplePct,
	})
	if err != nil {
		return err
	}
	d.Tracing = tp

	d.Logger.Info("tracing enabled",
		zap.String("exporter", cfg.Observability.TracingExporter),
		zap.Float64("sample_pct", cfg.Observability.TracingSamplePct))
	return nil
}

func (d *Dependencies) initAuth(cfg *config.Config) error {
	accessPolicy, err := cfg.AccessPolicy()
	if err != nil {
		return err
	}
	d.AccessPolicy = accessPolicy

	validator, err := jwtutil.NewValidator(jwtutil.Config{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Leeway: cfg.JWT.Leeway,
	})
	if err != nil {
		return err
	}
	d.TokenValidator = validator

	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, accessPolicy, d.GateMetrics, d.Logger)
	if d.Tracing != nil {
		d.AuthMiddleware.WithTracer(d.Tracing.Tracer())
	}
	d.AdminGuard = middleware.NewAdminGuard(d.AuditService, d.GateMetrics, d.Logger)

	d.Logger.Info("auth gate initialized",
		zap.Strings("public_prefixes", accessPolicy.PublicPrefixes()),
		zap.String("admin_prefix", accessPolicy.AdminPrefix()))
	return nil
}

// Close gracefully shuts down all dependencies. Only the first call has effect.
func (d *Dependencies) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.closeErr = d.close(ctx)
	})
	return d.closeErr
}

func (d *Dependencies) close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Drain queued admin access records before the store goes away
	if d.AuditService != nil {
		if err := d.AuditService.Stop(d.Config.Server.ShutdownTimeout); err != nil && !errors.Is(err, audit.ErrNotStarted) {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.Tracing != nil {
		if err := d.Tracing.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down tracing: %w", err))
		}
	}

	if d.Metrics != nil {
		if err := d.Metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down metrics: %w", err))
		}
	}

	if err := d.closeStorage(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return errors.Join(errs...)
}

func (d *Dependencies) closeStorage() error {
	if d.RepoFactory == nil {
		return nil
	}
	if err := d.RepoFactory.Close(); err != nil {
		return err
	}
	d.Logger.Info("database connection closed")
	return nil
}
