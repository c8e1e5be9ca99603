package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/expert-gateway/config"
	"github.com/upb/expert-gateway/internal/policy"
	"github.com/upb/expert-gateway/models"
	"github.com/upb/expert-gateway/repositories/memory"
	"go.uber.org/zap/zaptest"
)

func TestNewDependencies(t *testing.T) {
	t.Run("memory-only wiring", func(t *testing.T) {
		ctx := context.Background()
		deps, err := NewDependencies(ctx, testConfig(), zaptest.NewLogger(t))
		require.NoError(t, err)
		require.NotNil(t, deps)
		defer deps.Close(ctx)

		assert.Nil(t, deps.DB)
		assert.Nil(t, deps.RepoFactory)
		assert.IsType(t, &memory.AdminAccessRepository{}, deps.AdminAccessLogs)

		require.NotNil(t, deps.AuditService)
		assert.True(t, deps.AuditService.GetStats().Started)

		assert.NotNil(t, deps.TokenValidator)
		assert.NotNil(t, deps.AuthMiddleware)
		assert.NotNil(t, deps.AdminGuard)
		assert.Equal(t, policy.DefaultAdminPrefix, deps.AccessPolicy.AdminPrefix())

		assert.Nil(t, deps.Metrics)
		assert.NotNil(t, deps.GateMetrics)
		assert.Nil(t, deps.Tracing)
	})

	t.Run("metrics enabled", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig()
		cfg.Observability.MetricsEnabled = true

		deps, err := NewDependencies(ctx, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		defer deps.Close(ctx)

		require.NotNil(t, deps.Metrics)
		assert.NotNil(t, deps.Metrics.Handler)
	})

	t.Run("tracing enabled", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig()
		cfg.Observability.TracingEnabled = true
		cfg.Observability.TracingExporter = "none"
		cfg.Observability.TracingSamplePct = 1

		deps, err := NewDependencies(ctx, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		defer deps.Close(ctx)

		assert.NotNil(t, deps.Tracing)
	})

	t.Run("tracing exporter misconfigured", func(t *testing.T) {
		t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
		t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
		cfg := testConfig()
		cfg.Observability.TracingEnabled = true
		cfg.Observability.TracingExporter = "otlp"

		deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
		assert.Error(t, err)
		assert.Nil(t, deps)
		assert.Contains(t, err.Error(), "failed to initialize tracing")
	})

	t.Run("invalid access policy", func(t *testing.T) {
		cfg := testConfig()
		cfg.Access.PublicPrefixes = []string{"/"}

		deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
		assert.Error(t, err)
		assert.Nil(t, deps)
		assert.Contains(t, err.Error(), "failed to initialize auth")
	})

	t.Run("database connection failure", func(t *testing.T) {
		cfg := testConfig()
		cfg.Database = &config.DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     1,
			User:     "gateway",
			Password: "gateway",
			Database: "gateway_test",
			SSLMode:  "disable",
		}

		deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
		assert.Error(t, err)
		assert.Nil(t, deps)
		assert.Contains(t, err.Error(), "failed to initialize database")
	})
}

func TestDependencies_AdminGuardFeedsStore(t *testing.T) {
	ctx := context.Background()
	deps, err := NewDependencies(ctx, testConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	record := models.NewAdminAccessLog("GET", "/admin/access-logs").
		WithUser(1, "root@example.com", models.RoleAdmin)
	require.NoError(t, deps.AuditService.LogAdminAccess(record))

	// Close drains the queue into the store
	require.NoError(t, deps.Close(ctx))

	count, err := deps.AdminAccessLogs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDependenciesClose(t *testing.T) {
	ctx := context.Background()
	deps, err := NewDependencies(ctx, testConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.NoError(t, deps.Close(ctx))
	assert.False(t, deps.AuditService.GetStats().Started)

	// Second close is a no-op
	assert.NoError(t, deps.Close(ctx))
}

// Test helpers

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		JWT: config.JWTConfig{
			Secret: []byte("0123456789abcdef0123456789abcdef"),
		},
		Access: config.AccessConfig{
			PublicPrefixes: []string{policy.DefaultPublicPrefix},
			AdminPrefix:    policy.DefaultAdminPrefix,
		},
		Audit: config.AuditConfig{
			BufferSize:     16,
			WorkerCount:    1,
			MemoryCapacity: 100,
		},
		Observability: config.ObservabilityConfig{
			LogLevel:       "debug",
			LogFormat:      "json",
			MetricsEnabled: false,
			MetricsPort:    9090,
		},
	}
}
