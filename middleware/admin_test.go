package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/expert-gateway/internal/policy"
	"github.com/upb/expert-gateway/jwtutil"
	"github.com/upb/expert-gateway/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// MockAccessRecorder is a mock implementation of AccessRecorder
type MockAccessRecorder struct {
	mock.Mock
}

func (m *MockAccessRecorder) LogAdminAccess(record *models.AdminAccessLog) error {
	args := m.Called(record)
	return args.Error(0)
}

func requestAs(user *AuthUser, method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "203.0.113.9:51234"
	req.Header.Set("User-Agent", "gateway-test")
	ctx := context.WithValue(req.Context(), chimw.RequestIDKey, "req-42")
	if user != nil {
		ctx = WithAuthUser(ctx, user)
	}
	return req.WithContext(ctx)
}

func TestRequireAdmin(t *testing.T) {
	logger := zap.NewNop()

	t.Run("admin is allowed and recorded", func(t *testing.T) {
		recorder := new(MockAccessRecorder)
		guard := NewAdminGuard(recorder, nil, logger)

		var captured *models.AdminAccessLog
		recorder.On("LogAdminAccess", mock.AnythingOfType("*models.AdminAccessLog")).
			Run(func(args mock.Arguments) { captured = args.Get(0).(*models.AdminAccessLog) }).
			Return(nil)

		c := &capture{}
		w := httptest.NewRecorder()
		admin := &AuthUser{UserID: 7, Email: "root@b.com", Role: models.RoleAdmin}
		guard.RequireAdmin(c.handler()).ServeHTTP(w, requestAs(admin, http.MethodDelete, "/admin/users/1"))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, c.called)
		recorder.AssertExpectations(t)

		require.NotNil(t, captured)
		assert.Equal(t, int64(7), captured.UserID)
		assert.Equal(t, "root@b.com", captured.Email)
		assert.Equal(t, models.RoleAdmin, captured.Role)
		assert.Equal(t, http.MethodDelete, captured.Method)
		assert.Equal(t, "/admin/users/1", captured.Path)
		assert.Equal(t, "req-42", captured.RequestID)
		assert.Equal(t, "203.0.113.9", captured.IPAddress)
		assert.Equal(t, "gateway-test", captured.UserAgent)
		assert.WithinDuration(t, time.Now(), captured.Timestamp, 5*time.Second)
	})

	t.Run("user is forbidden and not recorded", func(t *testing.T) {
		recorder := new(MockAccessRecorder)
		guard := NewAdminGuard(recorder, nil, logger)

		c := &capture{}
		w := httptest.NewRecorder()
		user := &AuthUser{UserID: 1, Email: "a@b.com", Role: models.RoleUser}
		guard.RequireAdmin(c.handler()).ServeHTTP(w, requestAs(user, http.MethodGet, "/admin/users/1"))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "No admin privileges.", w.Body.String())
		assert.False(t, c.called)
		recorder.AssertNotCalled(t, "LogAdminAccess", mock.Anything)
	})

	t.Run("missing identity fails closed", func(t *testing.T) {
		guard := NewAdminGuard(nil, nil, logger)

		c := &capture{}
		w := httptest.NewRecorder()
		guard.RequireAdmin(c.handler()).ServeHTTP(w, requestAs(nil, http.MethodGet, "/admin/users"))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "No admin privileges.", w.Body.String())
		assert.False(t, c.called)
	})

	t.Run("unparseable role fails closed", func(t *testing.T) {
		guard := NewAdminGuard(nil, nil, logger)

		c := &capture{}
		w := httptest.NewRecorder()
		odd := &AuthUser{UserID: 3, Role: models.UserRole("admin")}
		guard.RequireAdmin(c.handler()).ServeHTTP(w, requestAs(odd, http.MethodGet, "/admin/users"))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.False(t, c.called)
	})

	t.Run("recorder failure does not fail the request", func(t *testing.T) {
		recorder := new(MockAccessRecorder)
		guard := NewAdminGuard(recorder, nil, logger)
		recorder.On("LogAdminAccess", mock.Anything).Return(errors.New("audit event buffer full"))

		c := &capture{}
		w := httptest.NewRecorder()
		admin := &AuthUser{UserID: 7, Role: models.RoleAdmin}
		guard.RequireAdmin(c.handler()).ServeHTTP(w, requestAs(admin, http.MethodGet, "/admin/access-logs"))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, c.called)
		recorder.AssertExpectations(t)
	})
}

func TestRequireAdmin_AccessLogLine(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	guard := NewAdminGuard(nil, nil, zap.New(core))

	w := httptest.NewRecorder()
	admin := &AuthUser{UserID: 7, Role: models.RoleAdmin}
	guard.RequireAdmin((&capture{}).handler()).ServeHTTP(w, requestAs(admin, http.MethodGet, "/admin/users/1"))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, logs.Len())
	assert.Regexp(t,
		regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] GET /admin/users/1$`),
		logs.All()[0].Message)
}

func TestGateAndGuard_AdminFlow(t *testing.T) {
	v, err := jwtutil.NewValidator(jwtutil.Config{Secret: testSecret})
	require.NoError(t, err)
	gate := NewAuthMiddleware(v, policy.DefaultAccessPolicy(), nil, zap.NewNop())

	recorder := new(MockAccessRecorder)
	recorder.On("LogAdminAccess", mock.Anything).Return(nil).Once()
	guard := NewAdminGuard(recorder, nil, zap.NewNop())

	h := gate.Authenticate(guard.RequireAdmin((&capture{}).handler()))

	adminToken := signToken(t, v, 9, "boss@b.com", models.RoleAdmin, time.Hour)
	userToken := signToken(t, v, 1, "a@b.com", models.RoleUser, time.Hour)

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/admin/users/1", "Bearer "+adminToken).Code)
	assert.Equal(t, http.StatusForbidden, serve(h, http.MethodGet, "/admin/users/1", "Bearer "+userToken).Code)

	recorder.AssertNumberOfCalls(t, "LogAdminAccess", 1)
}
