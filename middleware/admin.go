package middleware

import (
	"fmt"
	"net"
	"net/http"

	"github.com/upb/expert-gateway/internal/observability"
	"github.com/upb/expert-gateway/models"
	"github.com/upb/expert-gateway/services"
	"github.com/upb/expert-gateway/utils"
	"go.uber.org/zap"
)

// accessLogTimeFormat renders yyyy-MM-dd HH:mm:ss
const accessLogTimeFormat = "2006-01-02 15:04:05"

// AccessRecorder accepts admin access records for asynchronous persistence
type AccessRecorder interface {
	LogAdminAccess(record *models.AdminAccessLog) error
}

// AdminGuard is the enforcement point for handlers marked admin-only
type AdminGuard struct {
	recorder AccessRecorder
	metrics  *observability.GateMetrics
	logger   *zap.Logger
}

// NewAdminGuard creates a new AdminGuard. recorder may be nil.
func NewAdminGuard(recorder AccessRecorder, metrics *observability.GateMetrics, logger *zap.Logger) *AdminGuard {
	return &AdminGuard{
		recorder: recorder,
		metrics:  metrics,
		logger:   logger,
	}
}

// RequireAdmin re-checks that the caller holds the ADMIN role.
// A missing caller fails closed with 403. Allowed requests produce an
// access record; recording failures never fail the request.
func (g *AdminGuard) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		user := GetAuthUserFromContext(ctx)
		if !user.IsAdmin() {
			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			}
			if user != nil {
				fields = append(fields, zap.Int64("user_id", user.UserID), zap.String("role", user.Role.String()))
			}
			g.logger.Warn("admin privileges required", fields...)
			_ = utils.WriteText(w, services.ErrForbidden.StatusCode(), services.ErrForbidden.Message)
			return
		}

		record := models.NewAdminAccessLog(r.Method, r.URL.Path).
			WithUser(user.UserID, user.Email, user.Role).
			WithRequest(requestID, clientIP(r), r.UserAgent())

		g.logger.Info(fmt.Sprintf("[%s] %s %s", record.Timestamp.Format(accessLogTimeFormat), record.Method, record.Path),
			zap.String("request_id", requestID),
			zap.Int64("user_id", user.UserID))
		g.metrics.RecordAdminAccess(ctx, r.Method)

		if g.recorder != nil {
			if err := g.recorder.LogAdminAccess(record); err != nil {
				g.metrics.RecordAuditDrop(ctx)
				g.logger.Debug("admin access record not queued",
					zap.String("request_id", requestID),
					zap.Error(err))
			}
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr, which chi's RealIP may already have replaced
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
