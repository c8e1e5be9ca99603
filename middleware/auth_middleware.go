package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/upb/expert-gateway/internal/observability"
	"github.com/upb/expert-gateway/internal/policy"
	"github.com/upb/expert-gateway/jwtutil"
	"github.com/upb/expert-gateway/models"
	"github.com/upb/expert-gateway/services"
	"github.com/upb/expert-gateway/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// AuthorizationHeader carries the bearer credential
const AuthorizationHeader = "Authorization"

// TokenValidator defines the interface for validating JWT tokens
type TokenValidator interface {
	// SubstringToken strips the Bearer scheme from the header value
	SubstringToken(header string) (string, error)
	// ValidateToken validates a JWT token and returns claims
	ValidateToken(ctx context.Context, token string) (*jwtutil.ParsedClaims, error)
}

// AuthMiddleware is the per-request authentication gate
type AuthMiddleware struct {
	validator TokenValidator
	engine    *policy.Engine
	metrics   *observability.GateMetrics
	tracer    trace.Tracer
	logger    *zap.Logger
	checks    []gateCheck
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(
	validator TokenValidator,
	accessPolicy policy.AccessPolicy,
	metrics *observability.GateMetrics,
	logger *zap.Logger,
) *AuthMiddleware {
	m := &AuthMiddleware{
		validator: validator,
		engine:    policy.NewEngine(accessPolicy),
		metrics:   metrics,
		tracer:    tracenoop.NewTracerProvider().Tracer(observability.MeterName),
		logger:    logger,
	}
	m.checks = []gateCheck{
		{name: "bypass", run: m.checkBypass},
		{name: "extract", run: m.checkExtract},
		{name: "validate", run: m.checkValidate},
		{name: "attach", run: m.checkAttach},
		{name: "authorize", run: m.checkAuthorize},
	}
	return m
}

// WithTracer sets the tracer that records one span per gated request
func (m *AuthMiddleware) WithTracer(tracer trace.Tracer) *AuthMiddleware {
	if tracer != nil {
		m.tracer = tracer
	}
	return m
}

// Authenticate runs the gate pipeline for every request.
// Only this runner writes a response; checks report a Verdict.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := m.tracer.Start(r.Context(), "auth.gate",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.path", r.URL.Path),
			))
		defer span.End()

		state := &gateState{request: r.WithContext(ctx)}
		verdict, stage := m.evaluate(state)

		requestID := GetRequestIDFromContext(ctx)

		if verdict.Rejected() {
			span.SetAttributes(
				attribute.String("gate.outcome", observability.OutcomeReject),
				attribute.String("gate.stage", stage))
			span.SetStatus(codes.Error, string(verdict.Err.Type))
			m.metrics.RecordDecision(ctx, observability.OutcomeReject, string(verdict.Err.Type))
			m.logger.Warn("request rejected by auth gate",
				zap.String("request_id", requestID),
				zap.String("stage", stage),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("reason", string(verdict.Err.Type)),
				zap.Error(verdict.Err))
			_ = utils.WriteText(w, verdict.Err.StatusCode(), verdict.Err.Message)
			return
		}

		if state.user == nil {
			span.SetAttributes(attribute.String("gate.outcome", observability.OutcomeBypass))
			m.metrics.RecordDecision(ctx, observability.OutcomeBypass, stage)
			next.ServeHTTP(w, state.request)
			return
		}

		span.SetAttributes(
			attribute.String("gate.outcome", observability.OutcomeAllow),
			attribute.String("gate.requirement", state.requirement.String()),
			attribute.Int64("enduser.id", state.user.UserID))
		span.SetStatus(codes.Ok, "")
		m.metrics.RecordDecision(ctx, observability.OutcomeAllow, state.requirement.String())
		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.Int64("user_id", state.user.UserID),
			zap.String("role", state.user.Role.String()))

		next.ServeHTTP(w, state.request)
	})
}

// evaluate runs checks in order until one allows or rejects
func (m *AuthMiddleware) evaluate(state *gateState) (Verdict, string) {
	for _, check := range m.checks {
		verdict := check.run(state)
		if !verdict.Continues() {
			return verdict, check.name
		}
	}
	return Allow(), "complete"
}

func (m *AuthMiddleware) checkBypass(state *gateState) Verdict {
	if m.engine.Policy().IsPublic(state.request.URL.Path) {
		state.requirement = policy.RequirePublic
		return Allow()
	}
	return Continue()
}

func (m *AuthMiddleware) checkExtract(state *gateState) Verdict {
	header := state.request.Header.Get(AuthorizationHeader)
	if header == "" {
		return Reject(services.ErrMissingCredential)
	}

	token, err := m.validator.SubstringToken(header)
	if err != nil {
		return Reject(services.ErrMalformedCredential.Wrap(err))
	}

	state.token = token
	return Continue()
}

func (m *AuthMiddleware) checkValidate(state *gateState) Verdict {
	claims, err := m.validator.ValidateToken(state.request.Context(), state.token)
	if err != nil {
		return Reject(credentialError(err))
	}

	role, err := models.ParseUserRole(claims.Role)
	if err != nil {
		return Reject(services.ErrMalformedCredential.Wrap(err))
	}

	state.user = &AuthUser{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   role,
	}
	return Continue()
}

func (m *AuthMiddleware) checkAttach(state *gateState) Verdict {
	ctx := WithAuthUser(state.request.Context(), state.user)
	state.request = state.request.WithContext(ctx)
	return Continue()
}

func (m *AuthMiddleware) checkAuthorize(state *gateState) Verdict {
	decision := m.engine.Evaluate(state.request.URL.Path, state.user.Role.String())
	state.requirement = decision.Requirement
	if !decision.Allowed {
		return Reject(services.ErrForbidden.Wrap(errors.New(decision.Reason)))
	}
	return Continue()
}

// credentialError maps token failures onto the outward taxonomy
func credentialError(err error) *services.DomainError {
	switch {
	case errors.Is(err, jwtutil.ErrTokenExpired):
		return services.ErrExpiredCredential.Wrap(err)
	case errors.Is(err, jwtutil.ErrInvalidSignature):
		return services.ErrInvalidCredential.Wrap(err)
	case errors.Is(err, jwtutil.ErrUnsupportedToken):
		return services.ErrUnsupportedCredential.Wrap(err)
	default:
		return services.ErrMalformedCredential.Wrap(err)
	}
}
