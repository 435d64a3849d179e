package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/teteocan/aurora-admin/authz"
	"github.com/teteocan/aurora-admin/internal/observability"
	"github.com/teteocan/aurora-admin/services"
	"github.com/teteocan/aurora-admin/services/admin"
	"github.com/teteocan/aurora-admin/utils"
	"go.uber.org/zap"
)

// Authenticator verifies bearer tokens. admin.Manager implements it.
type Authenticator interface {
	// Authenticate verifies a token and returns the caller
	Authenticate(ctx context.Context, bearerToken string) (authz.Subject, error)
	// VerifyAdminAndLoad verifies a token, requires the admin claim and loads the record
	VerifyAdminAndLoad(ctx context.Context, bearerToken string) (*admin.AdminSession, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	auth    Authenticator
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. metrics may be nil.
func NewAuthMiddleware(auth Authenticator, metrics *observability.Metrics, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		auth:    auth,
		metrics: metrics,
		logger:  logger,
	}
}

// authTokenCookieName is the cookie name for ID tokens (Authorization header takes precedence)
const authTokenCookieName = "auth_token"
const sessionCookieName = "session"

// RequireAuth is a middleware that requires a valid ID token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		subject, err := m.auth.Authenticate(ctx, extractToken(r))
		if err != nil {
			m.logger.Warn("authentication failed",
				zap.String("request_id", requestID),
				zap.String("code", string(services.GetErrorCode(err))),
				zap.Error(err))
			writeAuthError(w, err)
			return
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("uid", subject.UID))

		next.ServeHTTP(w, r.WithContext(WithSubject(ctx, subject)))
	})
}

// RequireAdmin is a middleware that requires the admin claim on a valid ID token.
// The administrator record is loaded, or created, and stored with the session.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		session, err := m.auth.VerifyAdminAndLoad(ctx, extractToken(r))
		if err != nil {
			m.logger.Warn("admin verification failed",
				zap.String("request_id", requestID),
				zap.String("code", string(services.GetErrorCode(err))),
				zap.Error(err))
			writeAuthError(w, err)
			return
		}

		m.logger.Debug("admin verified",
			zap.String("request_id", requestID),
			zap.String("uid", session.UID))

		next.ServeHTTP(w, r.WithContext(WithAdminSession(ctx, session)))
	})
}

// RequireSelfOrAdmin allows administrators and the caller whose UID equals the
// named URL parameter. It must run after RequireAuth.
func (m *AuthMiddleware) RequireSelfOrAdmin(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			subject, ok := GetSubjectFromContext(ctx)
			if !ok {
				m.logger.Error("subject not found in context",
					zap.String("request_id", requestID))
				writeAuthError(w, services.ErrMissingToken)
				return
			}

			owner := chi.URLParam(r, param)
			decision := authz.DecideSelfOrAdmin(subject, owner)
			m.metrics.AccessDecision("self_or_admin", decision.Allowed)
			if !decision.Allowed {
				m.logger.Warn("access denied",
					zap.String("request_id", requestID),
					zap.String("uid", subject.UID),
					zap.String("resource_owner", owner),
					zap.String("reason", decision.Reason))
				writeAuthError(w, decision.Err())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeAuthError maps the failures token verification and access decisions can
// produce. Anything else is reported without its cause.
func writeAuthError(w http.ResponseWriter, err error) {
	code := string(services.GetErrorCode(err))
	switch {
	case services.IsUnauthorizedError(err):
		_ = utils.WriteErrorCode(w, http.StatusUnauthorized, code, messageOf(err), nil)
	case services.IsForbiddenError(err):
		_ = utils.WriteErrorCode(w, http.StatusForbidden, code, messageOf(err), nil)
	case services.IsTimeoutError(err):
		_ = utils.WriteErrorCode(w, http.StatusGatewayTimeout, code, "identity provider timed out", nil)
	case services.IsExternalError(err):
		_ = utils.WriteErrorCode(w, http.StatusBadGateway, code, "identity provider error", nil)
	default:
		_ = utils.WriteErrorCode(w, http.StatusInternalServerError, string(services.CodeInternal), "internal server error", nil)
	}
}

func messageOf(err error) string {
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}

// extractToken extracts the ID token from the Authorization header ("Bearer TOKEN")
// or the auth_token / session cookie. The header takes precedence.
func extractToken(r *http.Request) string {
	if token := extractBearerToken(r); token != "" {
		return token
	}
	for _, name := range []string{authTokenCookieName, sessionCookieName} {
		if cookie, err := r.Cookie(name); err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}
	return ""
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
