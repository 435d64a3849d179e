package middleware

import (
	"context"

	"github.com/teteocan/aurora-admin/authz"
	"github.com/teteocan/aurora-admin/services/admin"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// SubjectKey is the context key for the authenticated caller
	SubjectKey contextKey = "subject"

	// AdminSessionKey is the context key for an authenticated administrator
	AdminSessionKey contextKey = "admin_session"
)

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetSubjectFromContext retrieves the caller set by RequireAuth or RequireAdmin
func GetSubjectFromContext(ctx context.Context) (authz.Subject, bool) {
	subject, ok := ctx.Value(SubjectKey).(authz.Subject)
	return subject, ok
}

// WithSubject adds the authenticated caller to the context
func WithSubject(ctx context.Context, subject authz.Subject) context.Context {
	return context.WithValue(ctx, SubjectKey, subject)
}

// GetAdminSessionFromContext retrieves the session set by RequireAdmin
func GetAdminSessionFromContext(ctx context.Context) *admin.AdminSession {
	if val := ctx.Value(AdminSessionKey); val != nil {
		if session, ok := val.(*admin.AdminSession); ok {
			return session
		}
	}
	return nil
}

// WithAdminSession adds an administrator session, and its subject, to the context
func WithAdminSession(ctx context.Context, session *admin.AdminSession) context.Context {
	ctx = context.WithValue(ctx, AdminSessionKey, session)
	return WithSubject(ctx, session.Subject)
}
