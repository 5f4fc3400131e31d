package middleware

import (
	"context"

	"github.com/biblionet/biblionet-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID     contextKey = "user_id"
	ctxRole       contextKey = "actor_role"
	ctxCustomerID contextKey = "customer_id"
	ctxSessionID  contextKey = "session_id"
	ctxRequestID  contextKey = "request_id"
)

// UserIDFromContext returns the authenticated user id or zero.
func UserIDFromContext(ctx context.Context) uint {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(ctxUserID).(uint); ok {
		return v
	}
	return 0
}

func RoleFromContext(ctx context.Context) enums.Role {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.Role); ok {
		return v
	}
	return ""
}

// CustomerIDFromContext returns the customer profile bound to the token, if any.
func CustomerIDFromContext(ctx context.Context) (uint, bool) {
	if ctx == nil {
		return 0, false
	}
	if v, ok := ctx.Value(ctxCustomerID).(uint); ok && v != 0 {
		return v, true
	}
	return 0, false
}

func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSessionID).(string); ok {
		return v
	}
	return ""
}

// WithPrincipal injects the authenticated identity into the context.
func WithPrincipal(ctx context.Context, userID uint, role enums.Role, customerID *uint) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxRole, role)
	if customerID != nil {
		ctx = context.WithValue(ctx, ctxCustomerID, *customerID)
	}
	return ctx
}
