// Package auth handles accounts, session tokens and role-based access.
package auth

import (
	"context"

	"github.com/bnb-reservations/backend/internal/storage/models"
)

// RoleAnonymous is the policy subject for requests without a session.
const RoleAnonymous = "anonymous"

// Principal is the caller of a request.
type Principal struct {
	UserID string
	Role   string
}

// Anonymous returns the principal of a request without a session.
func Anonymous() Principal {
	return Principal{Role: RoleAnonymous}
}

// Authenticated returns true if the principal is a signed-in user.
func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

// IsHost returns true for the property owner.
func (p Principal) IsHost() bool {
	return p.Role == models.RoleHost
}

// CanManage returns true if the principal owns the record or is the host.
func (p Principal) CanManage(ownerID string) bool {
	return p.IsHost() || (p.Authenticated() && p.UserID == ownerID)
}

type ctxKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx, or Anonymous.
func PrincipalFrom(ctx context.Context) Principal {
	if p, ok := ctx.Value(ctxKey{}).(Principal); ok {
		return p
	}
	return Anonymous()
}
