package auth

import (
	"context"

	"github.com/straye-as/proposal-api/internal/domain"
)

// UserContext holds authenticated user information
type UserContext struct {
	UserID      string
	DisplayName string
	Email       string
	Roles       []domain.UserRole
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// HasRole checks if user has a specific role
func (u *UserContext) HasRole(role domain.UserRole) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole checks if user has any of the specified roles
func (u *UserContext) HasAnyRole(roles ...domain.UserRole) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// IsPrivileged reports whether the user may work on every proposal
func (u *UserContext) IsPrivileged() bool {
	return u.HasAnyRole(domain.RoleAdmin, domain.RoleAPIService)
}

// Actor converts the user into the identity recorded on price changes
func (u *UserContext) Actor() domain.Actor {
	name := u.DisplayName
	if name == "" {
		name = u.Email
	}
	return domain.Actor{
		ID:         u.UserID,
		Name:       name,
		Privileged: u.IsPrivileged(),
	}
}

// RolesAsStrings returns roles as a slice of strings
func (u *UserContext) RolesAsStrings() []string {
	result := make([]string, len(u.Roles))
	for i, role := range u.Roles {
		result[i] = string(role)
	}
	return result
}

// ActorFromContext returns the authenticated actor, or the zero Actor when
// the request is unauthenticated
func ActorFromContext(ctx context.Context) domain.Actor {
	user, ok := FromContext(ctx)
	if !ok {
		return domain.Actor{}
	}
	return user.Actor()
}
