package auth

import (
	"context"

	apperrors "aptbook/pkg/errors"
	"aptbook/pkg/model"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID   string
	Email    string
	UserType model.UserType
}

func (i *Identity) IsAdmin() bool {
	return i.UserType == model.UserTypeAdmin || i.UserType == model.UserTypeStaff
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the caller identity, or nil for anonymous requests.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// RequireIdentity returns the caller or an Unauthorized error.
func RequireIdentity(ctx context.Context) (*Identity, error) {
	id := FromContext(ctx)
	if id == nil {
		return nil, apperrors.Unauthorized("Authentication credentials were not provided")
	}
	return id, nil
}

// RequireAdmin returns the caller if they are admin or staff.
func RequireAdmin(ctx context.Context) (*Identity, error) {
	id, err := RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if !id.IsAdmin() {
		return nil, apperrors.Forbidden("Admin privileges required")
	}
	return id, nil
}
