package auth

import (
	"context"

	"photorestore/internal/domain"
	"photorestore/internal/providers/supabase"
)

// TokenValidator turns an access token into a subject identity.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*domain.Identity, error)
}

// UserIntrospector is the subset of the identity backend used for token validation.
type UserIntrospector interface {
	GetUser(ctx context.Context, accessToken string) (*supabase.User, error)
}

// RemoteValidator validates tokens by asking the identity backend.
type RemoteValidator struct {
	backend UserIntrospector
}

func NewRemoteValidator(backend UserIntrospector) *RemoteValidator {
	return &RemoteValidator{backend: backend}
}

func (v *RemoteValidator) ValidateToken(ctx context.Context, token string) (*domain.Identity, error) {
	user, err := v.backend.GetUser(ctx, token)
	if err != nil {
		return nil, err
	}
	return &domain.Identity{
		Subject:      user.ID,
		Email:        user.Email,
		UserMetadata: user.UserMetadata,
		AppMetadata:  user.AppMetadata,
	}, nil
}

var (
	_ TokenValidator   = (*RemoteValidator)(nil)
	_ UserIntrospector = (*supabase.Client)(nil)
)
