package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/huddlechat/huddle/internal/models"
)

// LocalProvider is the development fallback used when no Firebase
// credentials are configured. It supports anonymous sign-in only; other
// methods surface the enabled-methods error the login screen expects.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

var _ Provider = (*LocalProvider)(nil)

func (p *LocalProvider) SignIn(ctx context.Context, method Method, credential string) (*models.Identity, error) {
	if method != MethodAnonymous {
		return nil, ErrMethodNotEnabled
	}
	return &models.Identity{
		UID:       "anon-" + uuid.New().String(),
		Anonymous: true,
	}, nil
}

func (p *LocalProvider) SignOut(ctx context.Context, uid string) error {
	return nil
}
