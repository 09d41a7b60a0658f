// Package auth abstracts the authentication provider. The core only needs
// sign-in, sign-out and the resulting Identity; session persistence is the
// gateway's concern.
package auth

import (
	"context"
	"errors"

	"github.com/huddlechat/huddle/internal/models"
)

// Method is the sign-in method hint supplied by the client.
type Method string

const (
	MethodGoogle    Method = "google"
	MethodAnonymous Method = "anonymous"
)

var (
	ErrMethodNotEnabled  = errors.New("sign-in method not enabled")
	ErrInvalidCredential = errors.New("invalid credential")
)

type Provider interface {
	// SignIn authenticates with the given method. For MethodGoogle the
	// credential is the provider-issued ID token; for MethodAnonymous it is
	// ignored.
	SignIn(ctx context.Context, method Method, credential string) (*models.Identity, error)
	// SignOut revokes the identity's session with the provider.
	SignOut(ctx context.Context, uid string) error
}

// FriendlyMessage maps provider errors to the user-visible text shown on
// the login screen.
func FriendlyMessage(err error) string {
	switch {
	case errors.Is(err, ErrMethodNotEnabled):
		return "This sign-in method is not enabled. Please enable it in your project's authentication settings."
	case errors.Is(err, ErrInvalidCredential):
		return "Your sign-in credential was rejected. Please try again."
	default:
		return "An unexpected error occurred. Please try again."
	}
}
