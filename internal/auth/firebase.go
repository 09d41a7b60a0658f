package auth

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/huddlechat/huddle/internal/models"
)

// FirebaseConfig configures server-side verification against a Firebase
// Authentication project.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsJSON string
}

// FirebaseProvider authenticates browser sign-ins: the client completes the
// interactive flow with the Firebase JS SDK and posts the resulting ID
// token, which is verified here.
type FirebaseProvider struct {
	client *fbauth.Client
}

func NewFirebaseProvider(ctx context.Context, cfg FirebaseConfig) (*FirebaseProvider, error) {
	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return &FirebaseProvider{client: client}, nil
}

var _ Provider = (*FirebaseProvider)(nil)

func (p *FirebaseProvider) SignIn(ctx context.Context, method Method, credential string) (*models.Identity, error) {
	switch method {
	case MethodGoogle:
		return p.signInWithIDToken(ctx, credential)
	case MethodAnonymous:
		return p.signInAnonymously(ctx)
	default:
		return nil, ErrMethodNotEnabled
	}
}

func (p *FirebaseProvider) signInWithIDToken(ctx context.Context, idToken string) (*models.Identity, error) {
	token, err := p.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		log.Printf("[auth] id token verification failed: %v", err)
		return nil, ErrInvalidCredential
	}

	id := &models.Identity{
		UID:       token.UID,
		Anonymous: token.Firebase.SignInProvider == "anonymous",
	}
	if name, ok := token.Claims["name"].(string); ok {
		id.DisplayName = name
	}
	if pic, ok := token.Claims["picture"].(string); ok {
		id.PhotoURL = pic
	}
	return id, nil
}

func (p *FirebaseProvider) signInAnonymously(ctx context.Context) (*models.Identity, error) {
	u, err := p.client.CreateUser(ctx, &fbauth.UserToCreate{})
	if err != nil {
		log.Printf("[auth] anonymous user creation failed: %v", err)
		return nil, fmt.Errorf("create anonymous user: %w", err)
	}
	return &models.Identity{UID: u.UID, Anonymous: true}, nil
}

func (p *FirebaseProvider) SignOut(ctx context.Context, uid string) error {
	return p.client.RevokeRefreshTokens(ctx, uid)
}
