// Package firebase implements identity.Provider on Firebase Authentication.
package firebase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	firebasesdk "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/errorutils"
	"github.com/teteocan/aurora-admin/identity"
	"github.com/teteocan/aurora-admin/models"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// emulatorHostEnv is read by the Firebase SDK to redirect auth calls to the local emulator
const emulatorHostEnv = "FIREBASE_AUTH_EMULATOR_HOST"

// tokenClaims are set by Firebase on every ID token; only the remaining keys are custom claims
var tokenClaims = map[string]bool{
	"email":          true,
	"email_verified": true,
	"auth_time":      true,
	"user_id":        true,
	"firebase":       true,
	"name":           true,
	"picture":        true,
	"phone_number":   true,
}

// AuthClient is the subset of *auth.Client used by Provider
type AuthClient interface {
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*auth.Token, error)
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (*auth.UserRecord, error)
	SetCustomUserClaims(ctx context.Context, uid string, customClaims map[string]interface{}) error
	RevokeRefreshTokens(ctx context.Context, uid string) error
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
}

// Config holds configuration for the Firebase provider
type Config struct {
	ProjectID       string
	CredentialsFile string
	EmulatorHost    string
}

// Provider verifies Firebase ID tokens and manages custom claims
type Provider struct {
	client AuthClient
	logger *zap.Logger
}

var _ identity.Provider = (*Provider)(nil)

// New initializes the Firebase app and its auth client
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Provider, error) {
	if cfg.EmulatorHost != "" {
		if err := os.Setenv(emulatorHostEnv, cfg.EmulatorHost); err != nil {
			return nil, fmt.Errorf("failed to set emulator host: %w", err)
		}
		logger.Info("using firebase auth emulator", zap.String("host", cfg.EmulatorHost))
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebasesdk.NewApp(ctx, &firebasesdk.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth client: %w", err)
	}

	return NewWithClient(client, logger), nil
}

// NewWithClient wraps an existing auth client
func NewWithClient(client AuthClient, logger *zap.Logger) *Provider {
	return &Provider{client: client, logger: logger}
}

// VerifyToken verifies an ID token, including the revocation check
func (p *Provider) VerifyToken(ctx context.Context, token string) (*models.VerifiedToken, error) {
	tok, err := p.client.VerifyIDTokenAndCheckRevoked(ctx, token)
	if err != nil {
		return nil, mapTokenError(ctx, err)
	}

	email, _ := tok.Claims["email"].(string)
	return &models.VerifiedToken{
		UID:       tok.UID,
		Email:     email,
		Claims:    models.ClaimsFromMap(customClaims(tok.Claims)),
		IssuedAt:  time.Unix(tok.IssuedAt, 0).UTC(),
		ExpiresAt: time.Unix(tok.Expires, 0).UTC(),
	}, nil
}

func customClaims(all map[string]interface{}) map[string]interface{} {
	custom := make(map[string]interface{}, len(all))
	for k, v := range all {
		if !tokenClaims[k] {
			custom[k] = v
		}
	}
	return custom
}

// GetUser looks up a user by UID
func (p *Provider) GetUser(ctx context.Context, uid string) (*models.Identity, error) {
	u, err := p.client.GetUser(ctx, uid)
	if err != nil {
		return nil, mapError(ctx, "get user", err)
	}
	return toIdentity(u), nil
}

// GetUserByEmail looks up a user by email
func (p *Provider) GetUserByEmail(ctx context.Context, email string) (*models.Identity, error) {
	u, err := p.client.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, mapError(ctx, "get user by email", err)
	}
	return toIdentity(u), nil
}

// SetClaims replaces the custom claims of uid
func (p *Provider) SetClaims(ctx context.Context, uid string, claims map[string]interface{}) error {
	if err := p.client.SetCustomUserClaims(ctx, uid, claims); err != nil {
		return mapError(ctx, "set custom claims", err)
	}
	return nil
}

// RevokeSessions revokes all refresh tokens of uid. ID tokens issued earlier fail
// VerifyToken from this point on.
func (p *Provider) RevokeSessions(ctx context.Context, uid string) error {
	if err := p.client.RevokeRefreshTokens(ctx, uid); err != nil {
		return mapError(ctx, "revoke refresh tokens", err)
	}
	return nil
}

// CreateUser creates an email/password user
func (p *Provider) CreateUser(ctx context.Context, email, password string) (*models.Identity, error) {
	params := (&auth.UserToCreate{}).Email(email).Password(password)
	u, err := p.client.CreateUser(ctx, params)
	if err != nil {
		return nil, mapError(ctx, "create user", err)
	}
	return toIdentity(u), nil
}

func toIdentity(u *auth.UserRecord) *models.Identity {
	id := &models.Identity{
		Claims:   models.ClaimsFromMap(u.CustomClaims),
		Disabled: u.Disabled,
	}
	if u.UserInfo != nil {
		id.UID = u.UID
		id.Email = u.Email
	}
	return id
}

func isDeadline(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		errorutils.IsDeadlineExceeded(err)
}

func mapTokenError(ctx context.Context, err error) error {
	switch {
	case isDeadline(ctx, err):
		return fmt.Errorf("verify id token: %w", context.DeadlineExceeded)
	case auth.IsIDTokenExpired(err):
		return identity.ErrTokenExpired
	case auth.IsIDTokenRevoked(err), auth.IsUserDisabled(err):
		return identity.ErrTokenRevoked
	case auth.IsIDTokenInvalid(err):
		return fmt.Errorf("%w: %v", identity.ErrTokenInvalid, err)
	case auth.IsUserNotFound(err):
		return identity.ErrTokenInvalid
	default:
		return fmt.Errorf("verify id token: %w", err)
	}
}

func mapError(ctx context.Context, op string, err error) error {
	switch {
	case isDeadline(ctx, err):
		return fmt.Errorf("%s: %w", op, context.DeadlineExceeded)
	case auth.IsUserNotFound(err):
		return identity.ErrIdentityNotFound
	case auth.IsEmailAlreadyExists(err):
		return identity.ErrEmailExists
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
