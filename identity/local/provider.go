// Package local is an in-process identity provider for development and tests.
// Tokens are HS256 JWTs; each user carries a revocation generation that is
// embedded in every token as "rev" and bumped by RevokeSessions.
package local

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/teteocan/aurora-admin/identity"
	"github.com/teteocan/aurora-admin/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	claimGeneration = "rev"
	claimEmail      = "email"
)

// reserved JWT keys never surface as custom claims
var reservedClaims = map[string]bool{
	"iss": true, "sub": true, "aud": true, "exp": true, "nbf": true, "iat": true, "jti": true,
	claimEmail: true, claimGeneration: true,
}

var (
	// ErrInvalidCredentials is returned by SignIn on unknown email or wrong password
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrMissingSecret is returned when no signing secret is configured
	ErrMissingSecret = errors.New("local identity provider requires a signing secret")
)

// Config holds configuration for the local provider
type Config struct {
	Secret     []byte
	Issuer     string
	TokenTTL   time.Duration
	BCryptCost int
	Now        func() time.Time
}

type user struct {
	uid          string
	email        string
	passwordHash string
	claims       map[string]interface{}
	disabled     bool
	generation   int64
}

// Provider keeps users in memory and mints its own tokens
type Provider struct {
	secret []byte
	issuer string
	ttl    time.Duration
	cost   int
	now    func() time.Time

	mu      sync.RWMutex
	users   map[string]*user
	byEmail map[string]string
}

var _ identity.Provider = (*Provider)(nil)

// New creates an empty local provider
func New(cfg Config) (*Provider, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "aurora-admin-local"
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.BCryptCost == 0 {
		cfg.BCryptCost = bcrypt.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Provider{
		secret:  cfg.Secret,
		issuer:  cfg.Issuer,
		ttl:     cfg.TokenTTL,
		cost:    cfg.BCryptCost,
		now:     cfg.Now,
		users:   make(map[string]*user),
		byEmail: make(map[string]string),
	}, nil
}

// VerifyToken validates signature, issuer and expiry, then compares the token's
// generation with the user's current one.
func (p *Provider) VerifyToken(ctx context.Context, token string) (*models.VerifiedToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, identity.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", identity.ErrTokenInvalid, err)
	}

	uid, err := claims.GetSubject()
	if err != nil || uid == "" {
		return nil, identity.ErrTokenInvalid
	}
	gen, ok := claims[claimGeneration].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s claim", identity.ErrTokenInvalid, claimGeneration)
	}

	p.mu.RLock()
	u, exists := p.users[uid]
	var current int64
	var disabled bool
	if exists {
		current = u.generation
		disabled = u.disabled
	}
	p.mu.RUnlock()

	if !exists {
		return nil, identity.ErrTokenInvalid
	}
	if disabled || int64(gen) < current {
		return nil, identity.ErrTokenRevoked
	}

	custom := make(map[string]interface{}, len(claims))
	for k, v := range claims {
		if !reservedClaims[k] {
			custom[k] = v
		}
	}

	vt := &models.VerifiedToken{
		UID:    uid,
		Claims: models.ClaimsFromMap(custom),
	}
	vt.Email, _ = claims[claimEmail].(string)
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		vt.IssuedAt = iat.Time.UTC()
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		vt.ExpiresAt = exp.Time.UTC()
	}
	return vt, nil
}

// GetUser looks up a user by UID
func (p *Provider) GetUser(ctx context.Context, uid string) (*models.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	u, ok := p.users[uid]
	if !ok {
		return nil, identity.ErrIdentityNotFound
	}
	return u.identity(), nil
}

// GetUserByEmail looks up a user by email, case-insensitively
func (p *Provider) GetUserByEmail(ctx context.Context, email string) (*models.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	uid, ok := p.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, identity.ErrIdentityNotFound
	}
	return p.users[uid].identity(), nil
}

// SetClaims replaces the custom claims of uid. Tokens already issued keep the
// claims they were minted with until they are revoked or expire.
func (p *Provider) SetClaims(ctx context.Context, uid string, claims map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[uid]
	if !ok {
		return identity.ErrIdentityNotFound
	}
	u.claims = copyClaims(claims)
	return nil
}

// RevokeSessions bumps the user's generation so every earlier token fails verification
func (p *Provider) RevokeSessions(ctx context.Context, uid string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[uid]
	if !ok {
		return identity.ErrIdentityNotFound
	}
	u.generation++
	return nil
}

// CreateUser registers a new email/password user with a random UID
func (p *Provider) CreateUser(ctx context.Context, email, password string) (*models.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.AddUser(uuid.NewString(), email, password, nil)
}

// AddUser registers a user with a fixed UID
func (p *Provider) AddUser(uid, email, password string, claims map[string]interface{}) (*models.Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return p.addHashed(uid, email, string(hash), claims, false)
}

func (p *Provider) addHashed(uid, email, hash string, claims map[string]interface{}, disabled bool) (*models.Identity, error) {
	key := normalizeEmail(email)

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, taken := p.byEmail[key]; taken {
		return nil, identity.ErrEmailExists
	}
	if _, taken := p.users[uid]; taken {
		return nil, fmt.Errorf("uid %q already registered", uid)
	}

	u := &user{
		uid:          uid,
		email:        email,
		passwordHash: hash,
		claims:       copyClaims(claims),
		disabled:     disabled,
	}
	p.users[uid] = u
	p.byEmail[key] = uid
	return u.identity(), nil
}

// SignIn checks an email/password pair and returns a fresh token
func (p *Provider) SignIn(ctx context.Context, email, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.RLock()
	uid, ok := p.byEmail[normalizeEmail(email)]
	var hash string
	if ok {
		hash = p.users[uid].passwordHash
	}
	p.mu.RUnlock()

	if !ok || hash == "" {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return p.IssueToken(uid)
}

// IssueToken mints a token for uid carrying its current claims and generation
func (p *Provider) IssueToken(uid string) (string, error) {
	p.mu.RLock()
	u, ok := p.users[uid]
	if !ok {
		p.mu.RUnlock()
		return "", identity.ErrIdentityNotFound
	}
	claims := jwt.MapClaims{}
	for k, v := range u.claims {
		if !reservedClaims[k] {
			claims[k] = v
		}
	}
	claims[claimEmail] = u.email
	claims[claimGeneration] = u.generation
	p.mu.RUnlock()

	now := p.now()
	claims["iss"] = p.issuer
	claims["sub"] = uid
	claims["iat"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(now.Add(p.ttl))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Disable marks a user disabled; their tokens fail verification as revoked
func (p *Provider) Disable(uid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[uid]
	if !ok {
		return identity.ErrIdentityNotFound
	}
	u.disabled = true
	return nil
}

func (u *user) identity() *models.Identity {
	return &models.Identity{
		UID:      u.uid,
		Email:    u.email,
		Claims:   models.ClaimsFromMap(u.claims),
		Disabled: u.disabled,
	}
}

func copyClaims(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
