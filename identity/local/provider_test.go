package local

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teteocan/aurora-admin/identity"
	"golang.org/x/crypto/bcrypt"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestProvider(t *testing.T) (*Provider, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	p, err := New(Config{
		Secret:     []byte("test-secret"),
		TokenTTL:   time.Hour,
		BCryptCost: bcrypt.MinCost,
		Now:        clock.Now,
	})
	require.NoError(t, err)
	return p, clock
}

func TestNew_RequiresSecret(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestVerifyToken_RoundTrip(t *testing.T) {
	p, clock := newTestProvider(t)
	ctx := context.Background()

	_, err := p.AddUser("uid-1", "ana@example.com", "pw", map[string]interface{}{"admin": true, "premiumFeature": true})
	require.NoError(t, err)

	token, err := p.IssueToken("uid-1")
	require.NoError(t, err)

	vt, err := p.VerifyToken(ctx, token)
	require.NoError(t, err)

	assert.Equal(t, "uid-1", vt.UID)
	assert.Equal(t, "ana@example.com", vt.Email)
	assert.True(t, vt.Claims.IsAdmin())
	assert.Equal(t, true, vt.Claims.Extra["premiumFeature"])
	assert.NotContains(t, vt.Claims.Extra, "rev")
	assert.NotContains(t, vt.Claims.Extra, "sub")
	assert.Equal(t, clock.now, vt.IssuedAt)
	assert.Equal(t, clock.now.Add(time.Hour), vt.ExpiresAt)
}

func TestVerifyToken_ExpiredIsDistinctFromInvalid(t *testing.T) {
	p, clock := newTestProvider(t)
	ctx := context.Background()

	_, err := p.AddUser("uid-1", "ana@example.com", "pw", nil)
	require.NoError(t, err)

	token, err := p.IssueToken("uid-1")
	require.NoError(t, err)

	clock.now = clock.now.Add(2 * time.Hour)

	_, err = p.VerifyToken(ctx, token)
	assert.ErrorIs(t, err, identity.ErrTokenExpired)
	assert.NotErrorIs(t, err, identity.ErrTokenInvalid)

	_, err = p.VerifyToken(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, identity.ErrTokenInvalid)
	assert.NotErrorIs(t, err, identity.ErrTokenExpired)
}

func TestVerifyToken_RejectsForeignSignature(t *testing.T) {
	p, clock := newTestProvider(t)

	_, err := p.AddUser("uid-1", "ana@example.com", "pw", nil)
	require.NoError(t, err)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":   "aurora-admin-local",
		"sub":   "uid-1",
		"rev":   0,
		"admin": true,
		"exp":   jwt.NewNumericDate(clock.now.Add(time.Hour)),
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	_, err = p.VerifyToken(context.Background(), forged)
	assert.ErrorIs(t, err, identity.ErrTokenInvalid)
}

func TestRevokeSessions_InvalidatesEarlierTokens(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	_, err := p.AddUser("uid-1", "ana@example.com", "pw", nil)
	require.NoError(t, err)

	before, err := p.IssueToken("uid-1")
	require.NoError(t, err)

	require.NoError(t, p.RevokeSessions(ctx, "uid-1"))

	_, err = p.VerifyToken(ctx, before)
	assert.ErrorIs(t, err, identity.ErrTokenRevoked)

	after, err := p.IssueToken("uid-1")
	require.NoError(t, err)
	_, err = p.VerifyToken(ctx, after)
	assert.NoError(t, err)
}

func TestSetClaims_OnlyVisibleInNewTokens(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	_, err := p.AddUser("uid-1", "ana@example.com", "pw", nil)
	require.NoError(t, err)

	old, err := p.IssueToken("uid-1")
	require.NoError(t, err)

	require.NoError(t, p.SetClaims(ctx, "uid-1", map[string]interface{}{"admin": true}))

	vt, err := p.VerifyToken(ctx, old)
	require.NoError(t, err)
	assert.False(t, vt.Claims.IsAdmin())

	fresh, err := p.IssueToken("uid-1")
	require.NoError(t, err)
	vt, err = p.VerifyToken(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, vt.Claims.IsAdmin())
}

func TestDisable_RevokesTokens(t *testing.T) {
	p, _ := newTestProvider(t)

	_, err := p.AddUser("uid-1", "ana@example.com", "pw", nil)
	require.NoError(t, err)
	token, err := p.IssueToken("uid-1")
	require.NoError(t, err)

	require.NoError(t, p.Disable("uid-1"))

	_, err = p.VerifyToken(context.Background(), token)
	assert.ErrorIs(t, err, identity.ErrTokenRevoked)
}

func TestLookups(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	_, err := p.AddUser("uid-1", "Ana@Example.com", "pw", nil)
	require.NoError(t, err)

	id, err := p.GetUserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", id.UID)

	_, err = p.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, identity.ErrIdentityNotFound)

	_, err = p.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, identity.ErrIdentityNotFound)

	assert.ErrorIs(t, p.SetClaims(ctx, "missing", nil), identity.ErrIdentityNotFound)
	assert.ErrorIs(t, p.RevokeSessions(ctx, "missing"), identity.ErrIdentityNotFound)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	created, err := p.CreateUser(ctx, "ana@example.com", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, created.UID)

	_, err = p.CreateUser(ctx, "ANA@example.com", "pw2")
	assert.ErrorIs(t, err, identity.ErrEmailExists)
}

func TestSignIn(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	_, err := p.AddUser("uid-1", "ana@example.com", "correct", nil)
	require.NoError(t, err)

	token, err := p.SignIn(ctx, "ana@example.com", "correct")
	require.NoError(t, err)
	vt, err := p.VerifyToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", vt.UID)

	_, err = p.SignIn(ctx, "ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = p.SignIn(ctx, "nobody@example.com", "correct")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestOperations_HonourCancelledContext(t *testing.T) {
	p, _ := newTestProvider(t)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := p.GetUser(ctx, "uid-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, p.SetClaims(ctx, "uid-1", nil), context.DeadlineExceeded)
	assert.ErrorIs(t, p.RevokeSessions(ctx, "uid-1"), context.DeadlineExceeded)
}
