package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestIssuer_IssueAndVerify(t *testing.T) {
	issuer := New("test-secret-123", 15*time.Minute)

	token, err := issuer.Issue("01HZXUSER")
	require.NoError(t, err)

	sub, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "01HZXUSER", sub)
}

func TestIssuer_ExpiresAfterTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)}
	issuer := New("test-secret-123", 15*time.Minute, WithClock(clock.Now))

	token, err := issuer.Issue("u1")
	require.NoError(t, err)

	expiry := clock.t.Add(15 * time.Minute)

	clock.t = expiry.Add(-time.Second)
	_, err = issuer.Verify(token)
	require.NoError(t, err)

	clock.t = expiry.Add(time.Second)
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestIssuer_WrongSecret(t *testing.T) {
	token, err := New("secret-a", time.Minute).Issue("u1")
	require.NoError(t, err)

	_, err = New("secret-b", time.Minute).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestIssuer_Garbage(t *testing.T) {
	_, err := New("secret", time.Minute).Verify("invalid-jwt-here")
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestPurposeSeparation(t *testing.T) {
	access := New("shared-secret", time.Minute)
	refresh := NewRefreshSigner("shared-secret", time.Hour)

	refreshToken, _, err := refresh.Issue("u1", "secret-id")
	require.NoError(t, err)
	_, err = access.Verify(refreshToken)
	assert.ErrorIs(t, err, ErrInvalidOrExpired, "refresh envelope must not pass as access token")

	accessToken, err := access.Issue("u1")
	require.NoError(t, err)
	_, err = refresh.Parse(accessToken)
	assert.ErrorIs(t, err, ErrInvalidOrExpired, "access token must not pass as refresh envelope")
}

func TestRefreshSigner_RoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)}
	r := NewRefreshSigner("refresh-secret", 30*24*time.Hour, WithClock(clock.Now))

	token, expiresAt, err := r.Issue("u1", "3f1c2d9e-secret")
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(30*24*time.Hour), expiresAt)

	claims, err := r.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "3f1c2d9e-secret", claims.Secret)
	assert.True(t, claims.ExpiresAt.Equal(expiresAt))

	clock.t = expiresAt.Add(time.Second)
	_, err = r.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestRefreshSigner_RequiresSecret(t *testing.T) {
	r := NewRefreshSigner("refresh-secret", time.Hour)

	token, _, err := r.Issue("u1", "")
	require.NoError(t, err)

	_, err = r.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}
