package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admin-console/internal/model"
)

func newTestService(t *testing.T, ttl time.Duration) *Service {
	t.Helper()
	svc, err := New([]byte("test-secret"), ttl)
	require.NoError(t, err)
	return svc
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(nil, time.Hour)
	assert.Error(t, err)
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	svc := newTestService(t, time.Hour)

	signed, expiresAt, err := svc.Issue("user-123")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	subject, err := svc.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-123", subject)
}

func TestVerifyExpiredToken(t *testing.T) {
	svc := newTestService(t, time.Hour)

	issuedAt := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issuedAt }
	signed, _, err := svc.Issue("user-123")
	require.NoError(t, err)

	// Back to real time: the token expired an hour ago.
	svc.now = time.Now
	_, err = svc.Verify(signed)
	assert.ErrorIs(t, err, model.ErrTokenExpired)
}

func TestVerifyExpiryIsStrict(t *testing.T) {
	svc := newTestService(t, time.Hour)

	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issuedAt }
	signed, expiresAt, err := svc.Issue("user-123")
	require.NoError(t, err)

	// One second before expiry the token is still good.
	svc.now = func() time.Time { return expiresAt.Add(-time.Second) }
	_, err = svc.Verify(signed)
	assert.NoError(t, err)

	// At or after expiry there is no leeway window.
	svc.now = func() time.Time { return expiresAt.Add(time.Second) }
	_, err = svc.Verify(signed)
	assert.ErrorIs(t, err, model.ErrTokenExpired)
}

func TestVerifyTamperedSignature(t *testing.T) {
	svc := newTestService(t, time.Hour)
	other := newTestService(t, time.Hour)
	other.secret = []byte("a-different-secret")

	signed, _, err := other.Issue("user-123")
	require.NoError(t, err)

	_, err = svc.Verify(signed)
	assert.ErrorIs(t, err, model.ErrInvalidToken)
	assert.NotErrorIs(t, err, model.ErrTokenExpired)
}

func TestVerifyGarbageInput(t *testing.T) {
	svc := newTestService(t, time.Hour)

	for _, raw := range []string{"", "not-a-token", "aaaa.bbbb.cccc"} {
		_, err := svc.Verify(raw)
		assert.ErrorIs(t, err, model.ErrInvalidToken)
	}
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	svc := newTestService(t, time.Hour)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Verify(unsigned)
	assert.ErrorIs(t, err, model.ErrInvalidToken)
}

func TestVerifyRequiresSubject(t *testing.T) {
	svc := newTestService(t, time.Hour)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(svc.secret)
	require.NoError(t, err)

	_, err = svc.Verify(signed)
	assert.ErrorIs(t, err, model.ErrInvalidToken)
}
