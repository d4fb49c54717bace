package token

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dunvault/dunvault/internal/rbac"
	"github.com/dunvault/dunvault/internal/shared"
)

var (
	keyA = bytes.Repeat([]byte("a"), MinKeyLength)
	keyB = bytes.Repeat([]byte("b"), MinKeyLength)
	t0   = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newCodec(t *testing.T, key []byte, at time.Time) *Codec {
	t.Helper()
	c, err := NewCodec(key, WithClock(fixedClock(at)))
	require.NoError(t, err)
	return c
}

func subject() Subject {
	return Subject{UserID: 42, Username: "candidate1_pm", Role: rbac.RoleCandidate, DUN: "Pantai Manis"}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	c := newCodec(t, keyA, t0)
	raw, expiresAt, err := c.Issue(subject(), DefaultTTL)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(8*time.Hour), expiresAt)

	claims, err := c.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "candidate1_pm", claims.Username)
	assert.Equal(t, rbac.RoleCandidate, claims.Role)
	assert.Equal(t, "Pantai Manis", claims.DUN)
	assert.Equal(t, "42", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestVerifyExpiryBoundary(t *testing.T) {
	raw, _, err := newCodec(t, keyA, t0).Issue(subject(), DefaultTTL)
	require.NoError(t, err)

	_, err = newCodec(t, keyA, t0.Add(DefaultTTL-time.Second)).Verify(raw)
	assert.NoError(t, err)

	_, err = newCodec(t, keyA, t0.Add(DefaultTTL+time.Second)).Verify(raw)
	assert.ErrorIs(t, err, shared.ErrTokenInvalid)
}

func TestVerifyRejectsOtherKey(t *testing.T) {
	raw, _, err := newCodec(t, keyA, t0).Issue(subject(), DefaultTTL)
	require.NoError(t, err)

	_, err = newCodec(t, keyB, t0).Verify(raw)
	assert.ErrorIs(t, err, shared.ErrTokenInvalid)
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	c := newCodec(t, keyA, t0)
	raw, _, err := c.Issue(subject(), DefaultTTL)
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	forged := bytes.Replace(payload, []byte(`"role":"candidate"`), []byte(`"role":"super_admin"`), 1)
	require.NotEqual(t, payload, forged)
	parts[1] = base64.RawURLEncoding.EncodeToString(forged)

	_, err = c.Verify(strings.Join(parts, "."))
	assert.ErrorIs(t, err, shared.ErrTokenInvalid)
}

func TestVerifyRejectsUnexpectedAlgorithms(t *testing.T) {
	c := newCodec(t, keyA, t0)
	claims := Claims{
		UserID:   1,
		Username: "superadmin",
		Role:     rbac.RoleSuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			IssuedAt:  jwt.NewNumericDate(t0),
			ExpiresAt: jwt.NewNumericDate(t0.Add(time.Hour)),
		},
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = c.Verify(unsigned)
	assert.ErrorIs(t, err, shared.ErrTokenInvalid)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(keyA)
	require.NoError(t, err)
	_, err = c.Verify(hs512)
	assert.ErrorIs(t, err, shared.ErrTokenInvalid)
}

func TestVerifyRejectsMissingExpiry(t *testing.T) {
	c := newCodec(t, keyA, t0)
	claims := Claims{
		UserID:           1,
		Username:         "superadmin",
		Role:             rbac.RoleSuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(keyA)
	require.NoError(t, err)
	_, err = c.Verify(raw)
	assert.ErrorIs(t, err, shared.ErrTokenInvalid)
}

func TestVerifyRejectsUnknownRole(t *testing.T) {
	c := newCodec(t, keyA, t0)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  7,
		"username": "intruder",
		"role":     "root",
		"sub":      "7",
		"exp":      t0.Add(time.Hour).Unix(),
	}).SignedString(keyA)
	require.NoError(t, err)
	_, err = c.Verify(raw)
	assert.ErrorIs(t, err, shared.ErrTokenInvalid)
}

func TestVerifyFailuresAreIndistinguishable(t *testing.T) {
	c := newCodec(t, keyA, t0)
	inputs := []string{"", "garbage", "a.b.c", strings.Repeat("x", 500)}
	for _, in := range inputs {
		_, err := c.Verify(in)
		assert.True(t, errors.Is(err, shared.ErrTokenInvalid), in)
		assert.Equal(t, shared.ErrTokenInvalid.Error(), err.Error())
	}
}

func TestNewCodecRejectsShortKey(t *testing.T) {
	_, err := NewCodec([]byte("short"))
	assert.Error(t, err)
}

func TestGenerateKey(t *testing.T) {
	k1, err := GenerateKey()
	require.NoError(t, err)
	k2, err := GenerateKey()
	require.NoError(t, err)
	assert.Len(t, k1, MinKeyLength)
	assert.NotEqual(t, k1, k2)
}

func TestIssueRejectsIncompleteSubject(t *testing.T) {
	c := newCodec(t, keyA, t0)
	_, _, err := c.Issue(Subject{UserID: 1, Username: "x"}, DefaultTTL)
	assert.Error(t, err)
}
