// Package token issues and verifies the signed session tokens carried by
// every authenticated request. Tokens are self-contained HS256 JWTs; there is
// no server-side session record, so a token stays valid until it expires.
package token

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dunvault/dunvault/internal/rbac"
	"github.com/dunvault/dunvault/internal/shared"
)

// DefaultTTL is the lifetime of a session token. There is no refresh.
const DefaultTTL = 8 * time.Hour

// MinKeyLength is the shortest accepted signing key.
const MinKeyLength = 32

// Type is the token type marker returned to clients.
const Type = "bearer"

// Claims is the signed payload of a session token.
type Claims struct {
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	Role     rbac.Role `json:"role"`
	DUN      string    `json:"dun,omitempty"`
	jwt.RegisteredClaims
}

// Subject identifies the principal a token is issued for.
type Subject struct {
	UserID   int64
	Username string
	Role     rbac.Role
	DUN      string
}

// Codec signs and verifies tokens with a fixed symmetric key.
type Codec struct {
	key    []byte
	now    func() time.Time
	parser *jwt.Parser
}

// Option customises a Codec.
type Option func(*Codec)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec constructs a Codec. The key is copied.
func NewCodec(key []byte, opts ...Option) (*Codec, error) {
	if len(key) < MinKeyLength {
		return nil, fmt.Errorf("token: signing key must be at least %d bytes", MinKeyLength)
	}
	c := &Codec{key: append([]byte(nil), key...), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	return c, nil
}

// GenerateKey returns a random signing key. Tokens signed with it do not
// survive a process restart.
func GenerateKey() ([]byte, error) {
	key := make([]byte, MinKeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("token: generate key: %w", err)
	}
	return key, nil
}

// Issue signs a token for subject valid for ttl.
func (c *Codec) Issue(subject Subject, ttl time.Duration) (string, time.Time, error) {
	if subject.UserID == 0 || subject.Username == "" || !subject.Role.Valid() {
		return "", time.Time{}, errors.New("token: incomplete subject")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := c.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(ttl)
	claims := Claims{
		UserID:   subject.UserID,
		Username: subject.Username,
		Role:     subject.Role,
		DUN:      subject.DUN,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(subject.UserID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token: sign: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature, algorithm and expiry and returns the claims.
// Every failure yields shared.ErrTokenInvalid.
func (c *Codec) Verify(raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, shared.ErrTokenInvalid
	}
	var claims Claims
	parsed, err := c.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, shared.ErrTokenInvalid
	}
	if claims.UserID == 0 || claims.Username == "" || !claims.Role.Valid() {
		return Claims{}, shared.ErrTokenInvalid
	}
	if claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return Claims{}, shared.ErrTokenInvalid
	}
	return claims, nil
}
