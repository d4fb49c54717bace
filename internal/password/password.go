// Package password hashes and verifies account credentials with bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/dunvault/dunvault/internal/shared"
)

// MinLength is the shortest password accepted for new credentials.
const MinLength = 8

// Hasher wraps bcrypt with a fixed cost.
type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher returns a Hasher using bcrypt.DefaultCost.
func NewHasher() *Hasher {
	return NewHasherWithCost(bcrypt.DefaultCost)
}

// NewHasherWithCost is used by tests that need cheap hashing.
func NewHasherWithCost(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("dunvault-dummy-password"), cost)
	if err != nil {
		panic(fmt.Sprintf("password: generate dummy digest: %v", err))
	}
	return &Hasher{cost: cost, dummy: dummy}
}

// Hash returns the bcrypt digest of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", shared.InvalidInput("Password is too long")
		}
		return "", fmt.Errorf("password: hash: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. A malformed digest never matches.
func (h *Hasher) Verify(plaintext, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// Burn performs a comparison against a throwaway digest so that lookups of
// unknown accounts take as long as a real verification.
func (h *Hasher) Burn(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plaintext))
}

// ValidateNew enforces the password policy for a replacement password.
// current may be empty when an administrator sets a password.
func ValidateNew(current, next string) error {
	if len(next) < MinLength {
		return shared.InvalidInput(fmt.Sprintf("Password must be at least %d characters long", MinLength))
	}
	if current != "" && next == current {
		return shared.InvalidInput("New password must be different from current password")
	}
	return nil
}
