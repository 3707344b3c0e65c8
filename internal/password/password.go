// Package password hashes and verifies account passwords with bcrypt.
package password

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"go-auth-api/internal/model"
)

// MaxPasswordBytes is bcrypt's input limit. It counts bytes, not characters.
const MaxPasswordBytes = 72

type Bcrypt struct {
	cost int

	// dummy is compared against when no account matches a login so that the
	// unknown-account path costs the same as a wrong password.
	dummyOnce sync.Once
	dummy     []byte
}

// NewBcrypt returns a hasher using cost, falling back to bcrypt.DefaultCost
// when cost is outside bcrypt's accepted range.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Hash rejects passwords longer than MaxPasswordBytes with
// model.ErrInvalidInput.
func (b *Bcrypt) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", fmt.Errorf("password longer than %d bytes: %w", MaxPasswordBytes, model.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("password longer than %d bytes: %w", MaxPasswordBytes, model.ErrInvalidInput)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches storedHash. A malformed hash is a
// mismatch, not an error.
func (b *Bcrypt) Verify(plaintext string, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext)) == nil
}

// Burn performs a full-cost comparison whose result is discarded.
func (b *Bcrypt) Burn(plaintext string) {
	b.dummyOnce.Do(func() {
		b.dummy, _ = bcrypt.GenerateFromPassword([]byte("no-such-account"), b.cost)
	})
	_ = bcrypt.CompareHashAndPassword(b.dummy, []byte(plaintext))
}
