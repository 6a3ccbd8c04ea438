package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt cost bounds. Costs outside this range are clamped.
const (
	MinBcryptCost     = bcrypt.MinCost
	MaxBcryptCost     = 15
	DefaultBcryptCost = bcrypt.DefaultCost
)

// PasswordHasher hashes and verifies passwords using bcrypt.
// Each hash embeds its own random salt and cost factor.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher with the given cost factor.
// A cost of 0 selects DefaultBcryptCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < MinBcryptCost {
		cost = MinBcryptCost
	}
	if cost > MaxBcryptCost {
		cost = MaxBcryptCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash produces a salted bcrypt hash of the password
func (h *PasswordHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether password matches the stored hash.
// A malformed hash or mismatch both return false; Verify never panics.
func (h *PasswordHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
