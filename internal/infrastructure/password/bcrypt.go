// Package password hashes and verifies credentials with bcrypt.
package password

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/shopline/commerce-api/internal/pkg/metrics"
)

// DefaultCost is the work factor used when none is configured.
const DefaultCost = 10

// Hasher implements ports.PasswordHasher. The bcrypt digest embeds salt and
// cost, so Verify needs nothing but the stored digest.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher with the given cost. A zero cost selects DefaultCost.
func NewHasher(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("password: bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Hasher{cost: cost}, nil
}

// Cost reports the configured work factor.
func (h *Hasher) Cost() int {
	return h.cost
}

func (h *Hasher) Hash(plaintext string) (string, error) {
	start := time.Now()
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	metrics.PasswordHashDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("password: hash: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. Malformed digests never match.
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
