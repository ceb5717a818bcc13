// basecampy | 2026
// token.go

package auth

import (
	"fmt"
	"time"

	"github.com/Raghav000001/basecampy/internal/core"
)

// temporaryTokenTTL bounds how long a verification or password-reset
// link stays redeemable.
const temporaryTokenTTL = 20 * time.Minute

// TemporaryToken carries both halves of a single-use secret. Plaintext is
// embedded in an outbound email link exactly once; only Hash and
// ExpiresAt are persisted, so a read-only leak of the store cannot be
// turned into a working link.
type TemporaryToken struct {
	Plaintext string
	Hash      string
	ExpiresAt time.Time
}

func IssueTemporaryToken() (*TemporaryToken, error) {
	tok, err := core.GenerateTemporaryToken()
	if err != nil {
		return nil, fmt.Errorf("issue temporary token: %w", err)
	}

	return &TemporaryToken{
		Plaintext: tok.Plaintext,
		Hash:      tok.Hash,
		ExpiresAt: time.Now().Add(temporaryTokenTTL),
	}, nil
}
