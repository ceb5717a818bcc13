// basecampy | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is fixed; changing it only affects newly created hashes
// because the cost is embedded in each encoded hash.
const bcryptCost = 10

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func VerifyPassword(password, encodedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	if err == nil {
		return true, nil
	}
	if err == bcrypt.ErrMismatchedHashAndPassword {
		return false, nil
	}
	return false, fmt.Errorf("verify password: %w", err)
}

var dummyHash string

func init() {
	hash, err := HashPassword("dummy_password_for_timing_attack_prevention")
	if err != nil {
		panic(fmt.Sprintf("security: failed to generate dummy hash: %v", err))
	}
	dummyHash = hash
}

// VerifyPasswordTimingSafe always runs a bcrypt comparison, substituting a
// dummy hash when the account does not exist, so a login attempt against an
// unknown email costs the same as one against a real account.
func VerifyPasswordTimingSafe(password string, encodedHash *string) (bool, error) {
	hashToVerify := dummyHash
	if encodedHash != nil && *encodedHash != "" {
		hashToVerify = *encodedHash
	}

	valid, err := VerifyPassword(password, hashToVerify)

	if encodedHash == nil || *encodedHash == "" {
		return false, nil
	}

	return valid, err
}

// temporaryTokenBytes matches the entropy of the links we mail out:
// 10 random bytes, hex-encoded to a 20 character opaque token.
const temporaryTokenBytes = 10

type TemporaryToken struct {
	Plaintext string
	Hash      string
}

// GenerateTemporaryToken returns a single-use opaque secret. Only the
// SHA-256 digest is ever persisted; the plaintext goes into the email link
// exactly once.
func GenerateTemporaryToken() (*TemporaryToken, error) {
	buf := make([]byte, temporaryTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate random bytes: %w", err)
	}

	plaintext := hex.EncodeToString(buf)

	return &TemporaryToken{
		Plaintext: plaintext,
		Hash:      HashToken(plaintext),
	}, nil
}

func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func CompareTokenHash(token, hash string) bool {
	tokenHash := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(tokenHash), []byte(hash)) == 1
}
