package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher turns plaintext passwords into stored digests and checks
// candidates against them.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Matches(hash, password string) bool
}

// SHA256Hasher stores the hex SHA-256 of the UTF-8 password bytes.
// It is unsalted: identical passwords produce identical hashes. Kept as the
// default so databases written by earlier releases still validate.
type SHA256Hasher struct{}

func (SHA256Hasher) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:]), nil
}

func (h SHA256Hasher) Matches(hash, password string) bool {
	candidate, _ := h.Hash(password)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(hash)) == 1
}

// BcryptHasher stores salted bcrypt digests.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (h BcryptHasher) Matches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NewHasher returns the hasher registered under name ("sha256" or "bcrypt").
func NewHasher(name string, bcryptCost int) (PasswordHasher, error) {
	switch name {
	case "", "sha256":
		return SHA256Hasher{}, nil
	case "bcrypt":
		return BcryptHasher{Cost: bcryptCost}, nil
	default:
		return nil, fmt.Errorf("unknown password hasher %q", name)
	}
}
