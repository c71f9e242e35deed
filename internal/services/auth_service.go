// Package services – AuthService
//
// Shared-secret authentication for the two admin surfaces: the console
// password gate and the statistics username/password login. Secrets may be
// stored as plaintext or as bcrypt hashes; hashes are recognized by their
// prefix. There is no user store and no session persistence; the statistics
// login returns an opaque token the frontend holds for the session.
package services

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/lkataba/community-backend/internal/config"
)

// AuthService implements the admin authentication use-cases.
type AuthService struct {
	Admin config.AdminConfig
}

// NewAuthService wires the authentication use-cases over the configured
// admin secrets.
func NewAuthService(admin config.AdminConfig) *AuthService {
	return &AuthService{Admin: admin}
}

// VerifyConsole checks the admin console password. A missing secret is a
// deployment fault (ErrSecretUnset), not an authentication failure.
func (s *AuthService) VerifyConsole(password string) error {
	if s.Admin.ConsoleSecret == "" {
		return ErrSecretUnset
	}
	if !secretMatches(s.Admin.ConsoleSecret, password) {
		return ErrBadPassword
	}
	return nil
}

// Login validates the statistics credentials and mints a session token.
func (s *AuthService) Login(username, password string) (string, error) {
	if s.Admin.Username == "" || s.Admin.Password == "" {
		return "", ErrSecretUnset
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.Admin.Username)) == 1
	passOK := secretMatches(s.Admin.Password, password)
	if !userOK || !passOK {
		return "", ErrBadCredentials
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// secretMatches compares a candidate against the stored secret, using bcrypt
// when the stored value looks like a bcrypt hash and a constant-time compare
// otherwise.
func secretMatches(stored, candidate string) bool {
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}
