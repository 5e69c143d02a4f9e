package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// StaffAuthenticator checks the single restaurant admin account.
type StaffAuthenticator struct {
	username string
	hash     []byte
}

func NewStaffAuthenticator(username, passwordHash string) *StaffAuthenticator {
	return &StaffAuthenticator{username: username, hash: []byte(passwordHash)}
}

func (a *StaffAuthenticator) Enabled() bool {
	return a != nil && a.username != "" && len(a.hash) > 0
}

func (a *StaffAuthenticator) Authenticate(username, password string) error {
	if !a.Enabled() {
		return ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	// Always run bcrypt so a wrong username costs the same as a wrong password.
	passErr := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("cannot hash password: %w", err)
	}
	return string(hash), nil
}
