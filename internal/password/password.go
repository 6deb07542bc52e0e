// Package password implements the account password policy: length limits,
// a zxcvbn strength score, bcrypt hashing, and temporary password
// generation for provisioned accounts.
package password

import (
	"crypto/rand"
	"math/big"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
	"golang.org/x/crypto/bcrypt"

	apperrors "dmts/internal/errors"
)

// constant rules
const (
	MinLength = 8
	MaxLength = 64

	// minimum zxcvbn score; 3 rejects passwords crackable in under ~10^8 guesses
	minScore = 3

	tempPasswordLength = 10
	tempPasswordChars  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Evaluate checks a raw password against the strength policy. userInputs
// holds user-related strings (username, email) that must not anchor the
// password.
func Evaluate(rawpass string, userInputs ...string) error {
	if len(rawpass) < MinLength {
		return apperrors.WithMessage(apperrors.ErrWeakPassword, "Password must be at least 8 characters long")
	}
	if len(rawpass) > MaxLength {
		return apperrors.WithMessage(apperrors.ErrWeakPassword, "Password must be at most 64 characters long")
	}

	result := zxcvbn.PasswordStrength(rawpass, userInputs)
	if result.Score < minScore {
		return apperrors.ErrWeakPassword
	}
	return nil
}

// Hash returns the bcrypt hash of a raw password.
func Hash(rawpass string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(rawpass), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Compare tests whether a given plaintext password matches a stored hash.
func Compare(hash, rawpass string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(rawpass)) == nil
}

// GenerateTemporary returns a random one-time password for newly
// provisioned accounts. Callers must hand it to the requester exactly once
// and never persist or log it.
func GenerateTemporary() (string, error) {
	buf := make([]byte, tempPasswordLength)
	max := big.NewInt(int64(len(tempPasswordChars)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = tempPasswordChars[n.Int64()]
	}
	return string(buf), nil
}
