package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// hashPassword returns the bcrypt hash of plain at the given cost.
func hashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// passwordMatches compares in constant time. Rows that do not hold a bcrypt
// hash (e.g. legacy plaintext) never match.
func passwordMatches(hash, plain string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword),
		errors.Is(err, bcrypt.ErrHashTooShort):
		return false, nil
	}
	var (
		badVersion bcrypt.HashVersionTooNewError
		badPrefix  bcrypt.InvalidHashPrefixError
	)
	if errors.As(err, &badVersion) || errors.As(err, &badPrefix) {
		return false, nil
	}
	return false, fmt.Errorf("compare password: %w", err)
}
