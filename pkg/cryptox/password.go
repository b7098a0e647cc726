package cryptox

import (
	"bytes"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor for newly hashed passwords (2^12
// rounds).
const DefaultCost = 12

var (
	// ErrHashFormat reports a stored hash that is absent or structurally
	// invalid. Callers treat it as a failed verification, never as a crash.
	ErrHashFormat = errors.New("invalid password hash")

	// ErrMismatch reports a well-formed hash that does not match the
	// candidate password.
	ErrMismatch = errors.New("password does not match")
)

// HashPassword returns a salted bcrypt hash of password at DefaultCost.
func HashPassword(password string) ([]byte, error) {
	return HashPasswordWithCost(password, DefaultCost)
}

// HashPasswordWithCost is HashPassword with an explicit work factor. Tests
// use bcrypt.MinCost to stay fast.
func HashPasswordWithCost(password string, cost int) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// VerifyPassword compares password against a stored hash. bcrypt hashes
// ($2a$, $2b$, $2y$) and argon2id PHC strings are understood. It returns nil
// on a match, ErrMismatch for a wrong password and an error wrapping
// ErrHashFormat when the stored hash cannot be used.
func VerifyPassword(password string, encoded []byte) error {
	switch {
	case len(encoded) == 0:
		return fmt.Errorf("%w: empty", ErrHashFormat)
	case bytes.HasPrefix(encoded, []byte("$argon2id$")):
		return verifyArgon2id(password, encoded)
	case bytes.HasPrefix(encoded, []byte("$2")):
		return verifyBcrypt(password, encoded)
	default:
		return fmt.Errorf("%w: unknown scheme", ErrHashFormat)
	}
}

// Verify is the boolean form of VerifyPassword. A malformed hash is simply a
// failed verification.
func Verify(password string, encoded []byte) bool {
	return VerifyPassword(password, encoded) == nil
}

// CheckHash reports whether encoded is structurally usable without spending
// any hashing work on it.
func CheckHash(encoded []byte) error {
	switch {
	case len(encoded) == 0:
		return fmt.Errorf("%w: empty", ErrHashFormat)
	case bytes.HasPrefix(encoded, []byte("$argon2id$")):
		_, err := parsePHC(encoded)
		return err
	case bytes.HasPrefix(encoded, []byte("$2")):
		if _, err := bcrypt.Cost(encoded); err != nil {
			return fmt.Errorf("%w: %w", ErrHashFormat, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown scheme", ErrHashFormat)
	}
}

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// VerifyDummy spends the same bcrypt work as a real verification against a
// throwaway hash. Use it on lookup misses so they cost about as much as a
// wrong password for a known identifier.
func VerifyDummy(password string) {
	dummyOnce.Do(func() {
		// An error leaves dummyHash nil and the compare below fails fast.
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("custodian-dummy-password"), DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

func verifyBcrypt(password string, encoded []byte) error {
	err := bcrypt.CompareHashAndPassword(encoded, []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return ErrMismatch
	default:
		return fmt.Errorf("%w: %w", ErrHashFormat, err)
	}
}

type phcParams struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

// parsePHC splits $argon2id$v=19$m=X,t=Y,p=Z$salt$hash.
func parsePHC(encoded []byte) (phcParams, error) {
	parts := bytes.Split(encoded, []byte("$"))
	if len(parts) != 6 {
		return phcParams{}, fmt.Errorf("%w: expected 6 parts", ErrHashFormat)
	}
	if string(parts[1]) != "argon2id" {
		return phcParams{}, fmt.Errorf("%w: not argon2id", ErrHashFormat)
	}
	if string(parts[2]) != "v=19" {
		return phcParams{}, fmt.Errorf("%w: wrong version", ErrHashFormat)
	}

	var p phcParams
	if _, err := fmt.Sscanf(string(parts[3]), "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return phcParams{}, fmt.Errorf("%w: parameters: %w", ErrHashFormat, err)
	}
	if p.iterations == 0 || p.parallelism == 0 {
		return phcParams{}, fmt.Errorf("%w: zero cost parameter", ErrHashFormat)
	}

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(string(parts[4])); err != nil {
		return phcParams{}, fmt.Errorf("%w: salt: %w", ErrHashFormat, err)
	}
	if p.key, err = base64.RawStdEncoding.DecodeString(string(parts[5])); err != nil {
		return phcParams{}, fmt.Errorf("%w: hash: %w", ErrHashFormat, err)
	}
	if len(p.key) == 0 {
		return phcParams{}, fmt.Errorf("%w: empty hash", ErrHashFormat)
	}
	return p, nil
}

func verifyArgon2id(password string, encoded []byte) error {
	p, err := parsePHC(encoded)
	if err != nil {
		return err
	}

	computed := argon2.IDKey(
		[]byte(password),
		p.salt,
		p.iterations,
		p.memory,
		p.parallelism,
		uint32(len(p.key)), // #nosec G115 - bounded by the decoded hash length
	)

	if subtle.ConstantTimeCompare(computed, p.key) == 1 {
		return nil
	}
	return ErrMismatch
}
