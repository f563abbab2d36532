// Package password provides one-way credential hashing.
//
// The stored representation is a salted bcrypt digest. Verification
// follows the recompute-and-compare contract: the plaintext offered at
// login is hashed against the stored digest's salt and compared.
package password

import "golang.org/x/crypto/bcrypt"

// Hasher defines the interface for password hashing and verification
type Hasher interface {
	// Hash generates a salted digest from a plaintext password
	Hash(plaintext string) (string, error)

	// Check reports whether plaintext matches the stored digest
	Check(plaintext, digest string) bool
}

// bcryptHasher implements Hasher using bcrypt
type bcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a Hasher backed by bcrypt at the default cost
func NewBcryptHasher() Hasher {
	return &bcryptHasher{cost: bcrypt.DefaultCost}
}

// Hash generates a salted hash from a plaintext password.
// bcrypt handles salt generation, so two accounts with the same
// password store different digests.
func (h *bcryptHasher) Hash(plaintext string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	return string(bytes), err
}

// Check compares a plaintext password with a bcrypt digest
func (h *bcryptHasher) Check(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
