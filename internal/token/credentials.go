// Demo credential store.
//
// A single-user, bcrypt-backed store suitable for local deployments and
// integration tests. It is constructed explicitly and injected into the
// Service; there is no package-level default user. Replace with a user
// database for production.
package token

import (
	"context"

	"golang.org/x/crypto/bcrypt"
)

// StaticCredentials validates exactly one username/password pair. The
// password is hashed at construction time and the plaintext is discarded.
type StaticCredentials struct {
	username string
	hash     []byte
}

// NewStaticCredentials hashes password with bcrypt and returns a store
// accepting only the given pair.
func NewStaticCredentials(username, password string) (*StaticCredentials, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &StaticCredentials{username: username, hash: h}, nil
}

// Authenticate implements CredentialStore. The bcrypt comparison runs even
// for unknown usernames to keep timing uniform.
func (s *StaticCredentials) Authenticate(_ context.Context, username, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(s.hash, []byte(password))
	return err == nil && username == s.username, nil
}
