// Package adminauth verifies the shared admin secret that gates report
// deletion. The credential is passed per-request; no session or token is
// issued.
package adminauth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrNotConfigured means the server has no admin secret set. Surfaced as a
// configuration error, not an authorization failure.
var ErrNotConfigured = errors.New("admin credential not configured")

// ErrMismatch means the supplied credential does not match the secret.
var ErrMismatch = errors.New("admin credential mismatch")

// Verifier checks candidate credentials against the configured secret.
// When a bcrypt hash is configured it takes precedence over the plaintext
// secret, so operators can avoid keeping the password itself in env.
type Verifier struct {
	plain      string
	bcryptHash string
}

func New(plain, bcryptHash string) *Verifier {
	return &Verifier{plain: plain, bcryptHash: bcryptHash}
}

// Configured reports whether any secret is set.
func (v *Verifier) Configured() bool {
	return v.plain != "" || v.bcryptHash != ""
}

// Verify returns nil when candidate matches the configured secret,
// ErrMismatch when it does not, and ErrNotConfigured when no secret is set.
func (v *Verifier) Verify(candidate string) error {
	if v.bcryptHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(v.bcryptHash), []byte(candidate)); err != nil {
			return ErrMismatch
		}
		return nil
	}
	if v.plain == "" {
		return ErrNotConfigured
	}
	if subtle.ConstantTimeCompare([]byte(v.plain), []byte(candidate)) != 1 {
		return ErrMismatch
	}
	return nil
}
