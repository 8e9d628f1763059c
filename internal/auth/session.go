// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrUnauthenticated is returned for a missing, malformed or expired session token.
var ErrUnauthenticated = errors.New("unauthenticated")

// Sessions signs and verifies EdDSA session tokens whose "sub" is the user id.
type Sessions struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// expireAfter of zero issues tokens without an exp claim.
	expireAfter time.Duration
	now         func() time.Time
}

// NewSessions generates a fresh ed25519 key pair. Tokens do not survive a restart.
func NewSessions(expireAfter time.Duration) (*Sessions, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Sessions{privateKey: priv, publicKey: pub, expireAfter: expireAfter, now: time.Now}, nil
}

// LoadSessions reads a raw ed25519 key pair from disk.
func LoadSessions(privatePath, publicPath string, expireAfter time.Duration) (*Sessions, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid ed25519 key sizes: private %d, public %d", len(privateKeyData), len(publicKeyData))
	}
	return &Sessions{
		privateKey:  ed25519.PrivateKey(privateKeyData),
		publicKey:   ed25519.PublicKey(publicKeyData),
		expireAfter: expireAfter,
		now:         time.Now,
	}, nil
}

// CreateJWT issues a signed token for userID.
func (s *Sessions) CreateJWT(userID uuid.UUID) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:  userID.String(),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if s.expireAfter > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.expireAfter))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(s.privateKey)
}

// AuthenticateJWT verifies tokenString and returns the user id in its subject.
// Every failure wraps ErrUnauthenticated.
func (s *Sessions) AuthenticateJWT(tokenString string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: jwt parse error: %v", ErrUnauthenticated, err)
	}
	if !t.Valid {
		return uuid.Nil, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad sub in jwt", ErrUnauthenticated)
	}
	return userID, nil
}
