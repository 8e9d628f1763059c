package auth

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_RoundTrip(t *testing.T) {
	s, err := NewSessions(time.Hour)
	require.NoError(t, err)

	id := uuid.New()
	token, err := s.CreateJWT(id)
	require.NoError(t, err)

	got, err := s.AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestSessions_Expired(t *testing.T) {
	s, err := NewSessions(time.Hour)
	require.NoError(t, err)
	issued := time.Now()
	s.now = func() time.Time { return issued }

	token, err := s.CreateJWT(uuid.New())
	require.NoError(t, err)

	s.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = s.AuthenticateJWT(token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSessions_NeverExpires(t *testing.T) {
	s, err := NewSessions(0)
	require.NoError(t, err)
	issued := time.Now()
	s.now = func() time.Time { return issued }

	token, err := s.CreateJWT(uuid.New())
	require.NoError(t, err)

	s.now = func() time.Time { return issued.Add(24 * 365 * time.Hour) }
	_, err = s.AuthenticateJWT(token)
	assert.NoError(t, err)
}

func TestSessions_RejectsForeignAndGarbage(t *testing.T) {
	a, err := NewSessions(time.Hour)
	require.NoError(t, err)
	b, err := NewSessions(time.Hour)
	require.NoError(t, err)

	token, err := a.CreateJWT(uuid.New())
	require.NoError(t, err)

	_, err = b.AuthenticateJWT(token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = a.AuthenticateJWT("not-a-token")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLoadSessions(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	dir := t.TempDir()
	privPath := filepath.Join(dir, "key")
	pubPath := filepath.Join(dir, "key.pub")
	require.NoError(t, os.WriteFile(privPath, priv, 0o600))
	require.NoError(t, os.WriteFile(pubPath, pub, 0o644))

	s, err := LoadSessions(privPath, pubPath, time.Hour)
	require.NoError(t, err)
	id := uuid.New()
	token, err := s.CreateJWT(id)
	require.NoError(t, err)
	got, err := s.AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = LoadSessions(filepath.Join(dir, "missing"), pubPath, time.Hour)
	assert.Error(t, err)
	_, err = LoadSessions(pubPath, pubPath, time.Hour)
	assert.Error(t, err)
}
