package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("student-1", "progress/student-1.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	owner, name, parsedExpiry, err := signer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "student-1", owner)
	require.Equal(t, "progress/student-1.csv", name)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Generate("student-1", "progress/student-1.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, _, _, err = signer.Parse(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestSignedURLSignerTampered(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("student-1", "a.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[1] = "9999999999"
	_, _, _, err = signer.Parse(strings.Join(parts, "."))
	require.ErrorIs(t, err, ErrTokenSignature)

	_, _, _, err = signer.Parse("nope")
	require.ErrorIs(t, err, ErrTokenMalformed)
}
