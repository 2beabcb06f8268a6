package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Token validation failures.
var (
	ErrTokenMalformed = errors.New("invalid token format")
	ErrTokenSignature = errors.New("invalid token signature")
	ErrTokenExpired   = errors.New("token expired")
)

// SignedURLSigner creates and validates signed download tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns a token binding the owner (a student id) to a stored file name.
func (s *SignedURLSigner) Generate(owner, name string) (string, time.Time, error) {
	if owner == "" || name == "" {
		return "", time.Time{}, fmt.Errorf("owner and name required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	encodedOwner := base64.RawURLEncoding.EncodeToString([]byte(owner))
	encodedName := base64.RawURLEncoding.EncodeToString([]byte(name))
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	token := strings.Join([]string{encodedOwner, ts, encodedName, s.sign(encodedOwner, ts, encodedName)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the embedded owner and file name.
func (s *SignedURLSigner) Parse(token string) (owner, name string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", time.Time{}, ErrTokenMalformed
	}
	if !hmac.Equal([]byte(s.sign(parts[0], parts[1], parts[2])), []byte(parts[3])) {
		return "", "", time.Time{}, ErrTokenSignature
	}

	rawOwner, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", "", time.Time{}, ErrTokenMalformed
	}
	rawName, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return "", "", time.Time{}, ErrTokenMalformed
	}
	unix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", "", time.Time{}, ErrTokenMalformed
	}
	expiresAt = time.Unix(unix, 0)
	if s.now().After(expiresAt) {
		return "", "", time.Time{}, ErrTokenExpired
	}
	return string(rawOwner), string(rawName), expiresAt, nil
}

func (s *SignedURLSigner) sign(owner, ts, name string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(owner + "|" + ts + "|" + name))
	return hex.EncodeToString(mac.Sum(nil))
}
