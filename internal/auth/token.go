package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TokenPrefix marks every session token this service ever issued, so a
// malformed cookie can be rejected before any crypto work.
const TokenPrefix = "admx."

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Codec issues and validates session tokens of the form
//
//	admx.<base64 payload>.<base64 hmac-sha256>
//
// where the payload carries the admin id, issuance time and expiry. Validity
// is recomputed per request, nothing is stored server-side.
type Codec struct {
	secret []byte
}

func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret}
}

type TokenClaims struct {
	AdminID   int
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ID uniquely identifies one issuance, used as the revocation set key.
func (c *Codec) ID(token string) string {
	parts := strings.Split(strings.TrimPrefix(token, TokenPrefix), ".")
	return parts[len(parts)-1]
}

func (c *Codec) Generate(adminID int, issuedAt time.Time, ttl time.Duration) string {
	payload := fmt.Sprintf("%d:%d:%d", adminID, issuedAt.UnixNano(), issuedAt.Add(ttl).Unix())
	encodedPayload := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return TokenPrefix + encodedPayload + "." + c.sign(payload)
}

func (c *Codec) Validate(token string, now time.Time) (TokenClaims, error) {
	if !strings.HasPrefix(token, TokenPrefix) {
		return TokenClaims{}, ErrInvalidToken
	}

	parts := strings.Split(strings.TrimPrefix(token, TokenPrefix), ".")
	if len(parts) != 2 {
		return TokenClaims{}, ErrInvalidToken
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return TokenClaims{}, ErrInvalidToken
	}
	payload := string(payloadBytes)

	if !hmac.Equal([]byte(c.sign(payload)), []byte(parts[1])) {
		return TokenClaims{}, ErrInvalidToken
	}

	fields := strings.Split(payload, ":")
	if len(fields) != 3 {
		return TokenClaims{}, ErrInvalidToken
	}
	adminID, err := strconv.Atoi(fields[0])
	if err != nil {
		return TokenClaims{}, ErrInvalidToken
	}
	issuedAtNano, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return TokenClaims{}, ErrInvalidToken
	}
	expiresAtUnix, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return TokenClaims{}, ErrInvalidToken
	}

	claims := TokenClaims{
		AdminID:   adminID,
		IssuedAt:  time.Unix(0, issuedAtNano),
		ExpiresAt: time.Unix(expiresAtUnix, 0),
	}

	if now.After(claims.ExpiresAt) {
		return TokenClaims{}, ErrTokenExpired
	}

	return claims, nil
}

func (c *Codec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
