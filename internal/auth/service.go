package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultTTL = 24 * time.Hour

var ErrWrongCredentials = errors.New("wrong credentials")

var _ Verifier = (*Service)(nil)

// Admin is the single static identity of this deployment.
type Admin struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Normalized trims both fields and lower-cases the username, the form the
// stored credential pair is compared in.
func (c Credentials) Normalized() Credentials {
	return Credentials{
		Username: strings.ToLower(strings.TrimSpace(c.Username)),
		Password: strings.TrimSpace(c.Password),
	}
}

// Verifier answers "who is behind this token", the handlers depend on this
// instead of the concrete Service.
type Verifier interface {
	Verify(ctx context.Context, token string) (Admin, error)
}

// Service owns the session lifecycle: issue on login, recompute validity on
// every check, revoke on logout.
type Service struct {
	admin    Admin
	username string
	password string
	ttl      time.Duration
	codec    *Codec
	revoker  Revoker

	// injectable for tests
	NowFunc func() time.Time
}

func NewService(admin Admin, password string, ttl time.Duration, secret []byte, revoker Revoker) *Service {
	return &Service{
		admin:    admin,
		username: strings.ToLower(strings.TrimSpace(admin.Username)),
		password: strings.TrimSpace(password),
		ttl:      ttl,
		codec:    NewCodec(secret),
		revoker:  revoker,
		NowFunc:  time.Now,
	}
}

func (s *Service) Admin() Admin {
	return s.admin
}

func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Login checks the normalized credentials against the fixed pair and issues
// a fresh session token. The error never says which field was wrong.
func (s *Service) Login(_ context.Context, creds Credentials) (string, error) {
	creds = creds.Normalized()

	usernameOK := subtle.ConstantTimeCompare([]byte(creds.Username), []byte(s.username))
	passwordOK := subtle.ConstantTimeCompare([]byte(creds.Password), []byte(s.password))
	if usernameOK&passwordOK != 1 {
		log.Tracef("failed login attempt for user: %s", creds.Username)
		return "", ErrWrongCredentials
	}

	return s.codec.Generate(s.admin.ID, s.NowFunc(), s.ttl), nil
}

// Verify accepts a token only when the signature checks out, the TTL has not
// lapsed and the token was not revoked by a logout.
func (s *Service) Verify(ctx context.Context, token string) (Admin, error) {
	claims, err := s.codec.Validate(token, s.NowFunc())
	if err != nil {
		return Admin{}, err
	}

	revoked, err := s.revoker.IsRevoked(ctx, s.codec.ID(token))
	if err != nil {
		return Admin{}, err
	}
	if revoked {
		return Admin{}, ErrInvalidToken
	}

	if claims.AdminID != s.admin.ID {
		return Admin{}, ErrInvalidToken
	}

	return s.admin, nil
}

// Logout puts a still-valid token on the revocation set for its remaining
// TTL. An invalid or absent token is not an error, logout is unconditional.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.codec.Validate(token, s.NowFunc())
	if err != nil {
		return nil
	}
	return s.revoker.Revoke(ctx, s.codec.ID(token), claims.ExpiresAt)
}
