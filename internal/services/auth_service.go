package services

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/lottoml/lotto-engine/internal/errs"
	"github.com/lottoml/lotto-engine/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

// AuthService exchanges admin credentials for a bearer token
type AuthService interface {
	Login(ctx context.Context, username, password string) (*AuthToken, error)
}

// AuthToken is a signed admin token
type AuthToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthServiceImpl checks the configured admin password hash
type AuthServiceImpl struct {
	username     string
	passwordHash []byte
	secret       string
	ttl          time.Duration
}

// NewAuthService creates a new AuthServiceImpl. Login is disabled when the
// secret or the password hash is empty.
func NewAuthService(username, passwordHash, secret string, ttl time.Duration) *AuthServiceImpl {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthServiceImpl{
		username:     username,
		passwordHash: []byte(passwordHash),
		secret:       secret,
		ttl:          ttl,
	}
}

// HashPassword returns the bcrypt hash stored in the admin configuration
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Login validates the credentials and issues an admin token
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (*AuthToken, error) {
	if s.secret == "" || len(s.passwordHash) == 0 {
		return nil, errs.New(errs.KindValidation, "Admin login is not configured")
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil || !userOK {
		slog.Warn("Admin login failed", "username", username)
		return nil, errs.New(errs.KindUnauthorized, "Invalid credentials")
	}

	expiresAt := time.Now().Add(s.ttl)
	token, err := utils.GenerateJWT(username, utils.RoleAdmin, s.secret, s.ttl)
	if err != nil {
		return nil, err
	}
	slog.Info("Admin logged in", "username", username)
	return &AuthToken{Token: token, ExpiresAt: expiresAt.UTC()}, nil
}
