package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/storefront/pkg/reqctx"
)

// Service issues and verifies tokens with a shared HMAC key.
type Service struct {
	key       []byte
	issuer    string
	ttl       time.Duration
	systemTTL time.Duration
	now       func() time.Time
}

// Option configures the service.
type Option func(*Service)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(cfg Config, opts ...Option) (*Service, error) {
	if cfg.SigningKey == "" {
		return nil, ErrMissingSigningKey
	}
	s := &Service{
		key:       []byte(cfg.SigningKey),
		issuer:    cfg.Issuer,
		ttl:       cfg.TokenTTL,
		systemTTL: cfg.SystemTTL,
		now:       time.Now,
	}
	if s.ttl <= 0 {
		s.ttl = time.Hour
	}
	if s.systemTTL <= 0 {
		s.systemTTL = 15 * time.Minute
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a principal token bound to tenantID.
func (s *Service) Issue(principalID, tenantID string, roles ...string) (string, error) {
	if principalID == "" {
		return "", ErrMissingSubject
	}
	if tenantID == "" {
		return "", fmt.Errorf("%w: tenant id is required", ErrInvalidToken)
	}
	return s.sign(principalID, tenantID, roles, s.ttl)
}

// IssueSystem signs a short-lived system credential for subject.
func (s *Service) IssueSystem(subject string) (string, error) {
	if subject == "" {
		return "", ErrMissingSubject
	}
	return s.sign(subject, "", []string{reqctx.RoleSystem}, s.systemTTL)
}

func (s *Service) sign(subject, tenantID string, roles []string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TenantID: tenantID,
		Roles:    roles,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return token, nil
}

// Parse verifies the signature, algorithm, issuer and expiry of token.
func (s *Service) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}
