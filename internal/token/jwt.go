package token

import (
	"fmt"
	"time"

	"github.com/alt-project/flixctl/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// sessionClaims represents the claims the movie service puts in its bearer tokens.
type sessionClaims struct {
	Name     string `json:"name"`
	UserType string `json:"user_type"`
	jwt.RegisteredClaims
}

// ClaimsDecoder decodes bearer tokens into sessions without verifying the signature.
// The client never holds the signing key; the server remains the authority on validity.
// Implements domain.TokenDecoder.
type ClaimsDecoder struct {
	parser *jwt.Parser
}

// NewClaimsDecoder creates a new decoder.
func NewClaimsDecoder() *ClaimsDecoder {
	return &ClaimsDecoder{parser: jwt.NewParser()}
}

// Decode extracts name, user_type, sub and exp from the token.
func (d *ClaimsDecoder) Decode(raw string) (*domain.Session, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", domain.ErrTokenDecode)
	}

	claims := &sessionClaims{}
	if _, _, err := d.parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTokenDecode, err)
	}

	var exp int64
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Unix()
	}

	return &domain.Session{
		Token:     raw,
		Name:      claims.Name,
		Role:      domain.ParseRole(claims.UserType),
		Subject:   claims.Subject,
		ExpiresAt: exp,
	}, nil
}

// IssuerConfig holds token signing configuration for the mock service.
type IssuerConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Issuer signs tokens shaped like the movie service's.
type Issuer struct {
	cfg IssuerConfig
	now func() time.Time
}

// NewIssuer creates a new token issuer.
func NewIssuer(cfg IssuerConfig) *Issuer {
	return &Issuer{cfg: cfg, now: time.Now}
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	return &Issuer{cfg: i.cfg, now: now}
}

// Issue signs a token for the given user.
func (i *Issuer) Issue(subject, name string, role domain.Role) (string, error) {
	now := i.now()
	userType := "user"
	if role == domain.RoleAdmin {
		userType = string(domain.RoleAdmin)
	}
	claims := sessionClaims{
		Name:     name,
		UserType: userType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.TTL)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(i.cfg.Secret))
}

// Verify parses and validates a token signed by this issuer and returns its session.
func (i *Issuer) Verify(raw string) (*domain.Session, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(i.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}

	return &domain.Session{
		Token:     raw,
		Name:      claims.Name,
		Role:      domain.ParseRole(claims.UserType),
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Unix(),
	}, nil
}
