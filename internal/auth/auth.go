// Package auth validates identity tokens issued by the identity service.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"land-review/internal/config"
	"land-review/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingToken = errors.New("missing bearer token")
)

// Claims represents the claims in an identity token. The subject is the actor id.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Service validates identity tokens
type Service struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewService creates a new authentication service
func NewService(cfg *config.AuthConfig) *Service {
	return &Service{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		now:    time.Now,
	}
}

// ValidateToken validates an HS256 token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims, nil
}

// Authenticate resolves an Authorization header value to an actor
func (s *Service) Authenticate(header string) (models.Actor, error) {
	tokenString, ok := BearerToken(header)
	if !ok {
		return models.Actor{}, ErrMissingToken
	}
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return models.Actor{}, err
	}
	return models.Actor{ID: claims.Subject, Roles: claims.Roles}, nil
}

// BearerToken extracts the token from "Bearer <token>"
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
