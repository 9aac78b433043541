package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-gomflow/internal/common"
)

// Service verifies bearer tokens minted by the identity provider. Tokens are
// HS256-signed and carry the caller's email in the "email" claim (or the
// subject as a fallback).
type Service struct {
	secret    []byte
	validator TokenValidator
	Now       func() time.Time
}

// NewService builds a token verifier with the shared signing secret.
func NewService(secret string, issuer string, skew time.Duration) *Service {
	return &Service{
		secret: []byte(secret),
		validator: TokenValidator{
			Issuer:    issuer,
			ClockSkew: skew,
			Algorithm: jwa.HS256,
		},
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ParseToken validates a bearer token and returns the caller's email.
func (s *Service) ParseToken(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if s.validator.Algorithm != "" && algorithm != s.validator.Algorithm {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret))
	if err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if err := s.validator.Validate(parsed, algorithm, s.now()); err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	email := emailFrom(parsed)
	if email == "" {
		return "", common.NewAppError("UNAUTHORIZED", "token carries no identity", http.StatusUnauthorized, nil)
	}
	return strings.ToLower(email), nil
}

func emailFrom(tok jwt.Token) string {
	if raw, ok := tok.Get("email"); ok {
		if email, ok := raw.(string); ok && strings.Contains(email, "@") {
			return strings.TrimSpace(email)
		}
	}
	if sub := strings.TrimSpace(tok.Subject()); strings.Contains(sub, "@") {
		return sub
	}
	return ""
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	headers := signatures[0].ProtectedHeaders()
	if headers == nil {
		return "", errors.New("auth: token missing protected headers")
	}
	alg := headers.Algorithm()
	if alg == "" {
		return "", errors.New("auth: token missing algorithm")
	}
	return alg, nil
}
