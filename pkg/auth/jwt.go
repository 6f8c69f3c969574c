// Package auth provides bearer-token authentication for the registry API.
//
// Tokens are HS256-signed JWTs whose subject identifies the caller. The
// configured admin subject is the only caller allowed to use the control
// plane endpoints.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/exwaizedd/exam-pass/pkg/app/errors"
	apphttp "github.com/exwaizedd/exam-pass/pkg/app/http"
	"github.com/exwaizedd/exam-pass/pkg/config"
)

// TokenService issues and validates registry access tokens
type TokenService struct {
	signingKey   []byte
	issuer       string
	adminSubject string
	tokenTTL     time.Duration
}

// NewTokenService creates a new token service from configuration
func NewTokenService(cfg config.AuthConfig) *TokenService {
	return &TokenService{
		signingKey:   []byte(cfg.SigningKey),
		issuer:       cfg.Issuer,
		adminSubject: cfg.AdminSubject,
		tokenTTL:     cfg.TokenTTL,
	}
}

// Issue creates a signed token for the given subject
func (s *TokenService) Issue(subject string) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("empty subject")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a token string and returns the authenticated caller
func (s *TokenService) Verify(tokenString string) (*Caller, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing subject")
	}

	return &Caller{
		Subject: claims.Subject,
		Admin:   claims.Subject == s.adminSubject,
	}, nil
}

// Middleware authenticates requests and stores the caller in the request context.
// Requests without a valid bearer token are rejected with 401.
func (s *TokenService) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(err, "missing bearer token"))
			return
		}

		caller, err := s.Verify(tokenString)
		if err != nil {
			apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(err, "invalid token"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

// RequireAdmin rejects requests whose caller is not the registry admin.
// It must run after Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			apphttp.DefaultErrorHandler(w, apperrors.ForbiddenError(nil, "admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("malformed Authorization header")
	}
	return parts[1], nil
}
