package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/happyhackingspace/kurdish-dataset/internal/config"
	"github.com/happyhackingspace/kurdish-dataset/internal/server/middleware"
)

const tokenIssuer = "kurdish-dataset"

// ReviewerClaims is the payload of a panel session token.
type ReviewerClaims struct {
	ReviewerID uuid.UUID `json:"reviewer_id"`
	jwt.RegisteredClaims
}

func (c *ReviewerClaims) GetReviewerID() uuid.UUID {
	return c.ReviewerID
}

// SessionTokens signs panel session tokens with HS256 and checks the ones the
// panel sends back. It is the token validator of the panel's auth middleware.
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

var _ middleware.TokenValidator = (*SessionTokens)(nil)

func NewSessionTokens(cfg *config.JWTConfig) *SessionTokens {
	return &SessionTokens{
		secret: []byte(cfg.Secret),
		ttl:    time.Duration(cfg.ExpirationHours) * time.Hour,
		now:    time.Now,
	}
}

// Issue returns a session token for a reviewer who just logged in.
func (s *SessionTokens) Issue(reviewerID uuid.UUID) (string, error) {
	now := s.now()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &ReviewerClaims{
		ReviewerID: reviewerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   reviewerID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Parse checks signature, issuer and lifetime and returns the reviewer claims.
// Only HMAC-signed tokens naming a reviewer are accepted.
func (s *SessionTokens) Parse(raw string) (*ReviewerClaims, error) {
	if raw == "" {
		return nil, errors.New("session token is empty")
	}

	claims := &ReviewerClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("session expired: %w", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, fmt.Errorf("session token signature invalid: %w", err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, fmt.Errorf("malformed session token: %w", err)
	default:
		return nil, fmt.Errorf("session token rejected: %w", err)
	}

	if !token.Valid || claims.ReviewerID == uuid.Nil {
		return nil, errors.New("session token names no reviewer")
	}
	return claims, nil
}

func (s *SessionTokens) ValidateToken(raw string) (middleware.ReviewerIDGetter, error) {
	claims, err := s.Parse(raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
