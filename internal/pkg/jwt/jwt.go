package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind tags a token as usable for API access or for refresh only.
// Both kinds are structurally JWTs and must never be interchangeable.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

type Config struct {
	Secret        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RememberMeTTL time.Duration
}

// Service issues and verifies signed access/refresh tokens.
type Service struct {
	secret        []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	rememberMeTTL time.Duration
}

type Claims struct {
	UserID     string    `json:"user_id"`
	Role       string    `json:"role"`
	Kind       TokenKind `json:"kind"`
	RememberMe bool      `json:"remember_me,omitempty"`
	jwtlib.RegisteredClaims
}

func New(cfg Config) *Service {
	return &Service{
		secret:        []byte(cfg.Secret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		rememberMeTTL: cfg.RememberMeTTL,
	}
}

// GenerateAccessToken issues an access token. With rememberMe the long-lived
// policy applies, otherwise the standard session TTL.
func (s *Service) GenerateAccessToken(userID, username, role string, rememberMe bool) (string, time.Time, error) {
	ttl := s.accessTTL
	if rememberMe {
		ttl = s.rememberMeTTL
	}
	return s.generate(userID, username, role, KindAccess, rememberMe, ttl)
}

// GenerateRefreshToken issues a refresh token under the family's TTL policy.
func (s *Service) GenerateRefreshToken(userID, username, role string, rememberMe bool) (string, time.Time, error) {
	ttl := s.refreshTTL
	if rememberMe {
		ttl = s.rememberMeTTL
	}
	return s.generate(userID, username, role, KindRefresh, rememberMe, ttl)
}

func (s *Service) generate(userID, username, role string, kind TokenKind, rememberMe bool, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		UserID:     userID,
		Role:       role,
		Kind:       kind,
		RememberMe: rememberMe,
		RegisteredClaims: jwtlib.RegisteredClaims{
			// jti keeps two tokens minted within the same second distinct;
			// token values must stay unique across all records.
			ID:        uuid.NewString(),
			Subject:   username,
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks signature and expiry. Any parse, signature or expiry problem
// comes back as ErrInvalidToken; callers never see parser internals.
func (s *Service) Verify(tokenStr string) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		if err != nil && errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, jwtlib.ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IsValidAsKind reports whether the token verifies, belongs to username and
// carries the expected kind. This is the gate that keeps access and refresh
// tokens from standing in for each other.
func (s *Service) IsValidAsKind(tokenStr, username string, kind TokenKind) bool {
	claims, err := s.Verify(tokenStr)
	if err != nil {
		return false
	}
	if claims.Subject != username {
		return false
	}
	return claims.Kind == kind
}
