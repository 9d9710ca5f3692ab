package auth

import (
	"context"
	"time"

	"projecthub/internal/domain"
)

// TokenStore — persistence for refresh token records. Only the queries the
// rotation engine and session service need.
type TokenStore interface {
	Save(ctx context.Context, t *domain.RefreshToken) error
	FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	FindByPreviousToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	FindByFamily(ctx context.Context, family string) ([]domain.RefreshToken, error)
	CountActiveInFamily(ctx context.Context, family string, now time.Time) (int64, error)
	CountActiveByUser(ctx context.Context, userID string, now time.Time) (int64, error)
	CountRecentRotationsInFamily(ctx context.Context, family string, since time.Time) (int64, error)
	RevokeByID(ctx context.Context, id string, now time.Time) (bool, error)
	RevokeFamily(ctx context.Context, family string, now time.Time, dueToReuse bool) error
	RevokeExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	DeleteExpiredOrRevoked(ctx context.Context, now time.Time) (int64, error)
	ListFamiliesByUser(ctx context.Context, userID string) ([]string, error)
	IsFamilyCompromised(ctx context.Context, family string) (bool, error)
	FindSuspicious(ctx context.Context, minRotationCount int) ([]domain.RefreshToken, error)
	FindReuseIncidents(ctx context.Context, since time.Time) ([]domain.RefreshToken, error)
	SumRotationsByUser(ctx context.Context, userID string) (int64, error)
}

// UserProviderInterface — only the lookups the session service uses.
type UserProviderInterface interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// CredentialVerifier validates a presented secret against a stored hash.
// Hashing policy lives behind this boundary.
type CredentialVerifier interface {
	Verify(hashedSecret, secret string) error
}
