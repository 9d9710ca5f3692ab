package auth

import (
	"context"
	"errors"
	"log"
	"time"

	"projecthub/internal/domain"
	jwtsvc "projecthub/internal/pkg/jwt"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type sessionCodec interface {
	GenerateAccessToken(userID, username, role string, rememberMe bool) (string, time.Time, error)
	GenerateRefreshToken(userID, username, role string, rememberMe bool) (string, time.Time, error)
	Verify(token string) (*jwtsvc.Claims, error)
	IsValidAsKind(token, username string, kind jwtsvc.TokenKind) bool
}

// Service orchestrates login, refresh, logout and session introspection.
type Service struct {
	users    UserProviderInterface
	tokens   TokenStore
	codec    sessionCodec
	verifier CredentialVerifier
	engine   *RotationEngine
}

type SessionTokens struct {
	AccessToken      string
	RefreshToken     string
	Username         string
	RememberMe       bool
	RefreshExpiresAt time.Time
}

type SessionInfo struct {
	ActiveTokens   int64
	TotalRotations int64
}

func NewService(
	users UserProviderInterface,
	tokens TokenStore,
	codec sessionCodec,
	verifier CredentialVerifier,
	engine *RotationEngine,
) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		codec:    codec,
		verifier: verifier,
		engine:   engine,
	}
}

// Login verifies credentials and opens a new token family. Unknown user,
// disabled account and bad password all collapse into ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string, rememberMe bool) (*SessionTokens, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Enabled {
		return nil, ErrInvalidCredentials
	}
	if err := s.verifier.Verify(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, _, err := s.codec.GenerateAccessToken(user.ID, user.Username, string(user.Role), rememberMe)
	if err != nil {
		return nil, err
	}
	refreshToken, expiresAt, err := s.codec.GenerateRefreshToken(user.ID, user.Username, string(user.Role), rememberMe)
	if err != nil {
		return nil, err
	}

	record := &domain.RefreshToken{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Token:       refreshToken,
		TokenFamily: s.engine.NewTokenFamily(),
		RememberMe:  rememberMe,
		ExpiresAt:   expiresAt,
	}
	if err := s.tokens.Save(ctx, record); err != nil {
		return nil, err
	}

	log.Printf("user %s logged in (remember_me=%t)", user.Username, rememberMe)

	return &SessionTokens{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		Username:         user.Username,
		RememberMe:       rememberMe,
		RefreshExpiresAt: expiresAt,
	}, nil
}

// Refresh redeems a refresh token through the rotation engine and issues a
// fresh access/refresh pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*SessionTokens, error) {
	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenNotFound
	}
	if !s.codec.IsValidAsKind(refreshToken, claims.Subject, jwtsvc.KindRefresh) {
		return nil, ErrTokenNotFound
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenRevoked
		}
		return nil, err
	}
	if !user.Enabled {
		// Disabled accounts keep no live sessions.
		if old, ferr := s.tokens.FindByToken(ctx, refreshToken); ferr == nil {
			_ = s.tokens.RevokeFamily(ctx, old.TokenFamily, time.Now(), false)
		}
		return nil, ErrTokenRevoked
	}

	record, err := s.engine.Rotate(ctx, refreshToken, user.ID, user.Username, string(user.Role), claims.RememberMe)
	if err != nil {
		return nil, err
	}

	accessToken, _, err := s.codec.GenerateAccessToken(user.ID, user.Username, string(user.Role), record.RememberMe)
	if err != nil {
		return nil, err
	}

	log.Printf("refreshed session for %s (rotation %d)", user.Username, record.RotationCount)

	return &SessionTokens{
		AccessToken:      accessToken,
		RefreshToken:     record.Token,
		Username:         user.Username,
		RememberMe:       record.RememberMe,
		RefreshExpiresAt: record.ExpiresAt,
	}, nil
}

// Logout revokes and immediately deletes the presented refresh token.
// Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	record, err := s.tokens.FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if _, err := s.tokens.RevokeByID(ctx, record.ID, time.Now()); err != nil {
		return err
	}
	return s.tokens.DeleteByID(ctx, record.ID)
}

// LogoutAllDevices revokes every token family the user owns, then deletes
// all of the user's rows.
func (s *Service) LogoutAllDevices(ctx context.Context, userID string) error {
	families, err := s.tokens.ListFamiliesByUser(ctx, userID)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, family := range families {
		// user-initiated: not a reuse incident
		if err := s.tokens.RevokeFamily(ctx, family, now, false); err != nil {
			return err
		}
	}

	deleted, err := s.tokens.DeleteByUser(ctx, userID)
	if err != nil {
		return err
	}
	log.Printf("logged out all devices for user %s (%d tokens removed)", userID, deleted)
	return nil
}

// CleanupExpiredTokens hard-deletes every expired or revoked record.
// Idempotent and safe to call at any time.
func (s *Service) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpiredOrRevoked(ctx, time.Now())
}

// SessionInfo returns per-user session telemetry.
func (s *Service) SessionInfo(ctx context.Context, userID string) (*SessionInfo, error) {
	active, err := s.tokens.CountActiveByUser(ctx, userID, time.Now())
	if err != nil {
		return nil, err
	}
	rotations, err := s.engine.UserRotationTotal(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &SessionInfo{ActiveTokens: active, TotalRotations: rotations}, nil
}

// RecentIncidents surfaces reuse-revoked records for auditing.
func (s *Service) RecentIncidents(ctx context.Context, window time.Duration) ([]domain.RefreshToken, error) {
	return s.engine.RecentSecurityIncidents(ctx, window)
}

// VerifyAccessToken validates an access token and confirms the subject
// still exists and is enabled.
func (s *Service) VerifyAccessToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.codec.Verify(token)
	if err != nil {
		return nil, ErrTokenNotFound
	}
	if !s.codec.IsValidAsKind(token, claims.Subject, jwtsvc.KindAccess) {
		return nil, ErrTokenNotFound
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	if !user.Enabled {
		return nil, ErrTokenNotFound
	}
	return user, nil
}
