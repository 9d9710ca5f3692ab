package auth

import (
	"context"
	"errors"
	"log"
	"time"

	"projecthub/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultMaxRotationCount      = 100
	defaultRateLimitWindow       = 60 * time.Second
	defaultMaxRotationsPerWindow = 5

	// rotation counts this close to the ceiling get flagged by the monitor
	suspiciousRotationMargin = 10
)

type refreshIssuer interface {
	GenerateRefreshToken(userID, username, role string, rememberMe bool) (string, time.Time, error)
}

type RotationConfig struct {
	MaxRotationCount      int
	RateLimitWindow       time.Duration
	MaxRotationsPerWindow int
}

// RotationEngine decides whether a presented refresh token may be rotated,
// performs the rotation, detects reuse and revokes compromised families.
type RotationEngine struct {
	tokens TokenStore
	issuer refreshIssuer
	cfg    RotationConfig
	now    func() time.Time
}

func NewRotationEngine(tokens TokenStore, issuer refreshIssuer, cfg RotationConfig) *RotationEngine {
	if cfg.MaxRotationCount <= 0 {
		cfg.MaxRotationCount = defaultMaxRotationCount
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = defaultRateLimitWindow
	}
	if cfg.MaxRotationsPerWindow <= 0 {
		cfg.MaxRotationsPerWindow = defaultMaxRotationsPerWindow
	}
	return &RotationEngine{
		tokens: tokens,
		issuer: issuer,
		cfg:    cfg,
		now:    time.Now,
	}
}

// NewTokenFamily mints a family id for a fresh login.
func (e *RotationEngine) NewTokenFamily() string {
	return uuid.NewString()
}

// Rotate replaces oldToken with a freshly issued refresh token in the same
// family. Each gate below aborts the rotation; only reuse detection mutates
// state on failure (it revokes the family).
func (e *RotationEngine) Rotate(ctx context.Context, oldToken, userID, username, role string, rememberMe bool) (*domain.RefreshToken, error) {
	now := e.now()

	old, err := e.tokens.FindByToken(ctx, oldToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	// Reuse detection. A successor record means oldToken was already rotated
	// away once and is now presented a second time: two parties hold it.
	// Checked first and unconditionally; a rotated-away token is also a
	// revoked one, and the revoked verdict must not mask the theft signal.
	if _, err := e.tokens.FindByPreviousToken(ctx, oldToken); err == nil {
		log.Printf("SECURITY: token reuse detected, revoking family %s (user %s)", old.TokenFamily, userID)
		if err := e.tokens.RevokeFamily(ctx, old.TokenFamily, now, true); err != nil {
			return nil, err
		}
		return nil, ErrTokenReuseDetected
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if old.IsRevoked {
		return nil, ErrTokenRevoked
	}
	if old.IsExpired(now) {
		return nil, ErrTokenExpired
	}
	compromised, err := e.tokens.IsFamilyCompromised(ctx, old.TokenFamily)
	if err != nil {
		return nil, err
	}
	if compromised {
		return nil, ErrFamilyCompromised
	}

	recent, err := e.tokens.CountRecentRotationsInFamily(ctx, old.TokenFamily, now.Add(-e.cfg.RateLimitWindow))
	if err != nil {
		return nil, err
	}
	if recent >= int64(e.cfg.MaxRotationsPerWindow) {
		log.Printf("rotation rate limit hit for family %s (%d in %s)", old.TokenFamily, recent, e.cfg.RateLimitWindow)
		return nil, ErrRateLimitExceeded
	}

	if old.RotationCount >= e.cfg.MaxRotationCount {
		log.Printf("rotation ceiling reached for family %s (count %d)", old.TokenFamily, old.RotationCount)
		return nil, ErrRotationLimitExceeded
	}

	newToken, expiresAt, err := e.issuer.GenerateRefreshToken(userID, username, role, rememberMe)
	if err != nil {
		return nil, err
	}

	rotatedAt := now
	next := &domain.RefreshToken{
		ID:            uuid.NewString(),
		UserID:        old.UserID,
		Token:         newToken,
		TokenFamily:   old.TokenFamily,
		PreviousToken: oldToken,
		RotationCount: old.RotationCount + 1,
		RememberMe:    rememberMe,
		LastRotatedAt: &rotatedAt,
		ExpiresAt:     expiresAt,
	}

	// New record must be durable before the old one is revoked: a crash in
	// between leaves the family rotatable rather than locked out.
	if err := e.tokens.Save(ctx, next); err != nil {
		return nil, err
	}

	revoked, err := e.tokens.RevokeByID(ctx, old.ID, now)
	if err != nil {
		return nil, err
	}
	if !revoked {
		// A concurrent rotation of the same token won the conditional update.
		// Withdraw our record and report the token as dead.
		_ = e.tokens.DeleteByID(ctx, next.ID)
		return nil, ErrTokenRevoked
	}

	return next, nil
}

// RevokeTokenFamily revokes every record of the family in one statement and
// flags the family as compromised.
func (e *RotationEngine) RevokeTokenFamily(ctx context.Context, family, reason string) error {
	log.Printf("revoking token family %s: %s", family, reason)
	return e.tokens.RevokeFamily(ctx, family, e.now(), true)
}

// HasMultipleActiveTokens reports a family holding more than one live
// record. Under correct operation exactly one exists; more signals a race
// or a bug. Logged, not auto-corrected.
func (e *RotationEngine) HasMultipleActiveTokens(ctx context.Context, family string) (bool, error) {
	count, err := e.tokens.CountActiveInFamily(ctx, family, e.now())
	if err != nil {
		return false, err
	}
	if count > 1 {
		log.Printf("anomaly: %d active tokens in family %s", count, family)
		return true, nil
	}
	return false, nil
}

// FindSuspiciousTokens returns live records close enough to the rotation
// ceiling to warrant alerting.
func (e *RotationEngine) FindSuspiciousTokens(ctx context.Context) ([]domain.RefreshToken, error) {
	return e.tokens.FindSuspicious(ctx, e.cfg.MaxRotationCount-suspiciousRotationMargin)
}

// RecentSecurityIncidents returns the reuse-revoked records inside the
// window — the audit trail for theft events.
func (e *RotationEngine) RecentSecurityIncidents(ctx context.Context, window time.Duration) ([]domain.RefreshToken, error) {
	return e.tokens.FindReuseIncidents(ctx, e.now().Add(-window))
}

// UserRotationTotal sums rotation counts across all of a user's records.
func (e *RotationEngine) UserRotationTotal(ctx context.Context, userID string) (int64, error) {
	return e.tokens.SumRotationsByUser(ctx, userID)
}
