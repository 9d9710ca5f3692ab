package repository

import (
	"context"
	"time"

	"projecthub/internal/domain"

	"gorm.io/gorm"
)

// RefreshTokenRepository provides DB access for refresh token records.
type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Save(ctx context.Context, t *domain.RefreshToken) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *RefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindByPreviousToken returns the record that replaced the given token value
// via rotation, if any. A hit means the given value was already rotated away.
func (r *RefreshTokenRepository) FindByPreviousToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.db.WithContext(ctx).Where("previous_token = ?", token).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *RefreshTokenRepository) FindByFamily(ctx context.Context, family string) ([]domain.RefreshToken, error) {
	var tokens []domain.RefreshToken
	err := r.db.WithContext(ctx).
		Where("token_family = ?", family).
		Order("created_at DESC").
		Find(&tokens).Error
	return tokens, err
}

func (r *RefreshTokenRepository) CountActiveInFamily(ctx context.Context, family string, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("token_family = ? AND is_revoked = ? AND expires_at > ?", family, false, now).
		Count(&count).Error
	return count, err
}

func (r *RefreshTokenRepository) CountActiveByUser(ctx context.Context, userID string, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ? AND expires_at > ?", userID, false, now).
		Count(&count).Error
	return count, err
}

func (r *RefreshTokenRepository) CountRecentRotationsInFamily(ctx context.Context, family string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("token_family = ? AND last_rotated_at > ?", family, since).
		Count(&count).Error
	return count, err
}

// RevokeByID marks a single record revoked only if it is still unrevoked.
// The returned bool is false when a concurrent rotation got there first;
// callers treat that as losing the race, never as a fresh rotation.
func (r *RefreshTokenRepository) RevokeByID(ctx context.Context, id string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("id = ? AND is_revoked = ?", id, false).
		Updates(map[string]any{"is_revoked": true, "revoked_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RevokeFamily revokes every record in a family in one bulk UPDATE.
// dueToReuse distinguishes theft incidents from user-initiated revocation.
func (r *RefreshTokenRepository) RevokeFamily(ctx context.Context, family string, now time.Time, dueToReuse bool) error {
	updates := map[string]any{"is_revoked": true, "revoked_at": now}
	if dueToReuse {
		updates["revoked_due_to_reuse"] = true
	}
	return r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("token_family = ?", family).
		Updates(updates).Error
}

func (r *RefreshTokenRepository) RevokeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("expires_at < ? AND is_revoked = ?", now, false).
		Updates(map[string]any{"is_revoked": true, "revoked_at": now})
	return res.RowsAffected, res.Error
}

func (r *RefreshTokenRepository) DeleteByID(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.RefreshToken{}).Error
}

func (r *RefreshTokenRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.RefreshToken{})
	return res.RowsAffected, res.Error
}

func (r *RefreshTokenRepository) DeleteExpiredOrRevoked(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ? OR is_revoked = ?", now, true).
		Delete(&domain.RefreshToken{})
	return res.RowsAffected, res.Error
}

func (r *RefreshTokenRepository) ListFamiliesByUser(ctx context.Context, userID string) ([]string, error) {
	var families []string
	err := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Distinct("token_family").
		Where("user_id = ?", userID).
		Pluck("token_family", &families).Error
	return families, err
}

// IsFamilyCompromised reports whether any record of the family was ever
// revoked for reuse. A flagged family never issues tokens again.
func (r *RefreshTokenRepository) IsFamilyCompromised(ctx context.Context, family string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("token_family = ? AND revoked_due_to_reuse = ?", family, true).
		Count(&count).Error
	return count > 0, err
}

func (r *RefreshTokenRepository) FindSuspicious(ctx context.Context, minRotationCount int) ([]domain.RefreshToken, error) {
	var tokens []domain.RefreshToken
	err := r.db.WithContext(ctx).
		Where("rotation_count > ? AND is_revoked = ?", minRotationCount, false).
		Find(&tokens).Error
	return tokens, err
}

func (r *RefreshTokenRepository) FindReuseIncidents(ctx context.Context, since time.Time) ([]domain.RefreshToken, error) {
	var tokens []domain.RefreshToken
	err := r.db.WithContext(ctx).
		Where("revoked_due_to_reuse = ? AND revoked_at > ?", true, since).
		Find(&tokens).Error
	return tokens, err
}

func (r *RefreshTokenRepository) SumRotationsByUser(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(rotation_count), 0)").
		Scan(&total).Error
	return total, err
}
