package domain

import "time"

// RefreshToken stores one physical refresh token value ever issued.
//
// Security notes:
// - Tokens are rotated on every refresh: a new row is created with
//   PreviousToken pointing at the value it replaced, same TokenFamily.
// - Presenting an already-rotated value again means two parties hold the
//   same token; the whole family gets revoked with RevokedDueToReuse.
type RefreshToken struct {
	ID     string `json:"id" gorm:"primaryKey;size:36"`
	UserID string `json:"user_id" gorm:"size:36;index;not null"`

	Token         string `json:"-" gorm:"size:1000;uniqueIndex;not null"`
	TokenFamily   string `json:"token_family" gorm:"size:36;index;not null"`
	PreviousToken string `json:"-" gorm:"size:1000;index"`

	RotationCount int  `json:"rotation_count" gorm:"not null;default:0"`
	RememberMe    bool `json:"remember_me" gorm:"not null;default:false"`

	CreatedAt     time.Time  `json:"created_at"`
	LastRotatedAt *time.Time `json:"last_rotated_at"`
	ExpiresAt     time.Time  `json:"expires_at" gorm:"index;not null"`
	RevokedAt     *time.Time `json:"revoked_at" gorm:"index"`

	IsRevoked         bool `json:"is_revoked" gorm:"not null;default:false;index"`
	RevokedDueToReuse bool `json:"revoked_due_to_reuse" gorm:"not null;default:false"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IsActive reports whether the token is still redeemable: not revoked and
// not past its expiry.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked && !t.IsExpired(now)
}

func (t *RefreshToken) Revoke(now time.Time) {
	t.IsRevoked = true
	t.RevokedAt = &now
}

func (t *RefreshToken) RevokeForReuse(now time.Time) {
	t.Revoke(now)
	t.RevokedDueToReuse = true
}
