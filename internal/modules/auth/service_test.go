package auth

import (
	"context"
	"testing"
	"time"

	"projecthub/internal/domain"
	"projecthub/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type MockUserProvider struct {
	mock.Mock
}

func (m *MockUserProvider) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserProvider) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func newTestService(t *testing.T) (*Service, *MockUserProvider, *repository.RefreshTokenRepository) {
	t.Helper()
	db := newTestDB(t)
	repo := repository.NewRefreshTokenRepository(db)
	codec := newTestCodec()
	users := new(MockUserProvider)
	engine := NewRotationEngine(repo, codec, RotationConfig{MaxRotationsPerWindow: 100})
	svc := NewService(users, repo, codec, BcryptVerifier{}, engine)
	return svc, users, repo
}

func testUser(t *testing.T, password string) *domain.User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	return &domain.User{
		ID:           "user-1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Enabled:      true,
	}
}

func TestLogin_Success(t *testing.T) {
	svc, users, repo := newTestService(t)
	user := testUser(t, "password123")
	users.On("GetByUsername", mock.Anything, "alice").Return(user, nil)

	tokens, err := svc.Login(context.Background(), "alice", "password123", false)
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, "alice", tokens.Username)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), tokens.RefreshExpiresAt, 10*time.Second)

	record, err := repo.FindByToken(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", record.UserID)
	assert.Equal(t, 0, record.RotationCount)
	assert.Empty(t, record.PreviousToken)
	assert.NotEmpty(t, record.TokenFamily)
	assert.False(t, record.IsRevoked)
	users.AssertExpectations(t)
}

func TestLogin_Failures(t *testing.T) {
	svc, users, _ := newTestService(t)

	users.On("GetByUsername", mock.Anything, "ghost").Return(nil, gorm.ErrRecordNotFound)
	_, err := svc.Login(context.Background(), "ghost", "password123", false)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	disabled := testUser(t, "password123")
	disabled.Username = "locked"
	disabled.Enabled = false
	users.On("GetByUsername", mock.Anything, "locked").Return(disabled, nil)
	_, err = svc.Login(context.Background(), "locked", "password123", false)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	active := testUser(t, "password123")
	users.On("GetByUsername", mock.Anything, "alice").Return(active, nil)
	_, err = svc.Login(context.Background(), "alice", "wrong-password", false)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh_RotatesAndDetectsReplay(t *testing.T) {
	svc, users, repo := newTestService(t)
	ctx := context.Background()
	user := testUser(t, "password123")
	users.On("GetByUsername", mock.Anything, "alice").Return(user, nil)
	users.On("GetByID", mock.Anything, "user-1").Return(user, nil)

	login, err := svc.Login(ctx, "alice", "password123", false)
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.NotEmpty(t, refreshed.AccessToken)

	// replaying the original token is theft; the family dies with it
	_, err = svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenReuseDetected)

	_, err = svc.Refresh(ctx, refreshed.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	record, err := repo.FindByToken(ctx, refreshed.RefreshToken)
	require.NoError(t, err)
	assert.True(t, record.RevokedDueToReuse)
}

func TestRefresh_RejectsWrongTokens(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	user := testUser(t, "password123")
	users.On("GetByUsername", mock.Anything, "alice").Return(user, nil)

	_, err := svc.Refresh(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	// an access token must never pass as a refresh token
	login, err := svc.Login(ctx, "alice", "password123", false)
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, login.AccessToken)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRefresh_DisabledUserLosesFamily(t *testing.T) {
	svc, users, repo := newTestService(t)
	ctx := context.Background()
	user := testUser(t, "password123")
	users.On("GetByUsername", mock.Anything, "alice").Return(user, nil)

	login, err := svc.Login(ctx, "alice", "password123", false)
	require.NoError(t, err)

	disabled := *user
	disabled.Enabled = false
	users.On("GetByID", mock.Anything, "user-1").Return(&disabled, nil)

	_, err = svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	record, err := repo.FindByToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.True(t, record.IsRevoked)
	// an account lockout is not a theft incident
	assert.False(t, record.RevokedDueToReuse)
}

func TestLogout_Idempotent(t *testing.T) {
	svc, users, repo := newTestService(t)
	ctx := context.Background()
	user := testUser(t, "password123")
	users.On("GetByUsername", mock.Anything, "alice").Return(user, nil)

	login, err := svc.Login(ctx, "alice", "password123", false)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, login.RefreshToken))

	// logout deletes the row outright
	_, err = repo.FindByToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// repeating and logging out unknown tokens are both no-ops
	assert.NoError(t, svc.Logout(ctx, login.RefreshToken))
	assert.NoError(t, svc.Logout(ctx, "never-issued"))
}

func TestLogoutAllDevices(t *testing.T) {
	svc, users, repo := newTestService(t)
	ctx := context.Background()
	user := testUser(t, "password123")
	users.On("GetByUsername", mock.Anything, "alice").Return(user, nil)

	// three logins open three independent families
	for i := 0; i < 3; i++ {
		_, err := svc.Login(ctx, "alice", "password123", false)
		require.NoError(t, err)
	}
	families, err := repo.ListFamiliesByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, families, 3)

	require.NoError(t, svc.LogoutAllDevices(ctx, "user-1"))

	live, err := repo.CountActiveByUser(ctx, "user-1", time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 0, live)

	families, err = repo.ListFamiliesByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, families)
}

func TestSessionInfoAndCleanup(t *testing.T) {
	svc, users, repo := newTestService(t)
	ctx := context.Background()
	user := testUser(t, "password123")
	users.On("GetByUsername", mock.Anything, "alice").Return(user, nil)
	users.On("GetByID", mock.Anything, "user-1").Return(user, nil)

	login, err := svc.Login(ctx, "alice", "password123", false)
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)

	info, err := svc.SessionInfo(ctx, "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, info.ActiveTokens)
	assert.EqualValues(t, 1, info.TotalRotations)

	// cleanup removes the rotated-away (revoked) row, keeps the live one
	deleted, err := svc.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	live, err := repo.CountActiveByUser(ctx, "user-1", time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, live)
}

func TestVerifyAccessToken(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	user := testUser(t, "password123")
	users.On("GetByUsername", mock.Anything, "alice").Return(user, nil)
	users.On("GetByID", mock.Anything, "user-1").Return(user, nil)

	login, err := svc.Login(ctx, "alice", "password123", false)
	require.NoError(t, err)

	verified, err := svc.VerifyAccessToken(ctx, login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", verified.Username)

	// a refresh token is not an access credential
	_, err = svc.VerifyAccessToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	_, err = svc.VerifyAccessToken(ctx, "garbage")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestVerifyAccessToken_DisabledUser(t *testing.T) {
	svc, users, _ := newTestService(t)
	ctx := context.Background()
	user := testUser(t, "password123")
	users.On("GetByUsername", mock.Anything, "alice").Return(user, nil)

	login, err := svc.Login(ctx, "alice", "password123", false)
	require.NoError(t, err)

	disabled := *user
	disabled.Enabled = false
	users.On("GetByID", mock.Anything, "user-1").Return(&disabled, nil)

	_, err = svc.VerifyAccessToken(ctx, login.AccessToken)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}
