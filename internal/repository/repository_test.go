package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"taskflow/internal/db"
	"taskflow/internal/model"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// newTestDB opens a file-backed SQLite database migrated with the service schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "taskflow.db")), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb, false))

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

func seedToken(t *testing.T, repo TokenRepository, owner uuid.UUID, purpose model.TokenPurpose, hash string, expiresAt time.Time) *model.SecondaryToken {
	t.Helper()
	token := &model.SecondaryToken{UserID: owner, Purpose: purpose, SecretHash: hash, ExpiresAt: expiresAt}
	require.NoError(t, repo.Create(context.Background(), token))
	return token
}

func TestTokenRepository_FindLive(t *testing.T) {
	repo := NewTokenRepository(newTestDB(t))
	owner := uuid.New()
	seeded := seedToken(t, repo, owner, model.PurposeResetPassword, "reset-hash", epoch.Add(time.Hour))

	tests := []struct {
		name    string
		hash    string
		purpose model.TokenPurpose
		now     time.Time
		wantErr error
	}{
		{name: "before expiry", hash: "reset-hash", purpose: model.PurposeResetPassword, now: epoch},
		{name: "one second before expiry", hash: "reset-hash", purpose: model.PurposeResetPassword, now: epoch.Add(time.Hour - time.Second)},
		{name: "at expiry", hash: "reset-hash", purpose: model.PurposeResetPassword, now: epoch.Add(time.Hour), wantErr: ErrNotFound},
		{name: "after expiry", hash: "reset-hash", purpose: model.PurposeResetPassword, now: epoch.Add(2 * time.Hour), wantErr: ErrNotFound},
		{name: "wrong purpose", hash: "reset-hash", purpose: model.PurposeVerifyEmail, now: epoch, wantErr: ErrNotFound},
		{name: "unknown hash", hash: "other-hash", purpose: model.PurposeResetPassword, now: epoch, wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := repo.FindLive(context.Background(), tt.hash, tt.purpose, tt.now)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, token)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, seeded.ID, token.ID)
			assert.Equal(t, owner, token.UserID)
		})
	}
}

func TestTokenRepository_CreateDuplicateHash(t *testing.T) {
	repo := NewTokenRepository(newTestDB(t))
	seedToken(t, repo, uuid.New(), model.PurposeVerifyEmail, "same-hash", epoch.Add(time.Hour))

	err := repo.Create(context.Background(), &model.SecondaryToken{
		UserID: uuid.New(), Purpose: model.PurposeVerifyEmail, SecretHash: "same-hash", ExpiresAt: epoch.Add(time.Hour),
	})

	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestTokenRepository_DeleteByOwner(t *testing.T) {
	tests := []struct {
		name          string
		purpose       model.TokenPurpose
		wantVerify    int
		wantReset     int
		wantBystander int
	}{
		{name: "verification only", purpose: model.PurposeVerifyEmail, wantVerify: 0, wantReset: 1, wantBystander: 1},
		{name: "reset only", purpose: model.PurposeResetPassword, wantVerify: 2, wantReset: 0, wantBystander: 1},
		{name: "every purpose", purpose: "", wantVerify: 0, wantReset: 0, wantBystander: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewTokenRepository(newTestDB(t))
			owner, bystander := uuid.New(), uuid.New()
			seedToken(t, repo, owner, model.PurposeVerifyEmail, "v1", epoch.Add(time.Hour))
			seedToken(t, repo, owner, model.PurposeVerifyEmail, "v2", epoch.Add(time.Hour))
			seedToken(t, repo, owner, model.PurposeResetPassword, "r1", epoch.Add(time.Hour))
			seedToken(t, repo, bystander, model.PurposeVerifyEmail, "b1", epoch.Add(time.Hour))

			require.NoError(t, repo.DeleteByOwner(context.Background(), owner, tt.purpose))

			verify, err := repo.FindByOwner(context.Background(), owner, model.PurposeVerifyEmail)
			require.NoError(t, err)
			reset, err := repo.FindByOwner(context.Background(), owner, model.PurposeResetPassword)
			require.NoError(t, err)
			others, err := repo.FindByOwner(context.Background(), bystander, model.PurposeVerifyEmail)
			require.NoError(t, err)

			assert.Len(t, verify, tt.wantVerify)
			assert.Len(t, reset, tt.wantReset)
			assert.Len(t, others, tt.wantBystander)
		})
	}
}

func TestTokenRepository_DeleteExpired(t *testing.T) {
	repo := NewTokenRepository(newTestDB(t))
	owner := uuid.New()
	seedToken(t, repo, owner, model.PurposeVerifyEmail, "past", epoch.Add(-time.Minute))
	seedToken(t, repo, owner, model.PurposeVerifyEmail, "boundary", epoch)
	live := seedToken(t, repo, owner, model.PurposeResetPassword, "future", epoch.Add(time.Second))

	removed, err := repo.DeleteExpired(context.Background(), epoch)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed, "a token expiring exactly now is swept")

	remaining, err := repo.FindByOwner(context.Background(), owner, model.PurposeVerifyEmail)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	token, err := repo.FindLive(context.Background(), "future", model.PurposeResetPassword, epoch)
	require.NoError(t, err)
	assert.Equal(t, live.ID, token.ID)

	removed, err = repo.DeleteExpired(context.Background(), epoch)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestTokenRepository_Delete(t *testing.T) {
	repo := NewTokenRepository(newTestDB(t))
	token := seedToken(t, repo, uuid.New(), model.PurposeVerifyEmail, "once", epoch.Add(time.Hour))

	require.NoError(t, repo.Delete(context.Background(), token.ID))

	_, err := repo.FindLive(context.Background(), "once", model.PurposeVerifyEmail, epoch)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	user := &model.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, model.RoleUser, user.Role)

	err := repo.Create(ctx, &model.User{Name: "Copy", Email: "ada@example.com", PasswordHash: "hash"})
	assert.ErrorIs(t, err, ErrDuplicate)

	found, err := repo.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	found.Role = "root"
	assert.ErrorIs(t, repo.Update(ctx, found), model.ErrInvalidRole)

	found.Role = model.RoleAdmin
	found.IsVerified = true
	require.NoError(t, repo.Update(ctx, found))
	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, reloaded.Role)
	assert.True(t, reloaded.IsVerified)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, repo.Delete(ctx, user.ID))
	assert.ErrorIs(t, repo.Delete(ctx, user.ID), ErrNotFound)
	_, err = repo.FindByID(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_CreateRejectsUnknownRole(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	err := repo.Create(context.Background(), &model.User{Name: "X", Email: "x@example.com", PasswordHash: "hash", Role: "root"})

	assert.ErrorIs(t, err, model.ErrInvalidRole)
	_, err = repo.FindByEmail(context.Background(), "x@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
