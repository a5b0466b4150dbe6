package main

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"taskflow/internal/auth"
	"taskflow/internal/config"
	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// MockUserRepository is a mock implementation of repository.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func TestSeedAdmin_Creates(t *testing.T) {
	repo := new(MockUserRepository)
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	repo.On("FindByEmail", mock.Anything, "admin@example.com").Return(nil, repository.ErrNotFound)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Email == "admin@example.com" &&
			u.Role == model.RoleAdmin &&
			u.IsVerified &&
			hasher.Verify("secret-pass", u.PasswordHash)
	})).Return(nil)

	created, err := seedAdmin(context.Background(), repo, hasher, config.Seed{
		AdminName:     "Admin",
		AdminEmail:    " Admin@Example.com ",
		AdminPassword: "secret-pass",
	})

	require.NoError(t, err)
	assert.True(t, created)
	repo.AssertExpectations(t)
}

func TestSeedAdmin_PromotesExisting(t *testing.T) {
	repo := new(MockUserRepository)
	existing := &model.User{ID: uuid.New(), Email: "admin@example.com", Role: model.RoleUser, PasswordHash: "kept"}
	repo.On("FindByEmail", mock.Anything, "admin@example.com").Return(existing, nil)
	repo.On("Update", mock.Anything, existing).Return(nil)

	created, err := seedAdmin(context.Background(), repo, auth.NewBcryptHasher(bcrypt.MinCost), config.Seed{AdminEmail: "admin@example.com"})

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, model.RoleAdmin, existing.Role)
	assert.True(t, existing.IsVerified)
	assert.Equal(t, "kept", existing.PasswordHash)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSeedAdmin_InvalidConfig(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("FindByEmail", mock.Anything, "admin@example.com").Return(nil, repository.ErrNotFound)

	_, err := seedAdmin(context.Background(), repo, auth.NewBcryptHasher(bcrypt.MinCost), config.Seed{})
	assert.Error(t, err)

	_, err = seedAdmin(context.Background(), repo, auth.NewBcryptHasher(bcrypt.MinCost), config.Seed{AdminEmail: "admin@example.com", AdminPassword: "123"})
	assert.Error(t, err)
}
