package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"taskflow/internal/cache"
	apperrors "taskflow/internal/errors"
	"taskflow/internal/model"
	"taskflow/internal/repository"
)

const userCacheTTL = 5 * time.Minute

func userCacheKey(id uuid.UUID) string {
	return "user:" + id.String()
}

// ProfileUpdate is a partial update. A nil field is left unchanged; a pointer
// to an empty string clears the field.
type ProfileUpdate struct {
	Name  *string `json:"name" validate:"omitnil,min=1,max=255"`
	Bio   *string `json:"bio" validate:"omitnil,max=1024"`
	Photo *string `json:"photo" validate:"omitnil,max=1024"`
}

// Apply merges the set fields into user.
func (p ProfileUpdate) Apply(user *model.User) {
	if p.Name != nil {
		user.Name = *p.Name
	}
	if p.Bio != nil {
		user.Bio = *p.Bio
	}
	if p.Photo != nil {
		user.Photo = *p.Photo
	}
}

// SessionResolver loads session owners straight from the store. The cache
// is bypassed so an account stops authenticating as soon as it is deleted.
type SessionResolver struct {
	repo repository.UserRepository
}

// NewSessionResolver builds a resolver for the session guard.
func NewSessionResolver(repo repository.UserRepository) *SessionResolver {
	return &SessionResolver{repo: repo}
}

// GetUser implements auth.UserResolver.
func (r *SessionResolver) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return lookupUser(ctx, r.repo, id)
}

func lookupUser(ctx context.Context, repo repository.UserRepository, id uuid.UUID) (*model.User, error) {
	user, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// UserService exposes profile and administrative user operations.
type UserService interface {
	// GetUser returns the public view of a user. Results may come from the
	// cache, in which case the password hash is not populated.
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type userService struct {
	repo   repository.UserRepository
	tokens repository.TokenRepository
	cache  *cache.Client
	log    logrus.FieldLogger
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, tokens repository.TokenRepository, cache *cache.Client, log logrus.FieldLogger) UserService {
	return &userService{repo: repo, tokens: tokens, cache: cache, log: log}
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, userCacheKey(id), &cached) {
		return &cached, nil
	}

	user, err := lookupUser(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	s.cache.SetJSON(ctx, userCacheKey(id), user, userCacheTTL)
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*model.User, error) {
	if err := validateInput(update); err != nil {
		return nil, err
	}

	user, err := lookupUser(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	update.Apply(user)
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	s.cache.Delete(ctx, userCacheKey(id))
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *userService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("user not found")
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.cache.Delete(ctx, userCacheKey(id))

	if err := s.tokens.DeleteByOwner(ctx, id, ""); err != nil {
		// orphaned tokens expire and are swept
		s.log.WithError(err).WithField("user_id", id).Warn("delete tokens of removed user")
	}
	s.log.WithField("user_id", id).Info("user deleted")
	return nil
}
