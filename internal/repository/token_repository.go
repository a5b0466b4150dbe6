package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskflow/internal/model"
)

// TokenRepository persists secondary tokens used for email verification and password reset.
type TokenRepository interface {
	Create(ctx context.Context, token *model.SecondaryToken) error
	// FindLive returns the token with the given hash and purpose whose expiry is after now.
	FindLive(ctx context.Context, secretHash string, purpose model.TokenPurpose, now time.Time) (*model.SecondaryToken, error)
	FindByOwner(ctx context.Context, userID uuid.UUID, purpose model.TokenPurpose) ([]model.SecondaryToken, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteByOwner removes every token of the given purpose owned by userID.
	// An empty purpose removes all of the user's tokens.
	DeleteByOwner(ctx context.Context, userID uuid.UUID, purpose model.TokenPurpose) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository builds a GORM-backed secondary token repository.
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *model.SecondaryToken) error {
	return translate(r.db.WithContext(ctx).Create(token).Error)
}

func (r *tokenRepository) FindLive(ctx context.Context, secretHash string, purpose model.TokenPurpose, now time.Time) (*model.SecondaryToken, error) {
	var token model.SecondaryToken
	err := r.db.WithContext(ctx).
		Where("secret_hash = ? AND purpose = ? AND expires_at > ?", secretHash, purpose, now).
		First(&token).Error
	if err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

func (r *tokenRepository) FindByOwner(ctx context.Context, userID uuid.UUID, purpose model.TokenPurpose) ([]model.SecondaryToken, error) {
	var tokens []model.SecondaryToken
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ?", userID, purpose).
		Order("created_at").
		Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *tokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.SecondaryToken{}).Error
}

func (r *tokenRepository) DeleteByOwner(ctx context.Context, userID uuid.UUID, purpose model.TokenPurpose) error {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if purpose != "" {
		q = q.Where("purpose = ?", purpose)
	}
	return q.Delete(&model.SecondaryToken{}).Error
}

func (r *tokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.SecondaryToken{})
	return res.RowsAffected, res.Error
}
