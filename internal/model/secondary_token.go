package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TokenPurpose separates email verification tokens from password reset tokens.
type TokenPurpose string

const (
	PurposeVerifyEmail   TokenPurpose = "verify-email"
	PurposeResetPassword TokenPurpose = "reset-password"
)

// SecondaryToken is a short-lived single-use secret mailed to a user.
// Only the hash of the secret is stored.
type SecondaryToken struct {
	ID         uuid.UUID    `json:"id" gorm:"type:char(36);primaryKey"`
	UserID     uuid.UUID    `json:"user_id" gorm:"type:char(36);not null;index:idx_secondary_tokens_owner"`
	Purpose    TokenPurpose `json:"purpose" gorm:"size:32;not null;index:idx_secondary_tokens_owner"`
	SecretHash string       `json:"-" gorm:"size:64;not null;uniqueIndex"`
	CreatedAt  time.Time    `json:"created_at"`
	ExpiresAt  time.Time    `json:"expires_at" gorm:"not null;index"`
}

// BeforeCreate sets UUID before creating the record.
func (t *SecondaryToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Live reports whether the token can still be consumed at now.
// A token is dead from the instant its expiry is reached.
func (t *SecondaryToken) Live(now time.Time) bool {
	return t.ExpiresAt.After(now)
}
