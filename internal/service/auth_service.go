package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"taskflow/internal/auth"
	"taskflow/internal/cache"
	apperrors "taskflow/internal/errors"
	"taskflow/internal/mail"
	"taskflow/internal/model"
	"taskflow/internal/repository"
)

const (
	// VerificationTokenExpiry is how long an email verification link stays usable.
	VerificationTokenExpiry = 24 * time.Hour
	// ResetTokenExpiry is how long a password reset link stays usable.
	ResetTokenExpiry = time.Hour
)

const (
	msgInvalidCredentials = "invalid email or password"
	msgEmailNotSent       = "Email could not be sent. Please try again later."
)

// RegisterInput carries the fields required to create an account.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,maxbytes=72"`
}

// LoginInput carries user credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordInput carries the current and desired password of a signed-in user.
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,maxbytes=72"`
}

type forgotPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordInput struct {
	Password string `json:"password" validate:"required,min=6,maxbytes=72"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	// LoginStatus reports whether token is a valid, unexpired session token.
	LoginStatus(token string) bool
	RequestEmailVerification(ctx context.Context, userID uuid.UUID) error
	VerifyEmail(ctx context.Context, rawToken string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, password string) error
	ChangePassword(ctx context.Context, userID uuid.UUID, in ChangePasswordInput) error
}

// AuthDeps are the collaborators of the auth service.
type AuthDeps struct {
	Users    repository.UserRepository
	Tokens   repository.TokenRepository
	Hasher   auth.PasswordHasher
	Sessions *auth.JWTService
	Secrets  auth.SecretGenerator
	Mailer   mail.Sender
	Cache    *cache.Client
	Log      logrus.FieldLogger
	Now      func() time.Time

	// ClientURL prefixes the links sent by email.
	ClientURL string
	MailFrom  string
}

type authService struct {
	AuthDeps

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new authentication service.
func NewAuthService(deps AuthDeps) AuthService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Secrets == nil {
		deps.Secrets = auth.RandomSecrets{}
	}
	deps.ClientURL = strings.TrimRight(deps.ClientURL, "/")
	return &authService{AuthDeps: deps}
}

// Register creates a new user with a hashed password and signs them in.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	_, err := s.Users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, apperrors.Conflict("user with that email already exists")
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hashed, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           uuid.New(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hashed,
		Role:         model.RoleUser,
	}
	if err := s.Users.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration; the unique index decides
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("user with that email already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.Log.WithField("user_id", user.ID).Info("user registered")
	return s.signIn(user)
}

// Login authenticates a user. Unknown emails and wrong passwords fail identically.
func (s *authService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	user, err := s.Users.FindByEmail(ctx, in.Email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
		// keep timing close to the known-email path
		s.Hasher.Verify(in.Password, s.dummyPasswordHash())
		return nil, apperrors.Unauthorized(msgInvalidCredentials)
	}

	if !s.Hasher.Verify(in.Password, user.PasswordHash) {
		return nil, apperrors.Unauthorized(msgInvalidCredentials)
	}
	return s.signIn(user)
}

func (s *authService) LoginStatus(token string) bool {
	if token == "" {
		return false
	}
	_, err := s.Sessions.Verify(token)
	return err == nil
}

// RequestEmailVerification replaces any pending verification link with a new one and mails it.
func (s *authService) RequestEmailVerification(ctx context.Context, userID uuid.UUID) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return apperrors.Conflict("user already verified")
	}

	raw, err := s.issueSecondaryToken(ctx, user.ID, model.PurposeVerifyEmail, VerificationTokenExpiry)
	if err != nil {
		return err
	}

	return s.send(ctx, user, mail.Message{
		Subject:   "Email Verification",
		Template:  mail.TemplateEmailVerification,
		ActionURL: s.ClientURL + "/verify-email/" + raw,
	})
}

// VerifyEmail consumes a verification secret and marks its owner verified.
func (s *authService) VerifyEmail(ctx context.Context, rawToken string) error {
	token, err := s.consumableToken(ctx, rawToken, model.PurposeVerifyEmail, "invalid or expired verification token")
	if err != nil {
		return err
	}

	user, err := s.findUser(ctx, token.UserID)
	if err != nil {
		return err
	}

	user.IsVerified = true
	if err := s.Users.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	s.Cache.Delete(ctx, userCacheKey(user.ID))

	if err := s.Tokens.Delete(ctx, token.ID); err != nil {
		return fmt.Errorf("delete verification token: %w", err)
	}
	s.Log.WithField("user_id", user.ID).Info("email verified")
	return nil
}

// ForgotPassword mails a reset link. The outcome for an unknown email is
// indistinguishable from a successful request.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	in := forgotPasswordInput{Email: NormalizeEmail(email)}
	if err := validateInput(in); err != nil {
		return err
	}

	user, err := s.Users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.Log.Debug("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}

	raw, err := s.issueSecondaryToken(ctx, user.ID, model.PurposeResetPassword, ResetTokenExpiry)
	if err != nil {
		return err
	}

	return s.send(ctx, user, mail.Message{
		Subject:   "Password Reset",
		Template:  mail.TemplateForgotPassword,
		ActionURL: s.ClientURL + "/reset-password/" + raw,
	})
}

// ResetPassword consumes a reset secret and replaces its owner's password.
func (s *authService) ResetPassword(ctx context.Context, rawToken, password string) error {
	if err := validateInput(resetPasswordInput{Password: password}); err != nil {
		return err
	}

	token, err := s.consumableToken(ctx, rawToken, model.PurposeResetPassword, "invalid or expired reset token")
	if err != nil {
		return err
	}

	user, err := s.findUser(ctx, token.UserID)
	if err != nil {
		return err
	}

	if err := s.setPassword(ctx, user, password); err != nil {
		return err
	}
	if err := s.Tokens.Delete(ctx, token.ID); err != nil {
		return fmt.Errorf("delete reset token: %w", err)
	}
	s.Log.WithField("user_id", user.ID).Info("password reset")
	return nil
}

// ChangePassword replaces the password of a signed-in user after checking the current one.
func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, in ChangePasswordInput) error {
	if err := validateInput(in); err != nil {
		return err
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.Hasher.Verify(in.CurrentPassword, user.PasswordHash) {
		return apperrors.Unauthorized("incorrect current password")
	}

	if err := s.setPassword(ctx, user, in.NewPassword); err != nil {
		return err
	}
	s.Log.WithField("user_id", user.ID).Info("password changed")
	return nil
}

func (s *authService) signIn(user *model.User) (*AuthResult, error) {
	token, expiresAt, err := s.Sessions.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *authService) findUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.Users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *authService) setPassword(ctx context.Context, user *model.User, password string) error {
	hashed, err := s.Hasher.Hash(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hashed
	if err := s.Users.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	s.Cache.Delete(ctx, userCacheKey(user.ID))
	return nil
}

// issueSecondaryToken deletes the owner's pending tokens for purpose, then
// stores a fresh one. It returns the raw secret for the email link.
func (s *authService) issueSecondaryToken(ctx context.Context, owner uuid.UUID, purpose model.TokenPurpose, ttl time.Duration) (string, error) {
	if err := s.Tokens.DeleteByOwner(ctx, owner, purpose); err != nil {
		return "", fmt.Errorf("supersede %s token: %w", purpose, err)
	}

	raw, hash, err := s.Secrets.Generate(owner)
	if err != nil {
		return "", fmt.Errorf("generate %s token: %w", purpose, err)
	}

	now := s.Now()
	token := &model.SecondaryToken{
		ID:         uuid.New(),
		UserID:     owner,
		Purpose:    purpose,
		SecretHash: hash,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := s.Tokens.Create(ctx, token); err != nil {
		return "", fmt.Errorf("store %s token: %w", purpose, err)
	}
	return raw, nil
}

func (s *authService) consumableToken(ctx context.Context, raw string, purpose model.TokenPurpose, message string) (*model.SecondaryToken, error) {
	if raw == "" {
		return nil, apperrors.InvalidToken(message)
	}
	token, err := s.Tokens.FindLive(ctx, auth.HashSecret(raw), purpose, s.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.InvalidToken(message)
		}
		return nil, fmt.Errorf("find %s token: %w", purpose, err)
	}
	if !token.Live(s.Now()) {
		return nil, apperrors.InvalidToken(message)
	}
	return token, nil
}

func (s *authService) send(ctx context.Context, user *model.User, msg mail.Message) error {
	msg.To = user.Email
	msg.From = s.MailFrom
	msg.RecipientName = user.Name
	if err := s.Mailer.Send(ctx, msg); err != nil {
		s.Log.WithError(err).WithFields(logrus.Fields{
			"user_id":  user.ID,
			"template": msg.Template,
		}).Error("send email")
		return apperrors.EmailDelivery(msgEmailNotSent)
	}
	return nil
}

func (s *authService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.Hasher.Hash(uuid.NewString())
	})
	return s.dummyHash
}
