package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	apperrors "taskflow/internal/errors"
	"taskflow/internal/model"
)

// Messages returned by the guard. They never say which check failed beyond
// what the client can already observe.
const (
	msgNoToken       = "not authorized, no token"
	msgTokenFailed   = "not authorized, token failed"
	msgAdminOnly     = "Access denied, admin only"
	msgCreatorOnly   = "Only creators can do this!"
	msgVerifyEmail   = "Please verify your email address!"
	msgRoleForbidden = "Access denied"
)

// AuthContext is the identity resolved for one request. The zero value is
// the unauthenticated state.
type AuthContext struct {
	User *model.User
}

// Authenticated reports whether a user was resolved.
func (a AuthContext) Authenticated() bool {
	return a.User != nil
}

// UserID returns the resolved user's id, or uuid.Nil when unauthenticated.
func (a AuthContext) UserID() uuid.UUID {
	if a.User == nil {
		return uuid.Nil
	}
	return a.User.ID
}

// UserResolver loads the current state of a user by id.
type UserResolver interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// Gate is an additional predicate on an authenticated caller.
type Gate func(AuthContext) error

// Guard turns a session token into an AuthContext.
type Guard struct {
	tokens *JWTService
	users  UserResolver
	log    logrus.FieldLogger
}

// NewGuard creates an access guard.
func NewGuard(tokens *JWTService, users UserResolver, log logrus.FieldLogger) *Guard {
	return &Guard{tokens: tokens, users: users, log: log}
}

// Authenticate resolves the caller behind token. Missing, invalid or expired
// tokens and users deleted after issuance all fail with an AuthError.
func (g *Guard) Authenticate(ctx context.Context, token string) (AuthContext, error) {
	if token == "" {
		return AuthContext{}, apperrors.Unauthorized(msgNoToken)
	}

	userID, err := g.tokens.Verify(token)
	if err != nil {
		return AuthContext{}, apperrors.Unauthorized(msgTokenFailed)
	}

	user, err := g.users.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			g.log.WithError(err).WithField("user_id", userID).Error("resolve session user")
		}
		return AuthContext{}, apperrors.Unauthorized(msgTokenFailed)
	}
	return AuthContext{User: user}, nil
}

// Check applies gates in order and returns the first failure.
func (g *Guard) Check(ac AuthContext, gates ...Gate) error {
	if !ac.Authenticated() {
		return apperrors.Unauthorized(msgNoToken)
	}
	for _, gate := range gates {
		if err := gate(ac); err != nil {
			return err
		}
	}
	return nil
}

// RequireRole passes iff the caller's role is one of roles.
func RequireRole(roles ...model.Role) Gate {
	message := msgRoleForbidden
	switch {
	case len(roles) == 1 && roles[0] == model.RoleAdmin:
		message = msgAdminOnly
	case containsRole(roles, model.RoleCreator):
		message = msgCreatorOnly
	}
	return func(ac AuthContext) error {
		if ac.User == nil || !containsRole(roles, ac.User.Role) {
			return apperrors.Forbidden(message)
		}
		return nil
	}
}

// RequireVerified passes iff the caller has verified their email address.
func RequireVerified() Gate {
	return func(ac AuthContext) error {
		if ac.User == nil || !ac.User.IsVerified {
			return apperrors.Forbidden(msgVerifyEmail)
		}
		return nil
	}
}

func containsRole(roles []model.Role, role model.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
