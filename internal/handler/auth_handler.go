package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"taskflow/internal/auth"
	"taskflow/internal/model"
	"taskflow/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
	cookies     CookiePolicy
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, cookies CookiePolicy) *AuthHandler {
	return &AuthHandler{authService: authService, cookies: cookies}
}

// ForgotPasswordRequest represents a password reset request.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest carries the new password for a reset link.
type ResetPasswordRequest struct {
	Password string `json:"password"`
}

// AuthResponse represents an authentication response. The token is also set
// as the session cookie.
type AuthResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.RegisterInput true "Registration data"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	req.Email = service.NormalizeEmail(req.Email)
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.authService.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}

	c.SetCookie(h.cookies.session(res.Token, res.ExpiresAt))
	return c.JSON(http.StatusCreated, AuthResponse{Token: res.Token, ExpiresAt: res.ExpiresAt, User: res.User})
}

// Login godoc
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.LoginInput true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req service.LoginInput
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	req.Email = service.NormalizeEmail(req.Email)
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}

	c.SetCookie(h.cookies.session(res.Token, res.ExpiresAt))
	return c.JSON(http.StatusOK, AuthResponse{Token: res.Token, ExpiresAt: res.ExpiresAt, User: res.User})
}

// Logout godoc
// @Summary Logout user
// @Description Clears the session cookie. Issued tokens stay valid until they expire.
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /logout [get]
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(h.cookies.cleared())
	return c.JSON(http.StatusOK, MessageResponse{Message: "User logged out"})
}

// LoginStatus godoc
// @Summary Report whether the session cookie holds a valid token
// @Tags auth
// @Produce json
// @Success 200 {boolean} boolean
// @Router /login-status [get]
func (h *AuthHandler) LoginStatus(c echo.Context) error {
	var token string
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		token = cookie.Value
	}
	return c.JSON(http.StatusOK, h.authService.LoginStatus(token))
}

// RequestVerification godoc
// @Summary Email a verification link to the signed-in user
// @Tags auth
// @Produce json
// @Security CookieAuth
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /verify-email [post]
func (h *AuthHandler) RequestVerification(c echo.Context, ac auth.AuthContext) error {
	if err := h.authService.RequestEmailVerification(c.Request().Context(), ac.UserID()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Verification email sent"})
}

// VerifyUser godoc
// @Summary Consume an email verification link
// @Tags auth
// @Produce json
// @Param verificationToken path string true "Secret from the verification link"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /verify-user/{verificationToken} [post]
func (h *AuthHandler) VerifyUser(c echo.Context) error {
	if err := h.authService.VerifyEmail(c.Request().Context(), c.Param("verificationToken")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "User verified"})
}

// ForgotPassword godoc
// @Summary Email a password reset link
// @Description Responds identically whether or not the email belongs to an account.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Account email"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}

	if err := h.authService.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "If that email is registered, a reset link has been sent"})
}

// ResetPassword godoc
// @Summary Consume a password reset link
// @Tags auth
// @Accept json
// @Produce json
// @Param resetPasswordToken path string true "Secret from the reset link"
// @Param request body ResetPasswordRequest true "New password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /reset-password/{resetPasswordToken} [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}

	if err := h.authService.ResetPassword(c.Request().Context(), c.Param("resetPasswordToken"), req.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Password reset successfully"})
}

// ChangePassword godoc
// @Summary Change the signed-in user's password
// @Tags auth
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body service.ChangePasswordInput true "Current and new password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /change-password [patch]
func (h *AuthHandler) ChangePassword(c echo.Context, ac auth.AuthContext) error {
	var req service.ChangePasswordInput
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.authService.ChangePassword(c.Request().Context(), ac.UserID(), req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}
