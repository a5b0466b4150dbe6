package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"taskflow/internal/auth"
	"taskflow/internal/service"
)

// UserHandler bundles profile and user administration handlers.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// GetUser godoc
// @Summary Get the signed-in user
// @Tags users
// @Produce json
// @Security CookieAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /user [get]
func (h *UserHandler) GetUser(c echo.Context, ac auth.AuthContext) error {
	user, err := h.svc.GetUser(c.Request().Context(), ac.UserID())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateUser godoc
// @Summary Update the signed-in user's profile
// @Description Absent fields are left unchanged; an empty string clears bio or photo.
// @Tags users
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param request body service.ProfileUpdate true "Profile fields"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /user [patch]
func (h *UserHandler) UpdateUser(c echo.Context, ac auth.AuthContext) error {
	var req service.ProfileUpdate
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.svc.UpdateProfile(c.Request().Context(), ac.UserID(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// ListUsers godoc
// @Summary List users
// @Tags admin
// @Produce json
// @Security CookieAuth
// @Success 200 {array} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/users [get]
func (h *UserHandler) ListUsers(c echo.Context, _ auth.AuthContext) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// DeleteUser godoc
// @Summary Delete a user
// @Tags admin
// @Produce json
// @Security CookieAuth
// @Param id path string true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/users/{id} [delete]
func (h *UserHandler) DeleteUser(c echo.Context, _ auth.AuthContext) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest("invalid user id")
	}

	if err := h.svc.DeleteUser(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}
