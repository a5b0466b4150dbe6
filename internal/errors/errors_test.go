package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"validation", Validation("password must be at least 6 characters"), http.StatusBadRequest, "VALIDATION_ERROR", "password must be at least 6 characters"},
		{"conflict", Conflict("user already exists"), http.StatusConflict, "CONFLICT", "user already exists"},
		{"unauthorized", Unauthorized("invalid email or password"), http.StatusUnauthorized, "UNAUTHORIZED", "invalid email or password"},
		{"forbidden", Forbidden("Access denied, admin only"), http.StatusForbidden, "FORBIDDEN", "Access denied, admin only"},
		{"not found", NotFound("user not found"), http.StatusNotFound, "NOT_FOUND", "user not found"},
		{"invalid token", InvalidToken("invalid or expired token"), http.StatusBadRequest, "INVALID_TOKEN", "invalid or expired token"},
		{"email delivery", EmailDelivery("try again later"), http.StatusInternalServerError, "EMAIL_DELIVERY_FAILED", "try again later"},
		{"wrapped", fmt.Errorf("verify: %w", NotFound("user not found")), http.StatusNotFound, "NOT_FOUND", "user not found"},
		{"bare kind", ErrForbidden, http.StatusForbidden, "FORBIDDEN", "forbidden"},
		{"unknown", errors.New("dial tcp: connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
			assert.Equal(t, tt.wantCode, httpErr.Code)
			assert.Equal(t, tt.wantMsg, httpErr.Message)
		})
	}
}

func TestErrorKinds(t *testing.T) {
	err := Conflict("user already verified")
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "user already verified", err.Error())
}
