package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"taskflow/internal/auth"
	apperrors "taskflow/internal/errors"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "token"

// AuthedHandler is a handler that runs for a caller the access guard has resolved.
type AuthedHandler func(c echo.Context, ac auth.AuthContext) error

// MessageResponse is the body of operations that return no resource.
type MessageResponse struct {
	Message string `json:"message"`
}

// CookiePolicy controls the attributes of the session cookie.
type CookiePolicy struct {
	// Secure sets SameSite=None and Secure for cross-site frontends served over TLS.
	Secure bool
}

func (p CookiePolicy) session(value string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if p.Secure {
		cookie.SameSite = http.SameSiteNoneMode
		cookie.Secure = true
	}
	return cookie
}

func (p CookiePolicy) cleared() *http.Cookie {
	cookie := p.session("", time.Unix(0, 0))
	cookie.MaxAge = -1
	return cookie
}

func badRequest(message string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrorResponse{
		Error: message,
		Code:  "VALIDATION_ERROR",
	})
}

// ErrorHandler renders every failure as an ErrorResponse. Domain errors are
// mapped through MapErrorToHTTP; server-side failures are logged and never
// leak their detail.
func ErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := errorBody(err)
		if status >= http.StatusInternalServerError {
			log.WithError(err).WithFields(logrus.Fields{
				"method":     c.Request().Method,
				"uri":        c.Request().RequestURI,
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
			}).Error("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.WithError(err).Warn("write error response")
		}
	}
}

func errorBody(err error) (int, apperrors.ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch msg := he.Message.(type) {
		case apperrors.ErrorResponse:
			return he.Code, msg
		case string:
			if he.Code >= http.StatusInternalServerError {
				msg = "internal server error"
			}
			return he.Code, apperrors.ErrorResponse{Error: msg, Code: statusCode(he.Code)}
		default:
			return he.Code, apperrors.ErrorResponse{Error: http.StatusText(he.Code), Code: statusCode(he.Code)}
		}
	}
	httpErr := apperrors.MapErrorToHTTP(err)
	return httpErr.StatusCode, httpErr.ToErrorResponse()
}

// statusCode turns "Method Not Allowed" into "METHOD_NOT_ALLOWED".
func statusCode(status int) string {
	if status >= http.StatusInternalServerError {
		return "INTERNAL_ERROR"
	}
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}
