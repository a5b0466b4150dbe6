package router

import (
	"errors"
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	echoSwagger "github.com/swaggo/echo-swagger"

	"taskflow/internal/auth"
	apperrors "taskflow/internal/errors"
	"taskflow/internal/handler"
	"taskflow/internal/logger"
	"taskflow/internal/model"
	"taskflow/internal/service"
)

// authContextKey is where the session middleware stores the resolved AuthContext.
const authContextKey = "auth"

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Auth *handler.AuthHandler
	User *handler.UserHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, guard *auth.Guard, h Handlers, log logrus.FieldLogger) {
	e.HTTPErrorHandler = handler.ErrorHandler(log)
	e.Validator = &CustomValidator{validate: service.Validate}

	e.Use(middleware.RequestID())
	e.Use(logger.RequestLogger(log))
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api/v1")

	// Public routes
	api.POST("/register", h.Auth.Register)
	api.POST("/login", h.Auth.Login)
	api.GET("/logout", h.Auth.Logout)
	api.GET("/login-status", h.Auth.LoginStatus)
	api.POST("/verify-user/:verificationToken", h.Auth.VerifyUser)
	api.POST("/forgot-password", h.Auth.ForgotPassword)
	api.POST("/reset-password/:resetPasswordToken", h.Auth.ResetPassword)

	// Secured routes (require a session cookie)
	secured := api.Group("", Session(guard))

	secured.GET("/user", Protect(guard, h.User.GetUser))
	secured.PATCH("/user", Protect(guard, h.User.UpdateUser))
	secured.POST("/verify-email", Protect(guard, h.Auth.RequestVerification))
	secured.PATCH("/change-password", Protect(guard, h.Auth.ChangePassword))

	// Admin routes
	secured.GET("/admin/users", Protect(guard, h.User.ListUsers, auth.RequireRole(model.RoleCreator, model.RoleAdmin)))
	secured.DELETE("/admin/users/:id", Protect(guard, h.User.DeleteUser, auth.RequireRole(model.RoleAdmin)))
}

// Session reads the session cookie and resolves the caller through guard.
// Requests without a valid session never reach the next handler.
func Session(guard *auth.Guard) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup: "cookie:" + handler.SessionCookie,
		ContextKey:  authContextKey,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return guard.Authenticate(c.Request().Context(), token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			var appErr *apperrors.Error
			if errors.As(err, &appErr) {
				return appErr
			}
			// no cookie at all
			_, authErr := guard.Authenticate(c.Request().Context(), "")
			return authErr
		},
	})
}

// Protect hands the caller resolved by Session to h after applying gates.
func Protect(guard *auth.Guard, h handler.AuthedHandler, gates ...auth.Gate) echo.HandlerFunc {
	return func(c echo.Context) error {
		ac, _ := c.Get(authContextKey).(auth.AuthContext)
		if err := guard.Check(ac, gates...); err != nil {
			return err
		}
		return h(c, ac)
	}
}

// CustomValidator adapts request validation for Echo.
type CustomValidator struct {
	validate func(interface{}) error
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validate(i)
}
