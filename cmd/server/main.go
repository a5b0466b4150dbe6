package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"taskflow/docs" // swagger docs

	"github.com/labstack/echo/v4"

	"taskflow/internal/auth"
	"taskflow/internal/cache"
	"taskflow/internal/config"
	"taskflow/internal/db"
	"taskflow/internal/handler"
	"taskflow/internal/logger"
	"taskflow/internal/mail"
	"taskflow/internal/repository"
	"taskflow/internal/router"
	"taskflow/internal/service"
)

// @title Taskflow Auth API
// @version 1.0
// @description Registration, cookie sessions, email verification, password reset and user administration.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name token
// @description Session token set by register or login.
func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.WithError(err).Fatal("database init")
	}
	if cfg.ResetDB {
		log.Warn("RESET_DB set, dropping all tables")
	}
	if err := db.Migrate(gormDB, cfg.ResetDB); err != nil {
		log.WithError(err).Fatal("migrate")
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, "taskflow:")
	defer cacheClient.Close()
	if err := cacheClient.Ping(context.Background()); err != nil {
		log.WithError(err).Warn("redis unreachable, running without cache")
	}

	mailer, err := mail.NewSender(cfg.Mail, log)
	if err != nil {
		log.WithError(err).Fatal("mail init")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	tokenRepo := repository.NewTokenRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)

	// Initialize services
	userService := service.NewUserService(userRepo, tokenRepo, cacheClient, log)
	authService := service.NewAuthService(service.AuthDeps{
		Users:     userRepo,
		Tokens:    tokenRepo,
		Hasher:    auth.NewBcryptHasher(auth.DefaultBcryptCost),
		Sessions:  jwtService,
		Mailer:    mailer,
		Cache:     cacheClient,
		Log:       log,
		ClientURL: cfg.ClientURL,
		MailFrom:  cfg.Mail.From,
	})
	guard := auth.NewGuard(jwtService, service.NewSessionResolver(userRepo), log)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, guard, router.Handlers{
		Auth: handler.NewAuthHandler(authService, handler.CookiePolicy{Secure: cfg.CookieSecure}),
		User: handler.NewUserHandler(userService),
	}, log)

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "http://"), "https://")
	}
	log.WithField("url", "http://"+docs.SwaggerInfo.Host+"/swagger/index.html").Info("swagger documentation available")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go service.NewTokenSweeper(tokenRepo, cfg.TokenSweepInterval, log).Run(ctx)

	go func() {
		addr := ":" + cfg.ServerPort
		log.WithField("addr", addr).Info("server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server start")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
}
