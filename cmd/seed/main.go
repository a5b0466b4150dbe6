package main

import (
	"context"
	"errors"
	"fmt"

	"taskflow/internal/auth"
	"taskflow/internal/config"
	"taskflow/internal/db"
	"taskflow/internal/logger"
	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.Info("starting seed")

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.WithError(err).Fatal("connect to database")
	}
	if err := db.Migrate(gormDB, false); err != nil {
		log.WithError(err).Fatal("run migrations")
	}

	repo := repository.NewUserRepository(gormDB)
	created, err := seedAdmin(context.Background(), repo, auth.NewBcryptHasher(auth.DefaultBcryptCost), cfg.Seed)
	if err != nil {
		log.WithError(err).Fatal("seed admin")
	}

	if created {
		log.WithField("email", cfg.Seed.AdminEmail).Info("admin created")
	} else {
		log.WithField("email", cfg.Seed.AdminEmail).Info("existing user promoted to admin")
	}
}

// seedAdmin creates the configured administrator, or promotes and verifies
// the existing account with that email. The password of an existing account
// is left untouched.
func seedAdmin(ctx context.Context, repo repository.UserRepository, hasher auth.PasswordHasher, seed config.Seed) (created bool, err error) {
	email := service.NormalizeEmail(seed.AdminEmail)
	if email == "" {
		return false, errors.New("SEED_ADMIN_EMAIL must be set")
	}

	existing, err := repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		existing.Role = model.RoleAdmin
		existing.IsVerified = true
		if err := repo.Update(ctx, existing); err != nil {
			return false, fmt.Errorf("promote %s: %w", email, err)
		}
		return false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return false, fmt.Errorf("check %s: %w", email, err)
	}

	if len(seed.AdminPassword) < 6 {
		return false, errors.New("SEED_ADMIN_PASSWORD must be at least 6 characters")
	}
	hashed, err := hasher.Hash(seed.AdminPassword)
	if err != nil {
		return false, err
	}

	admin := &model.User{
		Name:         seed.AdminName,
		Email:        email,
		PasswordHash: hashed,
		Role:         model.RoleAdmin,
		IsVerified:   true,
	}
	if err := repo.Create(ctx, admin); err != nil {
		return false, fmt.Errorf("create %s: %w", email, err)
	}
	return true, nil
}
