package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string
	SwaggerHost string
	ResetDB     bool

	// ClientURL is the frontend origin used to build verification and reset links.
	ClientURL    string
	CookieSecure bool

	LogLevel  string
	LogFormat string

	TokenSweepInterval time.Duration

	Mail Mail
	Seed Seed
}

// Mail selects and configures the outbound email provider.
type Mail struct {
	Provider       string
	From           string
	MailgunDomain  string
	MailgunAPIKey  string
	SendGridAPIKey string
	SMTPHost       string
	SMTPPort       string
	SMTPUsername   string
	SMTPPassword   string
}

// Seed describes the administrator created by cmd/seed.
type Seed struct {
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

var mailProviders = map[string]bool{
	"log":      true,
	"mailgun":  true,
	"sendgrid": true,
	"smtp":     true,
}

// Load builds Config from environment with sensible defaults.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("MYSQL_DSN", "user:password@tcp(localhost:3306)/app?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CLIENT_URL", "http://localhost:5173")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("TOKEN_SWEEP_INTERVAL", "15m")
	v.SetDefault("MAIL_PROVIDER", "log")
	v.SetDefault("MAIL_FROM", "no-reply@localhost")
	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("SEED_ADMIN_NAME", "Administrator")

	return &Config{
		ServerPort:         v.GetString("SERVER_PORT"),
		MySQLDSN:           v.GetString("MYSQL_DSN"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisDB:            v.GetInt("REDIS_DB"),
		RedisPass:          v.GetString("REDIS_PASSWORD"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		SwaggerHost:        v.GetString("SWAGGER_HOST"),
		ResetDB:            v.GetBool("RESET_DB"),
		ClientURL:          v.GetString("CLIENT_URL"),
		CookieSecure:       v.GetBool("COOKIE_SECURE"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFormat:          v.GetString("LOG_FORMAT"),
		TokenSweepInterval: v.GetDuration("TOKEN_SWEEP_INTERVAL"),
		Mail: Mail{
			Provider:       v.GetString("MAIL_PROVIDER"),
			From:           v.GetString("MAIL_FROM"),
			MailgunDomain:  v.GetString("MAILGUN_DOMAIN"),
			MailgunAPIKey:  v.GetString("MAILGUN_API_KEY"),
			SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
			SMTPHost:       v.GetString("SMTP_HOST"),
			SMTPPort:       v.GetString("SMTP_PORT"),
			SMTPUsername:   v.GetString("SMTP_USERNAME"),
			SMTPPassword:   v.GetString("SMTP_PASSWORD"),
		},
		Seed: Seed{
			AdminName:     v.GetString("SEED_ADMIN_NAME"),
			AdminEmail:    v.GetString("SEED_ADMIN_EMAIL"),
			AdminPassword: v.GetString("SEED_ADMIN_PASSWORD"),
		},
	}
}

// Validate reports configuration that the server cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if !mailProviders[c.Mail.Provider] {
		return fmt.Errorf("unknown MAIL_PROVIDER %q", c.Mail.Provider)
	}
	if c.TokenSweepInterval <= 0 {
		return fmt.Errorf("TOKEN_SWEEP_INTERVAL must be positive, got %s", c.TokenSweepInterval)
	}
	return nil
}
