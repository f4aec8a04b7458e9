package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/simple-auth/simple-auth/pkg/account"
	"github.com/simple-auth/simple-auth/pkg/audit"
	"github.com/simple-auth/simple-auth/pkg/client"
	"github.com/simple-auth/simple-auth/pkg/emailverify"
	"github.com/simple-auth/simple-auth/pkg/login"
	"github.com/simple-auth/simple-auth/pkg/notice"
	"github.com/simple-auth/simple-auth/pkg/notification"
	"github.com/simple-auth/simple-auth/pkg/profile"
	"github.com/simple-auth/simple-auth/pkg/ratelimit"
	"github.com/simple-auth/simple-auth/pkg/signup"
	"github.com/simple-auth/simple-auth/pkg/tokengenerator"
	"github.com/simple-auth/simple-auth/pkg/twofa"
)

type DbConfig struct {
	Host     string `env:"AUTH_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"AUTH_PG_PORT" env-default:"5432"`
	Database string `env:"AUTH_PG_DATABASE" env-default:"auth_db"`
	User     string `env:"AUTH_PG_USER" env-default:"auth"`
	Password string `env:"AUTH_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"AUTH_PG_SCHEMA" env-default:"public"`
}

func (d DbConfig) toDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

type JwtConfig struct {
	Secret            string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer            string `env:"JWT_ISSUER" env-default:"simple-auth"`
	Audience          string `env:"JWT_AUDIENCE" env-default:"simple-auth-api"`
	CookieHttpOnly    bool   `env:"COOKIE_HTTP_ONLY" env-default:"true"`
	CookieSecure      bool   `env:"COOKIE_SECURE" env-default:"true"`
	AccessTokenExpiry string `env:"ACCESS_TOKEN_EXPIRY" env-default:"1h"`
	TempTokenExpiry   string `env:"TEMP_TOKEN_EXPIRY" env-default:"5m"`
}

type EmailConfig struct {
	Host     string `env:"EMAIL_HOST" env-default:"localhost"`
	Port     int    `env:"EMAIL_PORT" env-default:"1025"`
	Username string `env:"EMAIL_USERNAME" env-default:"noreply@example.com"`
	Password string `env:"EMAIL_PASSWORD" env-default:"pwd"`
	From     string `env:"EMAIL_FROM" env-default:"noreply@example.com"`
	TLS      bool   `env:"EMAIL_TLS" env-default:"false"`
}

type CodeConfig struct {
	VerifyCodeTTL  string `env:"VERIFY_CODE_TTL" env-default:"5m"`
	ResetCodeTTL   string `env:"RESET_CODE_TTL" env-default:"15m"`
	ReferralCredit int    `env:"REFERRAL_CREDIT" env-default:"10"`
}

type RateLimitConfig struct {
	PerIPEnabled    bool    `env:"RATELIMIT_PER_IP_ENABLED" env-default:"true"`
	PerIPCapacity   int     `env:"RATELIMIT_PER_IP_CAPACITY" env-default:"100"`
	PerIPRefillRate float64 `env:"RATELIMIT_PER_IP_REFILL_RATE" env-default:"1.67"`

	PerAccountEnabled    bool    `env:"RATELIMIT_PER_ACCOUNT_ENABLED" env-default:"true"`
	PerAccountCapacity   int     `env:"RATELIMIT_PER_ACCOUNT_CAPACITY" env-default:"200"`
	PerAccountRefillRate float64 `env:"RATELIMIT_PER_ACCOUNT_REFILL_RATE" env-default:"3.33"`

	CredentialCapacity   int     `env:"RATELIMIT_CREDENTIAL_CAPACITY" env-default:"10"`
	CredentialRefillRate float64 `env:"RATELIMIT_CREDENTIAL_REFILL_RATE" env-default:"0.167"`
}

type Config struct {
	Addr         string `env:"LISTEN_ADDR" env-default:":4000"`
	AccountStore string `env:"ACCOUNT_STORE" env-default:"postgres"`
	DbConfig     DbConfig
	JwtConfig    JwtConfig
	EmailConfig  EmailConfig
	CodeConfig   CodeConfig
	RateLimit    RateLimitConfig
}

// loadEnvFile loads .env from the working directory if present. Variables
// already set in the environment win.
func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("Failed to get current working directory", "error", err)
		return
	}
	envFile := filepath.Join(cwd, ".env")
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		return
	}
	if err := godotenv.Load(envFile); err != nil {
		slog.Error("Failed to load .env file", "error", err, "path", envFile)
		return
	}
	slog.Info("Configuration loaded from .env file", "path", envFile)
}

func mustParseDuration(name, value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Error("Invalid duration", "name", name, "value", value, "error", err)
		os.Exit(-1)
	}
	return d
}

func newRepository(config Config) account.Repository {
	if config.AccountStore == "memory" {
		slog.Info("Using in-memory account store")
		return account.NewInMemoryRepository()
	}

	pool, err := pgxpool.New(context.Background(), config.DbConfig.toDatabaseURL())
	if err != nil {
		slog.Error("Failed creating dbpool", "db", config.DbConfig.Database,
			"host", config.DbConfig.Host, "port", config.DbConfig.Port, "user", config.DbConfig.User)
		os.Exit(-1)
	}
	repo, err := account.NewPostgresRepository(pool)
	if err != nil {
		slog.Error("Failed creating account repository", "error", err)
		os.Exit(-1)
	}
	return repo
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	loadEnvFile()

	config := Config{}
	cleanenv.ReadEnv(&config)

	repo := newRepository(config)

	notifier, err := notice.NewNotificationManager(notification.SMTPConfig{
		Host:     config.EmailConfig.Host,
		Port:     config.EmailConfig.Port,
		Username: config.EmailConfig.Username,
		Password: config.EmailConfig.Password,
		From:     config.EmailConfig.From,
		TLS:      config.EmailConfig.TLS,
	})
	if err != nil {
		slog.Error("Failed to initialize notification manager", "error", err)
		os.Exit(-1)
	}

	passwords := login.NewHashPool(login.DefaultHashPoolSize)

	tokenGenerator := tokengenerator.NewJwtTokenGenerator(
		config.JwtConfig.Secret,
		config.JwtConfig.Issuer,
		config.JwtConfig.Audience,
	)
	cookieSetter := tokengenerator.NewCookieSetter(config.JwtConfig.CookieHttpOnly, config.JwtConfig.CookieSecure)
	jwtService := tokengenerator.NewJwtService(
		tokengenerator.WithDefaultTokenGenerator(tokenGenerator),
		tokengenerator.WithCookieSetter(tokengenerator.ACCESS_TOKEN_NAME, cookieSetter),
		tokengenerator.WithCookieSetter(tokengenerator.TEMP_TOKEN_NAME, cookieSetter),
		tokengenerator.WithAccessTokenExpiry(mustParseDuration("ACCESS_TOKEN_EXPIRY", config.JwtConfig.AccessTokenExpiry)),
		tokengenerator.WithTempTokenExpiry(mustParseDuration("TEMP_TOKEN_EXPIRY", config.JwtConfig.TempTokenExpiry)),
	)

	verifyCodeTTL := mustParseDuration("VERIFY_CODE_TTL", config.CodeConfig.VerifyCodeTTL)
	resetCodeTTL := mustParseDuration("RESET_CODE_TTL", config.CodeConfig.ResetCodeTTL)

	signupService := signup.NewService(repo, passwords, jwtService, notifier,
		signup.WithVerifyCodeTTL(verifyCodeTTL),
		signup.WithReferralCredit(config.CodeConfig.ReferralCredit),
	)
	loginService := login.NewService(repo, passwords, jwtService, notifier,
		login.WithResetCodeTTL(resetCodeTTL),
	)
	emailVerifyService := emailverify.NewService(repo, notifier,
		emailverify.WithCodeTTL(verifyCodeTTL),
	)
	twoFaService := twofa.NewService(repo, passwords,
		twofa.WithIssuer(config.JwtConfig.Issuer),
	)
	profileService := profile.NewService(repo, passwords, notifier)

	signupHandle := signup.NewHandle(signupService, jwtService)
	loginHandle := login.NewHandle(loginService, jwtService)
	emailVerifyHandle := emailverify.NewHandle(emailVerifyService)
	twoFaHandle := twofa.NewHandle(twoFaService)
	profileHandle := profile.NewHandle(profileService)

	ja := client.NewAuthenticator(config.JwtConfig.Secret, config.JwtConfig.Issuer, config.JwtConfig.Audience)

	rateLimiter := ratelimit.NewMiddleware(rateLimitConfig(config.RateLimit))
	auditor := audit.NewMiddleware(logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(rateLimiter.Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, http.StatusText(http.StatusOK))
	})

	r.Route("/auth", func(r chi.Router) {
		signup.Routes(r, signupHandle)
		login.Routes(r, loginHandle)

		r.Group(func(r chi.Router) {
			r.Use(client.Verifier(ja))
			r.Use(rateLimiter.AccountHandler)
			r.Use(client.AuthAccountMiddleware)
			r.Use(client.RequireFullAccess)
			r.Use(auditor.Handler)
			emailverify.Routes(r, emailVerifyHandle)
		})
	})

	r.Route("/profile", func(r chi.Router) {
		r.Use(client.Verifier(ja))
		r.Use(rateLimiter.AccountHandler)
		r.Use(client.AuthAccountMiddleware)
		r.Use(client.RequireFullAccess)
		r.Use(auditor.Handler)

		profile.Routes(r, profileHandle, repo)
		r.Route("/2fa", func(r chi.Router) {
			twofa.Routes(r, twoFaHandle)
		})
	})

	server := &http.Server{
		Addr:              config.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server listening", "addr", config.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}

// rateLimitConfig maps env configuration onto the limiter config, pinning
// tight budgets on the credential endpoints.
func rateLimitConfig(cfg RateLimitConfig) *ratelimit.Config {
	credential := ratelimit.EndpointLimit{
		Capacity:   cfg.CredentialCapacity,
		RefillRate: cfg.CredentialRefillRate,
	}
	return &ratelimit.Config{
		PerIPEnabled:    cfg.PerIPEnabled,
		PerIPCapacity:   cfg.PerIPCapacity,
		PerIPRefillRate: cfg.PerIPRefillRate,

		PerAccountEnabled:    cfg.PerAccountEnabled,
		PerAccountCapacity:   cfg.PerAccountCapacity,
		PerAccountRefillRate: cfg.PerAccountRefillRate,

		EndpointLimits: map[string]ratelimit.EndpointLimit{
			"POST /auth/sign-in":                credential,
			"POST /auth/sign-up":                credential,
			"POST /auth/2fa/verify-login":       credential,
			"POST /auth/request-password-reset": credential,
			"POST /auth/reset-password":         credential,
		},

		BucketTTL: time.Hour,
	}
}
