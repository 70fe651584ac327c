package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"
	"github.com/tendant/simple-tokens/pkg/config"
	"github.com/tendant/simple-tokens/pkg/emailverification"
	emailapi "github.com/tendant/simple-tokens/pkg/emailverification/api"
	"github.com/tendant/simple-tokens/pkg/notice"
	"github.com/tendant/simple-tokens/pkg/notification"
	"github.com/tendant/simple-tokens/pkg/passwordreset"
	resetapi "github.com/tendant/simple-tokens/pkg/passwordreset/api"
	"github.com/tendant/simple-tokens/pkg/ratelimit"
	"github.com/tendant/simple-tokens/pkg/sessions"
	sessionapi "github.com/tendant/simple-tokens/pkg/sessions/api"
	"github.com/tendant/simple-tokens/pkg/tokengenerator"
	"github.com/tendant/simple-tokens/pkg/tokenstore"
)

type Config struct {
	LogLevel        string `env:"LOG_LEVEL" env-default:"info"`
	PersistenceType string `env:"PERSISTENCE_TYPE" env-default:"postgres"`

	AppConfig       app.AppConfig
	DatabaseConfig  config.DatabaseConfig
	EmailConfig     config.EmailConfig
	JWTConfig       config.JWTConfig
	TokenConfig     config.TokenConfig
	PasswordConfig  config.PasswordConfig
	RateLimitConfig config.RateLimitConfig
	RedisConfig     config.RedisConfig
	CleanupConfig   config.CleanupConfig
}

func main() {
	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed reading configuration", "err", err)
		os.Exit(-1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := config.Validate(
		cfg.DatabaseConfig.Validate,
		cfg.EmailConfig.Validate,
		cfg.JWTConfig.Validate,
		cfg.TokenConfig.Validate,
		cfg.PasswordConfig.Validate,
		cfg.RateLimitConfig.Validate,
		cfg.RedisConfig.Validate,
		cfg.CleanupConfig.Validate,
	); err != nil {
		slog.Error("Invalid configuration", "err", err)
		os.Exit(-1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store
	var pool *pgxpool.Pool
	if cfg.PersistenceType == "postgres" || cfg.PersistenceType == "postgresql" {
		dbConfig := cfg.DatabaseConfig.ToDbConfig()
		var err error
		pool, err = dbutils.NewDbPool(ctx, dbConfig)
		if err != nil {
			slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
			os.Exit(-1)
		}
		defer pool.Close()

		if err := tokenstore.RunMigrations(ctx, pool); err != nil {
			slog.Error("Failed running migrations", "err", err)
			os.Exit(-1)
		}
	}
	store, err := tokenstore.NewStore(cfg.PersistenceType, tokenstore.StoreConfig{Pool: pool})
	if err != nil {
		slog.Error("Failed creating token store", "type", cfg.PersistenceType, "err", err)
		os.Exit(-1)
	}

	// Rate limits
	issuanceLimiter, endpointLimiter := newLimiters(ctx, cfg.RateLimitConfig, cfg.RedisConfig)

	// Notifier
	notifier, err := notification.NewEmailNotifier(cfg.EmailConfig.ToSMTPConfig())
	if err != nil {
		slog.Error("Failed creating email notifier", "host", cfg.EmailConfig.Host, "err", err)
		os.Exit(-1)
	}
	noticeConfig, err := cfg.TokenConfig.ToNoticeConfig()
	if err != nil {
		slog.Error("Failed building notice config", "err", err)
		os.Exit(-1)
	}
	renderer, err := notice.NewRenderer(noticeConfig)
	if err != nil {
		slog.Error("Failed loading email templates", "err", err)
		os.Exit(-1)
	}

	// Credentials
	accessExpiry, _ := cfg.JWTConfig.ParseAccessTokenExpiry()
	refreshExpiry, _ := cfg.JWTConfig.ParseRefreshTokenExpiry()
	generator := tokengenerator.NewJwtTokenGenerator(cfg.JWTConfig.Secret, cfg.JWTConfig.Issuer, cfg.JWTConfig.Audience)
	jwtService := tokengenerator.NewJwtService(generator,
		tokengenerator.WithAccessTokenExpiry(accessExpiry),
		tokengenerator.WithRefreshTokenExpiry(refreshExpiry),
	)
	tokenAuth := jwtauth.New("HS256", []byte(cfg.JWTConfig.Secret), nil)

	hasher, err := cfg.PasswordConfig.NewHasher()
	if err != nil {
		slog.Error("Failed creating password hasher", "algorithm", cfg.PasswordConfig.Algorithm, "err", err)
		os.Exit(-1)
	}

	// Services
	sessionService := sessions.NewService(store, jwtService)
	emailService := emailverification.NewEmailVerificationService(store, renderer, notifier,
		emailverification.WithTokenExpiry(cfg.TokenConfig.VerificationTokenTTL()),
		emailverification.WithLimiter(issuanceLimiter),
	)
	resetService := passwordreset.NewService(store, renderer, notifier,
		passwordreset.WithTokenExpiry(cfg.TokenConfig.ResetTokenTTL()),
		passwordreset.WithHasher(hasher),
		passwordreset.WithLimiter(issuanceLimiter),
		passwordreset.WithMinPasswordLength(cfg.PasswordConfig.MinLength),
	)

	// Handlers
	var sessionOpts []sessionapi.HandlerOption
	if cfg.JWTConfig.CookieEnabled {
		setter := &sessionapi.BaseCookieSetter{
			HttpOnly: true,
			Secure:   cfg.JWTConfig.CookieSecure,
			SameSite: cfg.JWTConfig.CookieSameSite(),
		}
		sessionOpts = append(sessionOpts, sessionapi.WithCookies(setter, "/api/v1/sessions"))
	}
	sessionHandle := sessionapi.NewHandler(sessionService, sessionOpts...)
	emailHandle := emailapi.NewHandler(emailService)
	resetHandle := resetapi.NewHandler(resetService)

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	requireSession := func(r chi.Router) {
		r.Use(sessions.Verifier(tokenAuth))
		r.Use(sessions.RequireLiveSession(sessionService))
	}

	server.R.Route("/api/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.With(ratelimit.NewMiddleware(endpointLimiter, "sessions").Handler).Group(sessionHandle.PublicRoutes)
			r.Group(func(r chi.Router) {
				requireSession(r)
				sessionHandle.SessionRoutes(r)
			})
		})
		r.Route("/email", func(r chi.Router) {
			r.With(ratelimit.NewMiddleware(endpointLimiter, "email").Handler).Group(emailHandle.PublicRoutes)
			r.Group(func(r chi.Router) {
				requireSession(r)
				emailHandle.SessionRoutes(r)
			})
		})
		r.Route("/password", func(r chi.Router) {
			r.Use(ratelimit.NewMiddleware(endpointLimiter, "password").Handler)
			resetHandle.Routes(r)
		})
	})

	// Sweeper
	if cfg.CleanupConfig.Enabled {
		sweeper := tokenstore.NewSweeper(store,
			tokenstore.WithSweepInterval(cfg.CleanupConfig.IntervalDuration()),
			tokenstore.WithRetention(cfg.CleanupConfig.RetentionDuration()),
		)
		go sweeper.Run(ctx)
	}

	slog.Info("Token service ready",
		"persistence", cfg.PersistenceType,
		"redis", cfg.RedisConfig.Enabled(),
		"rate_limit", cfg.RateLimitConfig.Enabled,
		"cleanup", cfg.CleanupConfig.Enabled)

	server.Run()
}

// newLimiters returns the issuance and endpoint limiters. Redis-backed
// limiters are shared between replicas; memory limiters are per process.
func newLimiters(ctx context.Context, rl config.RateLimitConfig, rc config.RedisConfig) (ratelimit.Limiter, ratelimit.Limiter) {
	if !rl.Enabled {
		return ratelimit.Noop{}, ratelimit.Noop{}
	}

	if rc.Enabled() {
		client := redis.NewClient(rc.ToOptions())
		if err := client.Ping(ctx).Err(); err != nil {
			slog.Error("Failed connecting to redis", "addr", rc.Addr, "err", err)
			os.Exit(-1)
		}
		return ratelimit.NewRedisLimiter(client, rc.Prefix+"issue:", rl.IssuanceLimit, rl.IssuanceWindowDuration()),
			ratelimit.NewRedisLimiter(client, rc.Prefix+"ip:", rl.EndpointLimit, rl.EndpointWindowDuration())
	}

	issuance := ratelimit.NewMemoryLimiter(rl.IssuanceLimit, rl.IssuanceWindowDuration())
	endpoint := ratelimit.NewMemoryLimiter(rl.EndpointLimit, rl.EndpointWindowDuration())
	go issuance.RunPruner(ctx, 2*rl.IssuanceWindowDuration())
	go endpoint.RunPruner(ctx, 2*rl.EndpointWindowDuration())
	return issuance, endpoint
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
