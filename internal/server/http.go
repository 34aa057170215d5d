package server

import (
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/tesserahq/trustgate/internal/cache"
	"github.com/tesserahq/trustgate/internal/config"
	"github.com/tesserahq/trustgate/internal/credential"
	"github.com/tesserahq/trustgate/internal/database"
	"github.com/tesserahq/trustgate/internal/domain/auth"
	"github.com/tesserahq/trustgate/internal/domain/guard"
	"github.com/tesserahq/trustgate/internal/domain/ratelimit"
	"github.com/tesserahq/trustgate/internal/domain/session"
	"github.com/tesserahq/trustgate/internal/domain/token"
	"github.com/tesserahq/trustgate/internal/domain/user"
	"github.com/tesserahq/trustgate/internal/migrations"
)

// Start initializes and starts the HTTP server
func Start(cfg *config.Config) error {
	initLogger(cfg.Logging.Level)

	codec, err := token.NewCodec(token.Config{
		Issuer:        cfg.Auth.Issuer,
		AccessSecret:  cfg.Auth.AccessSecret,
		RefreshSecret: cfg.Auth.RefreshSecret,
		AccessTTL:     cfg.Auth.AccessTTL(),
		RefreshTTL:    cfg.Auth.RefreshTTL(),
	})
	if err != nil {
		slog.Error("Failed to initialize token codec", "error", err)
		return err
	}

	if err := database.ConnectDB(cfg); err != nil {
		slog.Error("Failed to connect to database", "error", err)
		return err
	}
	slog.Info("Database connected successfully")

	if err := migrations.RunMigrations(cfg.Database.URL()); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return err
	}
	slog.Info("Migrations completed successfully")

	var revocations *cache.RevocationCache
	if cfg.Redis.Enabled() {
		if err := cache.ConnectRedis(&cfg.Redis); err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			return err
		}
		revocations = cache.NewRevocationCache(cache.RedisClient)
	}

	guardCfg := guard.Config{
		MaxFailures: cfg.Guard.MaxFailures,
		Window:      cfg.Guard.Window(),
		Lockout:     cfg.Guard.Lockout(),
	}
	var loginGuard guard.Guard
	if cfg.Guard.UseRedis && cfg.Redis.Enabled() {
		loginGuard = guard.NewRedisGuard(cache.RedisClient, guardCfg)
	} else {
		loginGuard = guard.NewMemoryGuard(guardCfg)
	}

	var buckets ratelimit.Store
	if cfg.RateLimit.UseRedis && cfg.Redis.Enabled() {
		buckets = ratelimit.NewRedisStore(cache.RedisClient)
	} else {
		buckets = ratelimit.NewMemoryStore()
	}

	sessionRepo := session.NewRepository(database.DB)
	var marker session.RevocationMarker
	if revocations != nil {
		marker = revocations
	}
	sessions := session.NewService(sessionRepo, codec, credential.NewSHA3Verifier(), marker)

	users := user.NewRepository(database.DB)
	authService := auth.NewService(users, sessions, loginGuard)
	authHandler := auth.NewHandler(authService)

	var checker auth.RevocationChecker
	if revocations != nil {
		checker = revocations
	}
	authMiddleware := auth.AuthMiddleware(codec, checker)

	apiLimiter := ratelimit.NewLimiter(buckets, "api", ratelimit.Limits{
		MaxRequests: cfg.RateLimit.MaxRequests,
		Window:      cfg.RateLimit.Window(),
	})
	loginLimiter := ratelimit.NewLimiter(buckets, "login", ratelimit.Limits{
		MaxRequests: cfg.RateLimit.LoginMaxRequests,
		Window:      cfg.RateLimit.LoginWindow(),
	})

	app := fiber.New(fiber.Config{
		AppName: cfg.App.Name,
	})

	SetupRoutes(app, authHandler, authMiddleware, apiLimiter, loginLimiter)

	addr := cfg.Server.Address()
	slog.Info("Server starting", "address", addr)
	if err := app.Listen(addr); err != nil {
		slog.Error("Failed to start server", "error", err)
		return err
	}

	return nil
}

func initLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	slog.SetDefault(slog.New(handler))
}
