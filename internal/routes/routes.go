package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/medipass/medipass/internal/auth"
	"github.com/medipass/medipass/internal/config"
	"github.com/medipass/medipass/internal/middleware"
	"github.com/medipass/medipass/internal/notification"
	"github.com/medipass/medipass/internal/user"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. Development
// runs without Postgres or Redis fall back to in-memory implementations;
// anything else requires both.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var users user.Repository
	if d.DB != nil {
		users = user.NewPostgresRepository(d.DB)
	} else {
		users = user.NewMemoryRepository()
	}

	var windows middleware.WindowStore
	if d.Cache != nil {
		windows = middleware.NewRedisStore(d.Cache)
	} else {
		windows = middleware.NewMemoryStore()
	}

	dispatcher := notification.NewDispatcher(
		notification.NewSMSGateway(d.Cfg, d.Logger),
		notification.NewEmailSender(d.Cfg, d.Logger),
		d.Logger,
	)

	tokens := auth.NewTokenService(d.Cfg)
	authSvc := auth.NewService(d.Cfg, users, tokens, dispatcher, d.Logger)
	authHandler := auth.NewHandler(authSvc, d.Logger)

	api := app.Group("/api")

	// OTP verification gets the tighter throttle because each request
	// burns a challenge attempt. Each limiter's routes share one window
	// per client, so register, login and reset-password draw from a
	// single budget.
	RegisterAuthRoutes(api, authHandler,
		middleware.RateLimit(windows, middleware.Limit{Scope: "auth", Max: d.Cfg.AuthLimitMax, Window: d.Cfg.AuthLimitWindow}),
		middleware.RateLimit(windows, middleware.Limit{Scope: "otp", Max: d.Cfg.OTPLimitMax, Window: d.Cfg.OTPLimitWindow}),
	)

	jwtmw := middleware.JWTAuth(tokens, users)
	protected := api.Group("", jwtmw)
	RegisterProfileRoutes(protected, authSvc, users)

	return nil
}
