package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reviewboost/review-api/internal/config"
	"github.com/reviewboost/review-api/internal/handler"
	authHandler "github.com/reviewboost/review-api/internal/handler/auth"
	clientHandler "github.com/reviewboost/review-api/internal/handler/client"
	reminderHandler "github.com/reviewboost/review-api/internal/handler/reminder"
	reviewHandler "github.com/reviewboost/review-api/internal/handler/review"
	settingsHandler "github.com/reviewboost/review-api/internal/handler/settings"
	"github.com/reviewboost/review-api/internal/middleware"
)

// Handlers collects everything the router mounts.
type Handlers struct {
	Health   *handler.HealthHandler
	Auth     *authHandler.Handler
	Client   *clientHandler.Handler
	Settings *settingsHandler.Handler
	Review   *reviewHandler.Handler
	Reminder *reminderHandler.Handler
}

// New builds the gin engine with the full middleware chain and route tree.
// Public: health, metrics, review form, admin login. Everything else sits
// behind the admin bearer token.
func New(cfg *config.Config, h Handlers, authMW *middleware.AuthMiddleware) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins)))
	if cfg.RateLimit.Enabled {
		rl := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		r.Use(rl.RateLimit())
	}

	h.Health.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := r.Group("/api/v1")
	{
		h.Auth.RegisterRoutes(public)
		h.Review.RegisterRoutes(public)
	}

	admin := r.Group("/api/v1")
	admin.Use(authMW.Authenticate())
	{
		h.Client.RegisterRoutes(admin)
		h.Settings.RegisterRoutes(admin)
		h.Reminder.RegisterRoutes(admin)
	}

	return r
}
