package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mirabelleshop/cart-backend/api/controllers"
	cartcontrollers "github.com/mirabelleshop/cart-backend/api/controllers/cart"
	"github.com/mirabelleshop/cart-backend/api/middleware"
	"github.com/mirabelleshop/cart-backend/internal/cartservice"
	"github.com/mirabelleshop/cart-backend/pkg/config"
	"github.com/mirabelleshop/cart-backend/pkg/db"
	"github.com/mirabelleshop/cart-backend/pkg/logger"
	"github.com/mirabelleshop/cart-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionTokens *cartservice.SessionTokens,
	cartService cartservice.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	mutationPolicy := middleware.NewRateLimitPolicy(
		"cart_mutation",
		cfg.RateLimit.MutationWindow,
		cfg.RateLimit.MutationLimit,
	)
	throttle := middleware.RateLimit(mutationPolicy, redisClient, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Get("/ping", controllers.PublicPing())
	r.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))

	session := middleware.CartSession(sessionTokens, cfg.Redis.SessionTTL, logg)

	r.Route("/v1/cart", func(r chi.Router) {
		r.Use(session)

		r.Get("/", cartcontrollers.Fetch(cartService, logg))
		r.With(throttle).Delete("/", cartcontrollers.Clear(cartService, logg))

		r.Route("/lines", func(r chi.Router) {
			r.Use(throttle)
			r.Post("/", cartcontrollers.AddLine(cartService, logg))
			r.Delete("/{lineID}", cartcontrollers.RemoveLine(cartService, logg))
			r.Patch("/{lineID}", cartcontrollers.UpdateLine(cartService, logg))
		})

		r.With(throttle).Post("/promotions", cartcontrollers.ApplyPromotions(cartService, logg))
		r.With(throttle).Post("/rewards", cartcontrollers.ApplyRewards(cartService, logg))
		r.With(throttle).Put("/shipping-method", cartcontrollers.SetShippingMethod(cartService, logg))
	})

	return r
}
