package router

import (
	"net/http"

	"storefront-api/internal/handler"
	"storefront-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler         *handler.Handler
	SessionHandler  *handler.SessionHandler
	ItemHandler     *handler.ItemHandler
	MarketHandler   *handler.MarketHandler
	RowHandler      *handler.RowHandler
	ArticleHandler  *handler.ArticleHandler
	AdminHandler    *handler.AdminHandler
	AuthMiddleware  func(http.Handler) http.Handler
	AdminMiddleware func(http.Handler) http.Handler
	Logger          logrus.FieldLogger
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.NewRecovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.NewLogging(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-Token", "X-Login-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// PUBLIC routes (no auth required)
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}
		if cfg.SessionHandler != nil {
			r.Post("/sessions", cfg.SessionHandler.Login)
		}

		// AUTHENTICATED routes (session token in X-Token)
		r.Group(func(r chi.Router) {
			if cfg.AuthMiddleware != nil {
				r.Use(cfg.AuthMiddleware)
			}

			if cfg.SessionHandler != nil {
				r.Get("/sessions/me", cfg.SessionHandler.Me)
				r.Get("/cart", cfg.SessionHandler.Cart)
				r.Put("/cart/{item_id}", cfg.SessionHandler.SetCartItem)
			}

			if cfg.ItemHandler != nil {
				r.Get("/items/{item_id}", cfg.ItemHandler.GetItem)
			}

			if cfg.MarketHandler != nil {
				r.Route("/market", func(r chi.Router) {
					r.Get("/listings", cfg.MarketHandler.GetListings)
					r.Post("/listings", cfg.MarketHandler.CreateListing)
					r.Post("/purchases", cfg.MarketHandler.Purchase)
				})
				r.Get("/account", cfg.MarketHandler.GetAccount)
				r.Get("/account/inventory", cfg.MarketHandler.GetInventory)
			}

			if cfg.RowHandler != nil {
				r.Get("/rows/{row_id}", cfg.RowHandler.GetRow)
			}

			if cfg.ArticleHandler != nil {
				r.Route("/articles", func(r chi.Router) {
					r.Get("/", cfg.ArticleHandler.ListArticles)
					r.Post("/", cfg.ArticleHandler.PostArticle)
					r.Post("/{article_id}/vote", cfg.ArticleHandler.Vote)
					r.Put("/{article_id}/groups", cfg.ArticleHandler.UpdateGroups)
				})
				r.Get("/groups/{group}/articles", cfg.ArticleHandler.GroupArticles)
			}
		})

		// ADMIN routes (X-Login-Key)
		if cfg.AdminHandler != nil {
			r.Route("/admin", func(r chi.Router) {
				if cfg.AdminMiddleware != nil {
					r.Use(cfg.AdminMiddleware)
				}
				r.Get("/stats", cfg.AdminHandler.GetStats)
				r.Put("/rows/{row_id}", cfg.AdminHandler.PutRow)
				r.Post("/rows/{row_id}/schedule", cfg.AdminHandler.ScheduleRow)
				r.Post("/grants", cfg.AdminHandler.Grant)
			})
		}
	})

	return r
}
