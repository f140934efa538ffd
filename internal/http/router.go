package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

type RouterConfig struct {
	Carts    CartService
	Products ProductService
	Users    AuthService
	Tokens   TokenValidator
	Identity IdentitySource
	Log      logrus.FieldLogger
	// RequestTimeout bounds every request; zero disables it.
	RequestTimeout time.Duration
	// Health reports whether the store is reachable. Nil means always healthy.
	Health func(ctx context.Context) error
}

// NewRouter builds the HTTP API. Every route is served at the root and
// again under /api.
func NewRouter(cfg RouterConfig) http.Handler {
	carts := NewCartHandler(cfg.Carts, cfg.Identity)
	products := NewProductHandler(cfg.Products)
	users := NewUserHandler(cfg.Users)
	requireAuth := RequireAuth(cfg.Tokens)

	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestLogger(cfg.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	routes := func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]string{"message": "Cosmic Backend Working"})
		})
		r.Get("/health", healthHandler(cfg.Health))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", products.List)
			r.Get("/search", products.Search)
			r.Get("/{id}", products.Get)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, RequireAdmin)
				r.Post("/new", products.Create)
				r.Put("/{id}", products.Update)
				r.Delete("/{id}", products.Delete)
			})
		})

		r.Route("/cart", func(r chi.Router) {
			if cfg.Identity != IdentityFromRequest {
				r.Use(requireAuth)
			}
			r.Get("/", carts.GetCart)
			r.Delete("/", carts.ClearCart)
			r.Post("/add", carts.AddItem)
			r.Put("/update/{productId}", carts.UpdateQuantity)
			r.Delete("/remove/{productId}", carts.RemoveItem)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", users.Login)
			r.Post("/new", users.Register)
		})
	}

	r.Group(routes)
	r.Route("/api", routes)

	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				loggerFrom(r.Context()).WithError(err).Warn("health check failed")
				respondJSON(w, http.StatusServiceUnavailable, StatusResponse{Status: "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
	}
}
