package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/stacksift/api/internal/auth"
	"github.com/stacksift/api/internal/config"
	"github.com/stacksift/api/internal/handler"
	"github.com/stacksift/api/internal/ratelimit"
	"github.com/stacksift/api/internal/user"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const apiPrefix = "/api/v1"

// NewRouter creates a new HTTP router with all routes registered.
// limiter may be nil to disable rate limiting.
func NewRouter(h *handler.Handler, tokens *auth.TokenService, limiter *ratelimit.Limiter, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			ExposedHeaders:   []string{"X-Request-Id", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           86400,
		}))
	}

	if limiter != nil {
		r.Use(ratelimit.Middleware(limiter))
	}
	r.Use(auth.TokenMiddleware(tokens))

	r.Get("/", h.Root)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route(apiPrefix, func(r chi.Router) {
		r.Get("/avatars/{name}", h.ServeAvatar)
		r.Post("/contact", h.Contact)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/refresh-token", h.RefreshToken)
			r.Post("/google", h.GoogleLogin)
			r.With(auth.RequireAuth()).Post("/verify-password", h.VerifyPassword)
		})

		r.Route("/post", func(r chi.Router) {
			r.Get("/", h.ListWebsites)
			r.Post("/ai-search", h.AISearch)
			r.Get("/{id}", h.GetWebsite)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAuth())
				r.Post("/addWebsite", h.AddWebsite)
				r.Post("/{id}/upvote", h.ToggleUpvote)
			})
			r.With(auth.RequireRole(user.RoleAdmin)).Put("/{id}/approve", h.ApproveWebsite)
		})

		r.Route("/user", func(r chi.Router) {
			r.Use(auth.RequireAuth())
			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)
			r.Post("/avatar", h.UploadAvatar)
			r.Delete("/avatar", h.DeleteAvatar)
			r.Get("/stats", h.GetStats)
		})

		r.Route("/collections", func(r chi.Router) {
			r.Use(auth.RequireAuth())
			r.Get("/", h.ListCollections)
			r.Post("/", h.CreateCollection)
			r.Put("/{id}/add", h.AddToCollection)
			r.Put("/{id}/remove", h.RemoveFromCollection)
			r.Delete("/{id}", h.DeleteCollection)
		})
	})

	return otelhttp.NewHandler(r, "stacksift-api",
		otelhttp.WithFilter(func(r *http.Request) bool { return r.URL.Path != "/health" }),
	)
}

// RateLimitRules maps the configured endpoint limits onto their routes.
func RateLimitRules(cfg config.RateLimitConfig) []ratelimit.Rule {
	rule := func(method, path string, e config.RateLimitEndpoint) ratelimit.Rule {
		return ratelimit.Rule{Method: method, Path: apiPrefix + path, Limit: e.Limit, Window: e.Window}
	}
	all := []ratelimit.Rule{
		rule(http.MethodPost, "/auth/login", cfg.Login),
		rule(http.MethodPost, "/auth/google", cfg.Login),
		rule(http.MethodPost, "/auth/register", cfg.Register),
		rule(http.MethodPost, "/post/ai-search", cfg.AISearch),
		rule(http.MethodPost, "/post/addWebsite", cfg.AddWebsite),
		rule(http.MethodPost, "/contact", cfg.Contact),
	}

	// A zero limit leaves the endpoint unlimited.
	rules := all[:0]
	for _, r := range all {
		if r.Limit > 0 && r.Window > 0 {
			rules = append(rules, r)
		}
	}
	return rules
}
