package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"socialmedia_api/internal/handler"
	"socialmedia_api/internal/httputil"
	authmw "socialmedia_api/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	FollowHandler       *handler.FollowHandler
	FeedHandler         *handler.FeedHandler
	PostHandler         *handler.PostHandler
	CommentHandler      *handler.CommentHandler
	NotificationHandler *handler.NotificationHandler
	JWTSecret           string
	CORSOrigins         []string
	// RateLimitRPM caps mutating requests per user (or IP when anonymous). Zero disables it.
	RateLimitRPM int
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(authmw.RequestID)
	r.Use(authmw.Observe)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	optional := authmw.OptionalAuthMiddleware(cfg.JWTSecret)
	limited := mutationLimiter(cfg.RateLimitRPM)

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Use(limited)
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
		r.Post("/refresh", cfg.AuthHandler.Refresh)
		r.Post("/logout", cfg.AuthHandler.Logout)
		r.With(authmw.AuthMiddleware(cfg.JWTSecret)).Post("/logout-all", cfg.AuthHandler.LogoutAll)
	})

	// Reads with optional authentication for is_following / is_liked
	r.Group(func(r chi.Router) {
		r.Use(optional)

		r.Get("/users/search", cfg.UserHandler.Search)
		r.Get("/users/{id}", cfg.UserHandler.GetProfile)
		r.Get("/users/{id}/followers", cfg.FollowHandler.GetFollowers)
		r.Get("/users/{id}/following", cfg.FollowHandler.GetFollowing)
		r.Get("/users/{id}/posts", cfg.PostHandler.GetUserPosts)

		r.Get("/posts", cfg.PostHandler.List)
		r.Get("/posts/{id}", cfg.PostHandler.GetByID)
		r.Get("/posts/{id}/comments", cfg.CommentHandler.List)
		r.Get("/posts/{id}/likes", cfg.PostHandler.GetLikers)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		r.Get("/me", cfg.UserHandler.Me)
		r.Get("/feed", cfg.FeedHandler.GetFeed)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", cfg.NotificationHandler.List)
			r.Get("/unread-count", cfg.NotificationHandler.GetUnreadCount)
			r.Post("/read-all", cfg.NotificationHandler.MarkAllRead)
			r.Post("/{id}/read", cfg.NotificationHandler.MarkRead)
		})

		r.Group(func(r chi.Router) {
			r.Use(limited)

			r.Put("/me", cfg.UserHandler.UpdateMe)

			r.Post("/follow/{id}", cfg.FollowHandler.Follow)
			r.Post("/unfollow/{id}", cfg.FollowHandler.Unfollow)
			r.Post("/users/{id}/follow", cfg.FollowHandler.Follow)
			r.Delete("/users/{id}/follow", cfg.FollowHandler.Unfollow)

			r.Post("/posts", cfg.PostHandler.Create)
			r.Put("/posts/{id}", cfg.PostHandler.Update)
			r.Delete("/posts/{id}", cfg.PostHandler.Delete)
			r.Post("/posts/{id}/like", cfg.PostHandler.Like)
			r.Post("/posts/{id}/unlike", cfg.PostHandler.Unlike)
			r.Delete("/posts/{id}/like", cfg.PostHandler.Unlike)
			r.Post("/posts/{id}/comments", cfg.CommentHandler.Create)
			r.Put("/comments/{id}", cfg.CommentHandler.Update)
			r.Delete("/comments/{id}", cfg.CommentHandler.Delete)

			r.Post("/devices/token", cfg.NotificationHandler.RegisterToken)
			r.Delete("/devices/token", cfg.NotificationHandler.RemoveToken)
		})
	})

	return r
}

// mutationLimiter keys on the authenticated user when there is one, else on
// the client IP.
func mutationLimiter(rpm int) func(http.Handler) http.Handler {
	if rpm <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(rpm, time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if id, ok := authmw.GetUserIDFromContext(r.Context()); ok {
				return "user:" + strconv.FormatInt(id, 10), nil
			}
			return httprate.KeyByIP(r)
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httputil.WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
		}),
	)
}
