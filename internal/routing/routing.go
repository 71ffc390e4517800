package routing

import (
	"net/http"

	"communityd/internal/handlers"
	"communityd/internal/middleware"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Config holds the configuration needed for setting up routes
type Config struct {
	Handlers *handlers.Handler
	Logger   zerolog.Logger
}

// SetupRouter creates and configures the HTTP router with all routes and middleware
func SetupRouter(cfg Config) http.Handler {
	h := cfg.Handlers
	mux := http.NewServeMux()

	// Create CrossOriginProtection for CSRF protection on the write routes.
	// The session cookie is SameSite=Strict, this is a second layer.
	cop := http.NewCrossOriginProtection()

	// Public read routes
	mux.HandleFunc("GET /api/community/posts", h.HandlePostList)
	mux.HandleFunc("GET /api/community/posts/{id}", h.HandlePostGet)

	// Public write routes (all run through the submission gate)
	mux.Handle("POST /api/ask", cop.Handler(http.HandlerFunc(h.HandleAskCreate)))
	mux.Handle("POST /api/community/posts", cop.Handler(http.HandlerFunc(h.HandlePostCreate)))
	mux.Handle("POST /api/community/posts/{id}/comments", cop.Handler(http.HandlerFunc(h.HandleCommentCreate)))

	// Admin routes
	mux.Handle("POST /api/admin/login", cop.Handler(http.HandlerFunc(h.HandleAdminLogin)))
	mux.Handle("POST /api/admin/logout", cop.Handler(http.HandlerFunc(h.HandleAdminLogout)))
	mux.HandleFunc("GET /api/admin/moderation", h.HandleModerationQueue)
	mux.Handle("POST /api/admin/moderation/action", cop.Handler(http.HandlerFunc(h.HandleModerationAction)))

	// Operational endpoints
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Apply middleware in order (outermost first, innermost last)
	var handler http.Handler = mux

	// 1. Limit request body size (innermost - runs closest to the mux)
	handler = middleware.LimitBodyMiddleware(handler)

	// 2. Apply security headers
	handler = middleware.SecurityHeadersMiddleware(handler)

	// 3. Apply logging middleware (outermost - wraps everything)
	handler = middleware.LoggingMiddleware(cfg.Logger)(handler)

	return handler
}
