package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/chetan-code/taskcal/internal/auth"
	"github.com/chetan-code/taskcal/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig holds everything the HTTP surface depends on.
type RouterConfig struct {
	Authenticator *auth.Authenticator
	Tokens        *auth.TokenManager
	Tasks         *service.TaskService
	CORSOrigins   []string
	// GoogleEnabled mounts the external sign-in routes.
	GoogleEnabled bool
}

func NewRouter(cfg RouterConfig) http.Handler {
	ah := NewAuthHandler(cfg.Authenticator)
	th := NewTaskHandler(cfg.Tasks)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(loggerMW)
	r.Use(recoverMW)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", ah.Register)
			r.Post("/login", ah.Login)
			if cfg.GoogleEnabled {
				r.Get("/google", ah.BeginAuth)
				r.Get("/google/callback", ah.AuthCallback)
			}
		})

		//only requests with a valid bearer token reach a task handler,
		//unknown sub-paths still fall through to the 404 handler
		r.Route("/tasks", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(AuthMiddleware(cfg.Tokens))
				r.Get("/", th.List)
				r.Post("/", th.Create)
				r.Get("/{id}", th.Get)
				r.Put("/{id}", th.Update)
				r.Delete("/{id}", th.Delete)
			})
		})
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func loggerMW(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		//logging completion of a request
		slog.Info("http_request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"ip", r.RemoteAddr,
			"duration", time.Since(start).String(),
		)
	})
}

// recoverMW turns a panic in a handler into a plain 500 response.
func recoverMW(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.Error("handler_panic",
				"method", r.Method,
				"path", r.URL.Path,
				"panic", fmt.Sprint(rec),
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}()
		next.ServeHTTP(w, r)
	})
}
