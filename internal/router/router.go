package router

import (
	"net/http"

	"steamboard-api/internal/handler"
	"steamboard-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	LibraryHandler *handler.LibraryHandler
	GameHandler    *handler.GameHandler
	ProfileHandler *handler.ProfileHandler
	AdminHandler   *handler.AdminHandler
	SteamProxy     http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	// Transparent Steam API forwarding, same mount the board UI uses
	if cfg.SteamProxy != nil {
		r.Handle("/api/steam/*", cfg.SteamProxy)
	}

	// Static files (board UI)
	fileServer := http.FileServer(http.Dir("./static"))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
		}

		if cfg.LibraryHandler != nil {
			r.Route("/library", func(r chi.Router) {
				r.Get("/", cfg.LibraryHandler.GetLibrary)
				r.Post("/refresh", cfg.LibraryHandler.Refresh)
				r.Post("/import", cfg.LibraryHandler.Import)
				r.Delete("/", cfg.LibraryHandler.Clear)
				r.Get("/events", cfg.LibraryHandler.Events)
			})
			r.Route("/columns", func(r chi.Router) {
				r.Post("/", cfg.LibraryHandler.AddColumn)
				r.Delete("/{name}", cfg.LibraryHandler.RemoveColumn)
			})
		}

		if cfg.GameHandler != nil {
			r.Route("/games/{appid}", func(r chi.Router) {
				r.Patch("/", cfg.GameHandler.Patch)
				r.Post("/refresh", cfg.GameHandler.Refresh)
			})
		}

		if cfg.ProfileHandler != nil {
			r.Get("/profile", cfg.ProfileHandler.Get)
			r.Put("/profile", cfg.ProfileHandler.Put)
			r.Get("/auth/steam/login-url", cfg.ProfileHandler.LoginURL)
		}

		if cfg.AdminHandler != nil {
			r.Get("/admin/stats", cfg.AdminHandler.GetStats)
		}
	})

	return r
}
