package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Dosada05/inmatch/docs"
	"github.com/Dosada05/inmatch/handlers"
	"github.com/Dosada05/inmatch/metrics"
	"github.com/Dosada05/inmatch/middleware"
	"github.com/Dosada05/inmatch/models"
)

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
}

type Handlers struct {
	Auth         *handlers.AuthHandler
	Admin        *handlers.AdminHandler
	League       *handlers.LeagueHandler
	Match        *handlers.MatchHandler
	MatchDetails *handlers.MatchDetailsHandler
	Video        *handlers.VideoHandler
	WebSocket    *handlers.WebSocketHandler
	Health       *handlers.HealthHandler
}

func SetupRoutes(router chi.Router, opts Options, h Handlers) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(metrics.Middleware)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(opts.JWTSecret)
	// Изменяющие маршруты доступны любому администратору.
	editor := middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin)

	router.Get("/healthz", h.Health.Healthz)
	router.Handle("/metrics", metrics.Handler())
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	router.Get("/ws", h.WebSocket.ServeGlobal)
	router.Get("/ws/matches/{matchID}", h.WebSocket.ServeMatch)

	router.Route("/api", func(r chi.Router) {
		r.Route("/admins", func(r chi.Router) {
			r.Post("/login", h.Auth.Login)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Get("/me", h.Admin.Me)
				r.Get("/stats", h.Admin.Stats)
				r.Get("/", h.Admin.List)
				r.Post("/register", h.Admin.Register)
				r.Delete("/{id}", h.Admin.Delete)
			})
		})

		r.Route("/leagues", func(r chi.Router) {
			r.Get("/", h.League.ListLeagues)
			r.Get("/{id}", h.League.GetLeague)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, editor)
				r.Post("/", h.League.CreateLeague)
				r.Patch("/{id}", h.League.UpdateLeague)
				r.Delete("/{id}", h.League.DeleteLeague)
			})
		})

		r.Route("/matches", func(r chi.Router) {
			r.Get("/league/{leagueId}", h.Match.ListByLeague)
			r.Get("/{id}", h.Match.GetMatch)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, editor)
				r.Post("/", h.Match.CreateMatch)
				r.Patch("/{id}", h.Match.UpdateMatch)
				r.Patch("/{id}/status", h.Match.UpdateStatus)
				r.Delete("/{id}", h.Match.DeleteMatch)
			})
		})

		r.Route("/match-details/{matchId}", func(r chi.Router) {
			r.Get("/", h.MatchDetails.GetMatchDetails)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, editor)
				r.Post("/", h.MatchDetails.CreateMatchDetails)
				r.Patch("/", h.MatchDetails.UpdateMatchDetails)
				r.Delete("/videos/{videoId}", h.MatchDetails.RemoveVideo)
			})
		})

		r.Route("/videos", func(r chi.Router) {
			r.Get("/", h.Video.ListVideos)
			r.Get("/{id}", h.Video.GetVideo)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, editor)
				r.Post("/upload", h.Video.UploadVideo)
				r.Delete("/{id}", h.Video.DeleteVideo)
			})
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"the requested resource could not be found"}` + "\n"))
	})
}
