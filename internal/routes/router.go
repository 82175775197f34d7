package routes

import (
	"log/slog"
	"net/http"

	"studio_site/internal/clients/backend"
	"studio_site/internal/controllers"
	"studio_site/internal/metrics"
	"studio_site/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Controllers struct {
	Content *controllers.ContentController
	Admin   *controllers.AdminController
	Auth    *middleware.AdminMiddleware
}

func SetupRouter(log *slog.Logger, c Controllers, rec *metrics.Recorder, origins []string) *chi.Mux {
	r := newRouter(rec, origins)

	r.Handle("/metrics", rec.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(c.Auth.Identify)

		r.Get("/content", c.Content.GetContent)
		r.Get("/routes", c.Content.GetRoutes)
		r.Get("/search", c.Content.Search)

		r.Get("/games", c.Content.GetGames)
		r.Get("/games/{id}", c.Content.GetGame)
		r.Get("/studios/{id}", c.Content.GetStudio)
		r.Get("/studios/{studioID}/series/{seriesID}", c.Content.GetSeries)
		r.Get("/partners/{id}", c.Content.GetPartner)
		r.Get("/articles/{id}", c.Content.GetArticle)
		r.Get("/news/{id}", c.Content.GetArticle)

		r.Get("/sync", c.Content.GetSyncStatus)
		r.With(middleware.RequireAdmin).Post("/sync", c.Content.Resync)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", c.Admin.Login)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)

				r.Post("/logout", c.Admin.Logout)

				r.Route("/games", func(r chi.Router) {
					r.Post("/", c.Admin.CreateGame)
					r.Post("/import", c.Admin.ImportGame)
					r.Route("/{id}", func(r chi.Router) {
						r.Put("/", c.Admin.UpdateGame)
						r.Delete("/", c.Admin.DeleteGame)
					})
				})

				r.Route("/articles", func(r chi.Router) {
					r.Post("/", c.Admin.CreateArticle)
					r.Route("/{id}", func(r chi.Router) {
						r.Put("/", c.Admin.UpdateArticle)
						r.Delete("/", c.Admin.DeleteArticle)
					})
				})
			})
		})
	})

	log.Debug("api routes registered")

	return r
}

// SetupDBRouter serves the single-key document endpoint on its own listener.
func SetupDBRouter(log *slog.Logger, db *controllers.DBController, rec *metrics.Recorder, origins []string) *chi.Mux {
	r := newRouter(rec, origins)

	r.Handle("/metrics", rec.Handler())

	r.Route("/db", func(r chi.Router) {
		r.Get("/", db.Get)
		r.Post("/", db.Post)
		r.Get("/history", db.History)
	})

	log.Debug("db routes registered")

	return r
}

func newRouter(rec *metrics.Recorder, origins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics(rec))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", backend.HeaderAdminEmail},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	return r
}
