package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/fieldreport/internal/web/handlers"
	"github.com/kozaktomas/fieldreport/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	sessionsHandler := handlers.NewSessionsHandler(s.sessionManager)
	imagesHandler := handlers.NewImagesHandler()
	exportHandler := handlers.NewExportHandler(s.exporter, s.config.Export.Quality)
	draftsHandler := handlers.NewDraftsHandler(s.store)
	statsHandler := handlers.NewStatsHandler(s.store)

	// Health check (no session required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", sessionsHandler.Create)

		// Stored data is shared by all sessions
		r.Get("/drafts", draftsHandler.List)
		r.Get("/drafts/{id}", draftsHandler.Get)
		r.Delete("/drafts/{id}", draftsHandler.Delete)
		r.Get("/stats", statsHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(s.sessionManager))

			r.Get("/session", sessionsHandler.Get)
			r.Delete("/session", sessionsHandler.Delete)
			r.Post("/session/reset", sessionsHandler.Reset)
			r.Put("/session/record", sessionsHandler.UpdateRecord)
			r.Get("/session/name", sessionsHandler.Name)

			// Images and slots
			r.Post("/session/images", imagesHandler.Upload)
			r.Get("/session/images/{id}", imagesHandler.Image)
			r.Put("/session/images/{id}/caption", imagesHandler.Caption)
			r.Post("/session/slots/swap", imagesHandler.Swap)
			r.Put("/session/slots/{position}", imagesHandler.Replace)
			r.Delete("/session/slots/{position}", imagesHandler.Delete)

			// Drafts
			r.Post("/session/draft", draftsHandler.Save)
			r.Post("/session/draft/{id}", draftsHandler.Load)

			// Export
			r.Post("/session/export", exportHandler.Generate)
			r.Get("/session/export/last", exportHandler.Last)
			r.Get("/session/export/last/pdf", exportHandler.Download)
			r.Post("/session/export/retry", exportHandler.Retry)
		})
	})
}
