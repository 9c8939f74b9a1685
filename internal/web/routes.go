package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/rohan1205/NeuraAttend/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	attendanceHandler := handlers.NewAttendanceHandler(s.deps.Pipeline, s.deps.Ledger)
	galleryHandler := handlers.NewGalleryHandler(s.deps.Gallery, s.config.Matcher.Threshold)
	configHandler := handlers.NewConfigHandler(s.config)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Attendance
		r.Post("/attendance/mark", attendanceHandler.Mark)
		r.Get("/attendance", attendanceHandler.List)

		// Gallery
		r.Get("/gallery", galleryHandler.List)

		// Config
		r.Get("/config", configHandler.Get)
	})

	// Paths used by the original camera page
	s.router.Post("/mark-attendance", attendanceHandler.Mark)
	s.router.Get("/attendance", attendanceHandler.List)
}
