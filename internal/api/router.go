package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/InkForge/internal/api/handlers"
	"github.com/ramonehamilton/InkForge/internal/api/response"
	"github.com/ramonehamilton/InkForge/internal/version"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint (no versioning)
	s.router.Get("/health", s.healthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		if s.builder != nil {
			deckHandler := handlers.NewDeckHandler(s.builder, s.defaults, s.metrics, s.logger)
			r.Route("/decks", func(r chi.Router) {
				r.Post("/build", deckHandler.BuildDeck)
			})
		}

		if s.cards != nil {
			cardHandler := handlers.NewCardHandler(s.cards)
			r.Route("/cards", func(r chi.Router) {
				r.Post("/search", cardHandler.SearchCards) // POST for complex filters
				r.Get("/{cardID}", cardHandler.GetCard)
			})
		}

		if s.metrics != nil {
			r.Get("/metrics", s.buildMetrics)
		}
	})
}

func (s *Server) buildMetrics(w http.ResponseWriter, r *http.Request) {
	response.Success(w, s.metrics.GetStats())
}

// healthCheck returns server health status.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":  "healthy",
		"service": "inkforge-api",
		"version": version.GetVersion(),
	}
	if s.health != nil {
		for k, v := range s.health(r.Context()) {
			body[k] = v
		}
	}
	response.JSON(w, http.StatusOK, body)
}
