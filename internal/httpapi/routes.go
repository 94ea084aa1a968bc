package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

func SetupRoutes(h *Handlers, verifier TokenVerifier, wsHandler http.HandlerFunc) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.AllowAll().Handler)

	r.Route("/api/duel", func(r chi.Router) {
		r.Post("/create", RequireAuth(verifier, h.CreateDuel))
		r.Post("/submit", RequireAuth(verifier, h.SubmitCode))
		r.Get("/ongoing/mine", RequireAuth(verifier, h.ListOngoingMine))
		r.Get("/ongoing/all", RequireAuth(verifier, h.ListOngoingAll))
		r.Get("/{id}/opponent-email", h.OpponentEmail)
	})

	r.Get("/healthz", Healthz)
	r.Get("/ws", wsHandler)
	return r
}
