package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter assembles the full HTTP surface: REST API, websocket endpoint,
// and health check.
func NewRouter(api *APIHandler, ws *WSHandler) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws", ws.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", api.Register)
		r.Post("/auth/login", api.Login)

		r.Group(func(r chi.Router) {
			r.Use(api.RequireAuth)
			r.Post("/exams", api.CreateExam)
			r.Get("/exams", api.ListExams)
			r.Get("/exams/{examID}", api.GetExam)
			r.Put("/exams/{examID}", api.UpdateExam)
			r.Delete("/exams/{examID}", api.DeleteExam)
			r.Post("/rooms", api.CreateRoom)
		})
	})

	return r
}
