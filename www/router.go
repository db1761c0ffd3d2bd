// Package www serves the HTTP surface: the confirm endpoint, plan staging
// and read-back, and the SSE progress stream.
package www

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"inboundcore/engine"
)

type Handlers struct {
	engine   *engine.Engine
	eventHub *EventHub
}

func NewRouter(eng *engine.Engine) (http.Handler, func()) {
	hub := NewEventHub()
	hub.Start()
	hub.SetupEngineListeners(eng)

	h := &Handlers{
		engine:   eng,
		eventHub: hub,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5, "application/json"))

	r.Get("/events", hub.SSEHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.apiHealthCheck)
		r.Get("/audit", h.apiListAudit)
		r.Post("/confirm", h.apiConfirm)

		r.Get("/plans", h.apiListPlans)
		r.Route("/plans/{id}", func(r chi.Router) {
			r.Get("/", h.apiGetPlan)
			r.Put("/", h.apiStagePlan)
			r.Delete("/", h.apiDeletePlan)
			r.Post("/confirm", h.apiConfirmPlan)
			r.Get("/summary", h.apiGetSummary)
			r.Get("/history", h.apiPlanHistory)
		})
	})

	stopFn := func() {
		hub.Stop()
	}

	return r, stopFn
}
