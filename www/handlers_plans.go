package www

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"inboundcore/inbound"
)

func (h *Handlers) apiListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.engine.Plans().ListPlans(r.Context(), queryLimit(r, 100))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if plans == nil {
		plans = []*inbound.Plan{}
	}
	h.jsonOK(w, plans)
}

func (h *Handlers) apiGetPlan(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.Plans().GetPlan(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, inbound.ErrPlanNotFound) {
		h.jsonError(w, "plan not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, p)
}

func (h *Handlers) apiStagePlan(w http.ResponseWriter, r *http.Request) {
	var p inbound.Plan
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.jsonError(w, "invalid plan: "+err.Error(), http.StatusBadRequest)
		return
	}
	p.ID = chi.URLParam(r, "id")
	if p.InboundPlanID == "" {
		h.jsonError(w, "inboundPlanId is required", http.StatusBadRequest)
		return
	}
	if err := h.engine.StagePlan(r.Context(), &p, actor(r)); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]string{"status": "ok", "id": p.ID})
}

func (h *Handlers) apiDeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeletePlan(r.Context(), chi.URLParam(r, "id"), actor(r)); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiGetSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.engine.Plans().GetSummary(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, inbound.ErrPlanNotFound) {
		h.jsonError(w, "no summary for plan", http.StatusNotFound)
		return
	}
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, s)
}

func (h *Handlers) apiPlanHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.engine.DB().ListHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		h.jsonOK(w, []any{})
		return
	}
	h.jsonOK(w, entries)
}
