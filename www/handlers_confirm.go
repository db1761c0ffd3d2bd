package www

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"inboundcore/inbound"
)

func (h *Handlers) apiConfirm(w http.ResponseWriter, r *http.Request) {
	var req inbound.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	res, err := h.engine.Confirm(r.Context(), req)
	h.writeResult(w, res, err)
}

// apiConfirmPlan confirms a staged plan. The body is optional and overrides
// the staged fields it sets.
func (h *Handlers) apiConfirmPlan(w http.ResponseWriter, r *http.Request) {
	var req inbound.ConfirmRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.jsonError(w, "invalid request: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	req.RequestID = chi.URLParam(r, "id")
	if v := r.URL.Query().Get("confirm"); v != "" {
		req.Confirm = v == "true" || v == "1"
	}
	res, err := h.engine.Confirm(r.Context(), req)
	h.writeResult(w, res, err)
}

// writeResult sends the run result with the status its outcome maps to.
// Pending outcomes carry a Retry-After header.
func (h *Handlers) writeResult(w http.ResponseWriter, res *inbound.Result, err error) {
	if res == nil {
		h.jsonError(w, "no result", http.StatusInternalServerError)
		return
	}
	if e := inbound.AsError(err, 0); e != nil && e.RetryAfterS > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(e.RetryAfterS))
	}
	h.jsonStatus(w, res.Status, res)
}
