package www

import (
	"net/http"
)

func (h *Handlers) apiHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := h.engine.Health(r.Context())
	code := http.StatusOK
	if health.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	h.jsonStatus(w, code, map[string]any{
		"health":      health,
		"sse_clients": h.eventHub.ClientCount(),
	})
}

func (h *Handlers) apiListAudit(w http.ResponseWriter, r *http.Request) {
	db := h.engine.DB()
	var (
		entries any
		err     error
	)
	if typ, id := r.URL.Query().Get("entity_type"), r.URL.Query().Get("entity_id"); typ != "" && id != "" {
		entries, err = db.ListEntityAudit(r.Context(), typ, id)
	} else {
		entries, err = db.ListAuditLog(r.Context(), queryLimit(r, 100))
	}
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, entries)
}
