package engine

import (
	"context"
	"time"
)

// Health is the process status reported by the health endpoint.
type Health struct {
	Status        string     `json:"status"`
	Database      string     `json:"database"`
	Cache         string     `json:"cache"`
	Messaging     string     `json:"messaging"`
	SigningExpiry *time.Time `json:"signingExpiry,omitempty"`
	TokenExpiry   *time.Time `json:"tokenExpiry,omitempty"`
}

func (e *Engine) Health(ctx context.Context) Health {
	h := Health{Status: "ok", Database: "ok", Cache: "disabled", Messaging: "disabled"}

	if err := e.db.PingContext(ctx); err != nil {
		h.Database = err.Error()
		h.Status = "degraded"
	}
	if e.plans.CacheEnabled() {
		h.Cache = "ok"
		if err := e.plans.PingCache(ctx); err != nil {
			h.Cache = err.Error()
		}
	}
	if e.msgClient != nil {
		h.Messaging = "disconnected"
		if e.msgClient.IsConnected() {
			h.Messaging = "connected"
		}
	}
	if e.creds != nil {
		signing, token := e.creds.Expiries()
		if !signing.IsZero() {
			h.SigningExpiry = &signing
		}
		if !token.IsZero() {
			h.TokenExpiry = &token
		}
	}
	return h
}
