package store

import (
	"context"
	"time"

	"inboundcore/inbound"
)

// HistoryEntry is one orchestrator step recorded against a plan.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	PlanID    string    `json:"plan_id"`
	TraceID   string    `json:"trace_id"`
	Step      string    `json:"step"`
	Status    int       `json:"status"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

func (db *DB) AppendHistory(ctx context.Context, planID, traceID string, s inbound.Step) error {
	_, err := db.ExecContext(ctx, db.Q(`INSERT INTO confirmation_history (plan_id, trace_id, step, status, outcome, detail) VALUES (?, ?, ?, ?, ?, ?)`),
		planID, traceID, s.Name, s.Status, s.Outcome, s.Detail)
	return err
}

// ListHistory returns a plan's steps oldest first.
func (db *DB) ListHistory(ctx context.Context, planID string) ([]*HistoryEntry, error) {
	rows, err := db.QueryContext(ctx, db.Q(`SELECT id, plan_id, trace_id, step, status, outcome, detail, created_at FROM confirmation_history WHERE plan_id=? ORDER BY id`), planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var createdAt any
		if err := rows.Scan(&e.ID, &e.PlanID, &e.TraceID, &e.Step, &e.Status, &e.Outcome, &e.Detail, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
