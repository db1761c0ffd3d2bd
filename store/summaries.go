package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"inboundcore/inbound"
)

// GetSummary returns inbound.ErrPlanNotFound when no run was recorded.
func (db *DB) GetSummary(ctx context.Context, planID string) (*inbound.Summary, error) {
	var body []byte
	err := db.QueryRowContext(ctx, db.Q(`SELECT body FROM plan_summaries WHERE plan_id=?`), planID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inbound.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get summary %s: %w", planID, err)
	}
	var s inbound.Summary
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("decode summary %s: %w", planID, err)
	}
	return &s, nil
}

// SaveSummary replaces the plan's summary and audits the change of outcome.
func (db *DB) SaveSummary(ctx context.Context, planID string, s *inbound.Summary) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode summary %s: %w", planID, err)
	}
	old, err := db.GetSummary(ctx, planID)
	if err != nil && !errors.Is(err, inbound.ErrPlanNotFound) {
		return err
	}

	var confirmedAt any
	if s.ConfirmedAt != nil {
		confirmedAt = s.ConfirmedAt.UTC().Format("2006-01-02 15:04:05")
	}
	_, err = db.ExecContext(ctx, db.Q(`INSERT INTO plan_summaries (plan_id, inbound_plan_id, placement_option_id, confirmed, status, code, trace_id, body, confirmed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (plan_id) DO UPDATE SET inbound_plan_id=excluded.inbound_plan_id, placement_option_id=excluded.placement_option_id,
			confirmed=excluded.confirmed, status=excluded.status, code=excluded.code, trace_id=excluded.trace_id,
			body=excluded.body, confirmed_at=excluded.confirmed_at, updated_at=`+db.dialect.Now()),
		planID, s.InboundPlanID, s.PlacementOptionID, s.Confirmed, s.Status, s.Code, s.TraceID, string(body), confirmedAt)
	if err != nil {
		return fmt.Errorf("save summary %s: %w", planID, err)
	}

	action := "run_failed"
	if s.Confirmed {
		action = "confirmed"
	} else if s.Code == "" {
		action = "previewed"
	}
	return db.AppendAudit(ctx, "plan_summary", planID, action, outcomeOf(old), outcomeOf(s), "system")
}

// ConfirmedPlanIDs lists plans whose last run booked transportation.
func (db *DB) ConfirmedPlanIDs(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, db.Q(`SELECT plan_id FROM plan_summaries WHERE confirmed=`+db.dialect.BoolTrue()+` ORDER BY plan_id`))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func outcomeOf(s *inbound.Summary) string {
	if s == nil {
		return ""
	}
	if s.Code != "" {
		return fmt.Sprintf("%d %s", s.Status, s.Code)
	}
	return fmt.Sprintf("%d confirmed=%t", s.Status, s.Confirmed)
}
