package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"inboundcore/inbound"
)

// SavePlan stages or replaces a plan. Its last summary is kept in
// plan_summaries and is not touched here.
func (db *DB) SavePlan(ctx context.Context, p *inbound.Plan) error {
	staged := *p
	staged.LastSummary = nil
	body, err := json.Marshal(&staged)
	if err != nil {
		return fmt.Errorf("encode plan %s: %w", p.ID, err)
	}
	_, err = db.ExecContext(ctx, db.Q(`INSERT INTO plans (id, inbound_plan_id, destination_country, shipping_mode, placement_option_id, body)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET inbound_plan_id=excluded.inbound_plan_id, destination_country=excluded.destination_country,
			shipping_mode=excluded.shipping_mode, placement_option_id=excluded.placement_option_id, body=excluded.body,
			updated_at=`+db.dialect.Now()),
		p.ID, p.InboundPlanID, p.DestinationCountry, p.ShippingMode, p.PlacementOptionID, string(body))
	if err != nil {
		return fmt.Errorf("save plan %s: %w", p.ID, err)
	}
	return nil
}

// GetPlan loads a staged plan with its last summary. A plan that was never
// staged but already has a summary is returned as a bare plan carrying it.
func (db *DB) GetPlan(ctx context.Context, id string) (*inbound.Plan, error) {
	var body []byte
	var updatedAt any
	err := db.QueryRowContext(ctx, db.Q(`SELECT body, updated_at FROM plans WHERE id=?`), id).Scan(&body, &updatedAt)
	var p *inbound.Plan
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("get plan %s: %w", id, err)
	default:
		p = &inbound.Plan{}
		if err := json.Unmarshal(body, p); err != nil {
			return nil, fmt.Errorf("decode plan %s: %w", id, err)
		}
		p.ID = id
		p.UpdatedAt = parseTime(updatedAt)
	}

	s, err := db.GetSummary(ctx, id)
	if err != nil && !errors.Is(err, inbound.ErrPlanNotFound) {
		return nil, err
	}
	if p == nil {
		if s == nil {
			return nil, inbound.ErrPlanNotFound
		}
		p = &inbound.Plan{ID: id, InboundPlanID: s.InboundPlanID, UpdatedAt: s.UpdatedAt}
	}
	p.LastSummary = s
	return p, nil
}

// ListPlans returns the most recently updated staged plans.
func (db *DB) ListPlans(ctx context.Context, limit int) ([]*inbound.Plan, error) {
	rows, err := db.QueryContext(ctx, db.Q(`SELECT p.id, p.body, p.updated_at, s.body FROM plans p
		LEFT JOIN plan_summaries s ON s.plan_id = p.id
		ORDER BY p.updated_at DESC, p.id LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var plans []*inbound.Plan
	for rows.Next() {
		var id string
		var body, summary []byte
		var updatedAt any
		if err := rows.Scan(&id, &body, &updatedAt, &summary); err != nil {
			return nil, err
		}
		p := &inbound.Plan{}
		if err := json.Unmarshal(body, p); err != nil {
			return nil, fmt.Errorf("decode plan %s: %w", id, err)
		}
		p.ID = id
		p.UpdatedAt = parseTime(updatedAt)
		if len(summary) > 0 {
			p.LastSummary = &inbound.Summary{}
			if err := json.Unmarshal(summary, p.LastSummary); err != nil {
				return nil, fmt.Errorf("decode summary %s: %w", id, err)
			}
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (db *DB) DeletePlan(ctx context.Context, id string) error {
	if _, err := db.ExecContext(ctx, db.Q(`DELETE FROM plans WHERE id=?`), id); err != nil {
		return fmt.Errorf("delete plan %s: %w", id, err)
	}
	return db.AppendAudit(ctx, "plan", id, "deleted", "", "", "system")
}
