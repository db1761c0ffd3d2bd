package store

import (
	"context"
	"time"
)

type OutboxMessage struct {
	ID        int64
	Topic     string
	Payload   []byte
	MsgType   string
	PlanID    string
	Retries   int
	CreatedAt time.Time
}

func (db *DB) EnqueueOutbox(ctx context.Context, topic string, payload []byte, msgType, planID string) error {
	_, err := db.ExecContext(ctx, db.Q(`INSERT INTO outbox (topic, payload, msg_type, plan_id) VALUES (?, ?, ?, ?)`),
		topic, payload, msgType, planID)
	return err
}

// ListPendingOutbox returns unsent messages oldest first, skipping those
// that already failed maxRetries times.
func (db *DB) ListPendingOutbox(ctx context.Context, limit, maxRetries int) ([]*OutboxMessage, error) {
	rows, err := db.QueryContext(ctx, db.Q(`SELECT id, topic, payload, msg_type, plan_id, retries, created_at FROM outbox WHERE sent_at IS NULL AND retries < ? ORDER BY id LIMIT ?`), maxRetries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []*OutboxMessage
	for rows.Next() {
		var m OutboxMessage
		var createdAt any
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload, &m.MsgType, &m.PlanID, &m.Retries, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(createdAt)
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

func (db *DB) AckOutbox(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, db.Q(`UPDATE outbox SET sent_at=`+db.dialect.Now()+` WHERE id=?`), id)
	return err
}

func (db *DB) IncrementOutboxRetries(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, db.Q(`UPDATE outbox SET retries=retries+1 WHERE id=?`), id)
	return err
}
