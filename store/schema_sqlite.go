package store

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS plans (
    id                  TEXT PRIMARY KEY,
    inbound_plan_id     TEXT NOT NULL DEFAULT '',
    destination_country TEXT NOT NULL DEFAULT '',
    shipping_mode       TEXT NOT NULL DEFAULT '',
    placement_option_id TEXT NOT NULL DEFAULT '',
    body                TEXT NOT NULL DEFAULT '{}',
    created_at          TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    updated_at          TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_plans_inbound ON plans(inbound_plan_id);

CREATE TABLE IF NOT EXISTS plan_summaries (
    plan_id             TEXT PRIMARY KEY,
    inbound_plan_id     TEXT NOT NULL DEFAULT '',
    placement_option_id TEXT NOT NULL DEFAULT '',
    confirmed           INTEGER NOT NULL DEFAULT 0,
    status              INTEGER NOT NULL DEFAULT 0,
    code                TEXT NOT NULL DEFAULT '',
    trace_id            TEXT NOT NULL DEFAULT '',
    body                TEXT NOT NULL DEFAULT '{}',
    confirmed_at        TEXT,
    updated_at          TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_plan_summaries_confirmed ON plan_summaries(confirmed);

CREATE TABLE IF NOT EXISTS confirmation_history (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    plan_id     TEXT NOT NULL,
    trace_id    TEXT NOT NULL DEFAULT '',
    step        TEXT NOT NULL,
    status      INTEGER NOT NULL DEFAULT 0,
    outcome     TEXT NOT NULL DEFAULT '',
    detail      TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_confirmation_history_plan ON confirmation_history(plan_id);

CREATE TABLE IF NOT EXISTS outbox (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    topic       TEXT NOT NULL,
    payload     BLOB NOT NULL,
    msg_type    TEXT NOT NULL DEFAULT '',
    plan_id     TEXT NOT NULL DEFAULT '',
    retries     INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    sent_at     TEXT
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at) WHERE sent_at IS NULL;

CREATE TABLE IF NOT EXISTS audit_log (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_type TEXT NOT NULL,
    entity_id   TEXT NOT NULL DEFAULT '',
    action      TEXT NOT NULL,
    old_value   TEXT NOT NULL DEFAULT '',
    new_value   TEXT NOT NULL DEFAULT '',
    actor       TEXT NOT NULL DEFAULT 'system',
    created_at  TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id);
`
