package store

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS plans (
    id                  TEXT PRIMARY KEY,
    inbound_plan_id     TEXT NOT NULL DEFAULT '',
    destination_country TEXT NOT NULL DEFAULT '',
    shipping_mode       TEXT NOT NULL DEFAULT '',
    placement_option_id TEXT NOT NULL DEFAULT '',
    body                JSONB NOT NULL DEFAULT '{}',
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_plans_inbound ON plans(inbound_plan_id);

CREATE TABLE IF NOT EXISTS plan_summaries (
    plan_id             TEXT PRIMARY KEY,
    inbound_plan_id     TEXT NOT NULL DEFAULT '',
    placement_option_id TEXT NOT NULL DEFAULT '',
    confirmed           BOOLEAN NOT NULL DEFAULT FALSE,
    status              INTEGER NOT NULL DEFAULT 0,
    code                TEXT NOT NULL DEFAULT '',
    trace_id            TEXT NOT NULL DEFAULT '',
    body                JSONB NOT NULL DEFAULT '{}',
    confirmed_at        TIMESTAMPTZ,
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_plan_summaries_confirmed ON plan_summaries(confirmed);

CREATE TABLE IF NOT EXISTS confirmation_history (
    id          BIGSERIAL PRIMARY KEY,
    plan_id     TEXT NOT NULL,
    trace_id    TEXT NOT NULL DEFAULT '',
    step        TEXT NOT NULL,
    status      INTEGER NOT NULL DEFAULT 0,
    outcome     TEXT NOT NULL DEFAULT '',
    detail      TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_confirmation_history_plan ON confirmation_history(plan_id);

CREATE TABLE IF NOT EXISTS outbox (
    id          BIGSERIAL PRIMARY KEY,
    topic       TEXT NOT NULL,
    payload     BYTEA NOT NULL,
    msg_type    TEXT NOT NULL DEFAULT '',
    plan_id     TEXT NOT NULL DEFAULT '',
    retries     INTEGER NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    sent_at     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at) WHERE sent_at IS NULL;

CREATE TABLE IF NOT EXISTS audit_log (
    id          BIGSERIAL PRIMARY KEY,
    entity_type TEXT NOT NULL,
    entity_id   TEXT NOT NULL DEFAULT '',
    action      TEXT NOT NULL,
    old_value   TEXT NOT NULL DEFAULT '',
    new_value   TEXT NOT NULL DEFAULT '',
    actor       TEXT NOT NULL DEFAULT 'system',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id);
`
