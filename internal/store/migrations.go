package store

const schema = `
-- Registered clusters from config
CREATE TABLE IF NOT EXISTS clusters (
    name        TEXT PRIMARY KEY,
    source      TEXT NOT NULL,
    host        TEXT,
    first_seen  INTEGER NOT NULL,
    last_seen   INTEGER NOT NULL
);

-- One row per poll
CREATE TABLE IF NOT EXISTS status_history (
    ts             INTEGER NOT NULL,
    cluster        TEXT    NOT NULL,
    status         TEXT    NOT NULL,
    epoch          TEXT    NOT NULL,
    dc             TEXT    NOT NULL,
    resource_count INTEGER NOT NULL,
    nodes_online   INTEGER NOT NULL,
    nodes_total    INTEGER NOT NULL,
    errors         INTEGER NOT NULL,
    PRIMARY KEY (ts, cluster)
) WITHOUT ROWID;

-- Node state transitions
CREATE TABLE IF NOT EXISTS node_states (
    ts       INTEGER NOT NULL,
    cluster  TEXT    NOT NULL,
    node     TEXT    NOT NULL,
    state    TEXT    NOT NULL,
    PRIMARY KEY (ts, cluster, node)
) WITHOUT ROWID;

-- Resource state transitions
CREATE TABLE IF NOT EXISTS resource_states (
    ts        INTEGER NOT NULL,
    cluster   TEXT    NOT NULL,
    resource  TEXT    NOT NULL,
    state     TEXT    NOT NULL,
    PRIMARY KEY (ts, cluster, resource)
) WITHOUT ROWID;

-- Alert log
CREATE TABLE IF NOT EXISTS alert_log (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    ts          INTEGER NOT NULL,
    alert_type  TEXT    NOT NULL,
    cluster     TEXT,
    subject     TEXT    NOT NULL,
    message     TEXT    NOT NULL,
    severity    TEXT    NOT NULL
);

-- Secondary indexes
CREATE INDEX IF NOT EXISTS idx_status_cluster ON status_history(cluster, ts);
CREATE INDEX IF NOT EXISTS idx_node_subject ON node_states(cluster, node, ts);
CREATE INDEX IF NOT EXISTS idx_resource_subject ON resource_states(cluster, resource, ts);
CREATE INDEX IF NOT EXISTS idx_alert_ts ON alert_log(ts);
`
