package sqlite

const schema = `
-- Run snapshots table
-- One row per completed aggregation run. The payload column carries the
-- full JSON snapshot (unique comments, per-query summaries, source
-- stats); the remaining columns are denormalized for listing and
-- filtering without unmarshaling the payload.
CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL UNIQUE,
    target INTEGER NOT NULL DEFAULT 0,
    unique_count INTEGER NOT NULL DEFAULT 0,
    total_comments INTEGER NOT NULL DEFAULT 0,
    total_replies INTEGER NOT NULL DEFAULT 0,
    grand_total INTEGER NOT NULL DEFAULT 0,
    successful_queries INTEGER NOT NULL DEFAULT 0,
    failed_queries INTEGER NOT NULL DEFAULT 0,
    target_achieved INTEGER NOT NULL DEFAULT 0,
    processing_seconds REAL NOT NULL DEFAULT 0,
    started_at DATETIME NOT NULL,
    completed_at DATETIME NOT NULL,
    payload TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_snapshots_run_id ON snapshots(run_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_completed_at ON snapshots(completed_at);

-- Run events table
-- Structured progress records emitted during a run (attempts, source
-- successes/failures, merges, escalations). Retained per run for
-- post-hoc analysis.
CREATE TABLE IF NOT EXISTS run_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    type TEXT NOT NULL,
    timestamp DATETIME NOT NULL,
    run_id TEXT NOT NULL,
    query TEXT NOT NULL DEFAULT '',
    severity TEXT NOT NULL CHECK(severity IN ('info', 'warning', 'error')),
    message TEXT NOT NULL,
    data TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_run_events_run_id ON run_events(run_id);
CREATE INDEX IF NOT EXISTS idx_run_events_type ON run_events(type);
CREATE INDEX IF NOT EXISTS idx_run_events_timestamp ON run_events(timestamp);
`
