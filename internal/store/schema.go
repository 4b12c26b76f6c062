package store

const SchemaVersion = 1

const schemaSQL = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);

-- One row per correction run
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    requirements TEXT NOT NULL,
    passed INTEGER NOT NULL DEFAULT 0,
    iterations INTEGER NOT NULL DEFAULT 0,
    best_score INTEGER,
    best_layout TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_passed ON runs(passed);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

-- One row per iteration within a run
CREATE TABLE IF NOT EXISTS attempts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    iteration INTEGER NOT NULL,
    score INTEGER,
    passed INTEGER NOT NULL DEFAULT 0,
    layout TEXT,
    feedback TEXT,
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_attempts_run ON attempts(run_id);
`

func GetSchema() string {
	return schemaSQL
}

func GetSchemaVersion() int {
	return SchemaVersion
}
