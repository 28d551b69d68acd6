package sqlite

// schema is executed at open time. Statements are append-only and guarded
// with IF NOT EXISTS so restarts reattach to an existing database.
const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	metadata   TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
	id            TEXT PRIMARY KEY,
	project_id    TEXT NOT NULL REFERENCES projects(id),
	decision      TEXT NOT NULL,
	context       TEXT NOT NULL DEFAULT '',
	impact        TEXT NOT NULL DEFAULT '',
	alternatives  TEXT NOT NULL DEFAULT '[]',
	timestamp     DATETIME NOT NULL,
	embedding_ref TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_decisions_project_time
	ON decisions(project_id, timestamp DESC);

CREATE TABLE IF NOT EXISTS progress (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id),
	milestone  TEXT NOT NULL,
	status     TEXT NOT NULL,
	notes      TEXT NOT NULL DEFAULT '',
	blockers   TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE(project_id, milestone)
);

CREATE TABLE IF NOT EXISTS code_patterns (
	id            TEXT PRIMARY KEY,
	project_id    TEXT NOT NULL REFERENCES projects(id),
	pattern_hash  TEXT NOT NULL UNIQUE,
	file_path     TEXT NOT NULL,
	language      TEXT NOT NULL DEFAULT '',
	content       TEXT NOT NULL,
	embedding_ref TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_patterns_project_time
	ON code_patterns(project_id, created_at DESC);

CREATE TABLE IF NOT EXISTS decision_relations (
	id            TEXT PRIMARY KEY,
	decision_id   TEXT NOT NULL REFERENCES decisions(id),
	related_id    TEXT NOT NULL REFERENCES decisions(id),
	relation_type TEXT NOT NULL,
	strength      REAL NOT NULL DEFAULT 0
		CHECK(strength >= 0 AND strength <= 1)
);

CREATE INDEX IF NOT EXISTS idx_relations_decision
	ON decision_relations(decision_id);
`
