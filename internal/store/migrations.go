package store

// migration is a single schema step. Versions are sequential starting at 1.
type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
	uuid             TEXT PRIMARY KEY,
	name             TEXT NOT NULL DEFAULT '',
	email            TEXT NOT NULL DEFAULT '',
	folder_push_mode TEXT NOT NULL DEFAULT 'NONE',
	server_type      TEXT NOT NULL,
	host             TEXT NOT NULL,
	port             INTEGER NOT NULL,
	security         TEXT NOT NULL,
	username         TEXT NOT NULL DEFAULT '',
	folders          TEXT NOT NULL DEFAULT '[]',
	created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_accounts_push_mode ON accounts(folder_push_mode);
`,
	},
}
