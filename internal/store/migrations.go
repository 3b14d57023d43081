package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create principals and sessions",
		SQL: `
			CREATE TABLE principals (
				id             INTEGER PRIMARY KEY AUTOINCREMENT,
				telegram_id    INTEGER NOT NULL,
				first_name     TEXT NOT NULL,
				last_name      TEXT NOT NULL DEFAULT '',
				username       TEXT NOT NULL DEFAULT '',
				language_code  TEXT NOT NULL DEFAULT '',
				is_admin       INTEGER NOT NULL DEFAULT 0,
				is_bot         INTEGER NOT NULL DEFAULT 0,
				created_at     TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE UNIQUE INDEX idx_principals_telegram ON principals (telegram_id);

			CREATE TABLE sessions (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				principal_id  INTEGER NOT NULL UNIQUE REFERENCES principals(id) ON DELETE CASCADE,
				context       TEXT NOT NULL DEFAULT '',
				state         TEXT NOT NULL DEFAULT '',
				context_data  TEXT,
				created_at    TEXT NOT NULL DEFAULT (datetime('now'))
			);
		`,
	},
	{
		Version: 2,
		Name:    "create service catalog",
		SQL: `
			CREATE TABLE providers (
				id                 INTEGER PRIMARY KEY AUTOINCREMENT,
				name               TEXT NOT NULL UNIQUE,
				utility_providers  TEXT,
				created_at         TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE TABLE provider_configs (
				id               INTEGER PRIMARY KEY AUTOINCREMENT,
				provider_id      INTEGER NOT NULL UNIQUE REFERENCES providers(id) ON DELETE CASCADE,
				receipt_url      TEXT NOT NULL DEFAULT '',
				receipt_host     TEXT NOT NULL DEFAULT '',
				receipt_referer  TEXT NOT NULL DEFAULT '',
				trx_id_length    INTEGER NOT NULL DEFAULT 0
			);

			CREATE TABLE pricings (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				name        TEXT NOT NULL UNIQUE,
				url         TEXT NOT NULL DEFAULT '',
				lines       TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE TABLE services (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				command     TEXT NOT NULL UNIQUE,
				en_desc     TEXT NOT NULL,
				fr_desc     TEXT NOT NULL,
				admin_only  INTEGER NOT NULL DEFAULT 0,
				parent_id   INTEGER REFERENCES services(id),
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_services_parent ON services (parent_id);

			CREATE TABLE catalogs (
				provider_id  INTEGER NOT NULL REFERENCES providers(id) ON DELETE CASCADE,
				service_id   INTEGER NOT NULL REFERENCES services(id) ON DELETE CASCADE,
				pricing_id   INTEGER REFERENCES pricings(id),
				PRIMARY KEY (provider_id, service_id)
			);
		`,
	},
}
