package migrations

func init() {
	Register(Migration{
		Timestamp:   "20250301-000000",
		Description: "Initial schema",
		Up: []string{
			// Categories - listing-site categories being crawled
			`CREATE TABLE IF NOT EXISTS categories (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				url TEXT UNIQUE NOT NULL,
				created_at TEXT NOT NULL
			)`,

			// Apps - the catalog. source_url is the identity key: one row
			// per listing item, re-scrapes update in place.
			`CREATE TABLE IF NOT EXISTS apps (
				id TEXT PRIMARY KEY,
				source_url TEXT UNIQUE NOT NULL,
				name TEXT NOT NULL DEFAULT '',
				developer TEXT NOT NULL DEFAULT '',
				version TEXT NOT NULL DEFAULT '',
				price_text TEXT NOT NULL DEFAULT '',
				size_bytes INTEGER NOT NULL DEFAULT 0,
				category TEXT NOT NULL DEFAULT '',
				screenshot_urls TEXT,
				rating_text TEXT NOT NULL DEFAULT '',
				mas_id TEXT NOT NULL DEFAULT '',
				mas_url TEXT NOT NULL DEFAULT '',
				is_on_mas INTEGER NOT NULL DEFAULT 0,
				matched_at TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_apps_source_url ON apps(source_url)`,
			`CREATE INDEX IF NOT EXISTS idx_apps_is_on_mas ON apps(is_on_mas)`,
			`CREATE INDEX IF NOT EXISTS idx_apps_name_developer ON apps(name, developer)`,

			// Import sessions - one row per listing page processed for a
			// category. Name is always "Page <N>".
			`CREATE TABLE IF NOT EXISTS import_sessions (
				id TEXT PRIMARY KEY,
				category_id TEXT NOT NULL,
				name TEXT NOT NULL,
				page_number INTEGER NOT NULL,
				status TEXT NOT NULL DEFAULT 'scraped',
				apps_imported INTEGER NOT NULL DEFAULT 0,
				apps_skipped INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				FOREIGN KEY (category_id) REFERENCES categories(id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_import_sessions_category ON import_sessions(category_id, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_import_sessions_status ON import_sessions(category_id, status)`,

			// Match attempts - one per app (latest wins), with the raw
			// search response retained for audit.
			`CREATE TABLE IF NOT EXISTS itunes_match_attempts (
				id TEXT PRIMARY KEY,
				app_id TEXT UNIQUE NOT NULL,
				search_term TEXT NOT NULL,
				developer_name TEXT NOT NULL DEFAULT '',
				raw_response TEXT,
				confidence REAL NOT NULL DEFAULT 0,
				status TEXT NOT NULL,
				mas_id TEXT NOT NULL DEFAULT '',
				mas_url TEXT NOT NULL DEFAULT '',
				error_message TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				FOREIGN KEY (app_id) REFERENCES apps(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_match_attempts_status ON itunes_match_attempts(status)`,
		},
	})
}
