package repository

// Schema creates every table the repository reads and writes. All
// statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS kpis (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	scoring_type      TEXT NOT NULL,
	data_type         TEXT NOT NULL,
	decimal_precision INTEGER NOT NULL,
	updated_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS kpi_updaters (
	kpi_id                TEXT NOT NULL,
	updater_id            TEXT NOT NULL,
	can_modify_thresholds INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (kpi_id, updater_id)
);

CREATE TABLE IF NOT EXISTS kpi_values (
	id               TEXT PRIMARY KEY,
	kpi_id           TEXT NOT NULL,
	period_date      TEXT NOT NULL,
	actual_value     TEXT,
	target_value     TEXT,
	threshold_red    TEXT,
	threshold_yellow TEXT,
	note             TEXT NOT NULL DEFAULT '',
	score            REAL,
	color            TEXT,
	is_manual_entry  INTEGER NOT NULL DEFAULT 0,
	updated_by       TEXT NOT NULL,
	updated_at       TEXT NOT NULL,
	UNIQUE (kpi_id, period_date)
);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
