package journal

const schemaDDL = `
CREATE TABLE IF NOT EXISTS sessions (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at       DATETIME NOT NULL,
	ended_at         DATETIME,
	platform         TEXT NOT NULL,
	market           TEXT NOT NULL,
	dry_run          BOOLEAN NOT NULL DEFAULT 0,
	trades           INTEGER NOT NULL DEFAULT 0,
	profit           REAL NOT NULL DEFAULT 0,
	ending_inventory INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS fills (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id INTEGER NOT NULL REFERENCES sessions(id),
	ts         DATETIME NOT NULL,
	order_id   TEXT NOT NULL,
	side       TEXT NOT NULL,
	price      REAL NOT NULL,
	size       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fills_session ON fills(session_id);
CREATE INDEX IF NOT EXISTS idx_fills_ts ON fills(ts);

CREATE TABLE IF NOT EXISTS cycles (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id INTEGER NOT NULL REFERENCES sessions(id),
	ts         DATETIME NOT NULL,
	fair       REAL NOT NULL,
	bid        REAL NOT NULL,
	ask        REAL NOT NULL,
	inventory  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cycles_session ON cycles(session_id);
`
