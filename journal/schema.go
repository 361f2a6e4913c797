package journal

const Schema = `
CREATE TABLE IF NOT EXISTS brackets (
	id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	grp TEXT NOT NULL,
	tier TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	entry REAL NOT NULL,
	stop REAL NOT NULL,
	target REAL NOT NULL,
	adx REAL NOT NULL,
	atr REAL NOT NULL,
	planned_risk REAL NOT NULL,
	rr REAL NOT NULL,
	entry_order_id TEXT NOT NULL,
	stop_order_id TEXT NOT NULL,
	target_order_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_brackets_time ON brackets(time);

CREATE TABLE IF NOT EXISTS equity (
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	currency TEXT NOT NULL,
	equity REAL NOT NULL,
	spendable REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
`
