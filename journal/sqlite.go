package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordBracket(b BracketRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO brackets
		(id, time, symbol, grp, tier, quantity, entry, stop, target, adx, atr, planned_risk, rr,
		 entry_order_id, stop_order_id, target_order_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Time.UTC(), b.Symbol, b.Group, b.Tier, b.Quantity,
		b.Entry, b.Stop, b.Target, b.ADX, b.ATR, b.PlannedRisk, b.RR,
		b.EntryOrderID, b.StopOrderID, b.TargetOrderID,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, symbol, currency, equity, spendable)
		VALUES (?, ?, ?, ?, ?)`,
		e.Time.UTC(), e.Symbol, e.Currency, e.Equity, e.Spendable,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
