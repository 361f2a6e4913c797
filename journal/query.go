package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const bracketColumns = `id, time, symbol, grp, tier, quantity, entry, stop, target, adx, atr,
	planned_risk, rr, entry_order_id, stop_order_id, target_order_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanBracket(s scanner) (BracketRecord, error) {
	var b BracketRecord
	err := s.Scan(
		&b.ID, &b.Time, &b.Symbol, &b.Group, &b.Tier, &b.Quantity,
		&b.Entry, &b.Stop, &b.Target, &b.ADX, &b.ATR,
		&b.PlannedRisk, &b.RR, &b.EntryOrderID, &b.StopOrderID, &b.TargetOrderID,
	)
	return b, err
}

// GetBracket returns a single bracket by id.
func (j *SQLite) GetBracket(id string) (BracketRecord, error) {
	row := j.db.QueryRow(`SELECT `+bracketColumns+` FROM brackets WHERE id = ?`, id)
	b, err := scanBracket(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BracketRecord{}, fmt.Errorf("bracket %q not found", id)
		}
		return BracketRecord{}, err
	}
	return b, nil
}

// ListBracketsBetween returns brackets submitted within [start, end).
func (j *SQLite) ListBracketsBetween(start, end time.Time) ([]BracketRecord, error) {
	rows, err := j.db.Query(`SELECT `+bracketColumns+` FROM brackets
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, id ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BracketRecord
	for rows.Next() {
		b, err := scanBracket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityBetween returns snapshots taken within [start, end).
func (j *SQLite) ListEquityBetween(start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT time, symbol, currency, equity, spendable
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC;`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.Time, &e.Symbol, &e.Currency, &e.Equity, &e.Spendable); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
