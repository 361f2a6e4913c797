package journal

import (
	"fmt"
	"time"
)

// BracketRecord is one accepted entry/stop/target group.
type BracketRecord struct {
	ID       string
	Time     time.Time
	Symbol   string
	Group    string
	Tier     string
	Quantity int64

	Entry  float64
	Stop   float64
	Target float64

	ADX         float64
	ATR         float64
	PlannedRisk float64 // account currency
	RR          float64

	EntryOrderID  string
	StopOrderID   string
	TargetOrderID string
}

// EquitySnapshot is the account as seen while processing a symbol.
type EquitySnapshot struct {
	Time      time.Time
	Symbol    string
	Currency  string
	Equity    float64
	Spendable float64
}

type Journal interface {
	RecordBracket(BracketRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Noop discards everything.
type Noop struct{}

func (Noop) RecordBracket(BracketRecord) error { return nil }
func (Noop) RecordEquity(EquitySnapshot) error { return nil }
func (Noop) Close() error { return nil }

// Open builds the journal named by typ: "sqlite", "csv" or "none".
func Open(typ, dbPath, bracketsPath, equityPath string) (Journal, error) {
	switch typ {
	case "sqlite":
		return NewSQLite(dbPath)
	case "csv":
		return NewCSV(bracketsPath, equityPath)
	case "none", "":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", typ)
	}
}
