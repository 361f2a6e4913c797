package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

var (
	bracketHeader = []string{"id", "time", "symbol", "group", "tier", "quantity", "entry", "stop", "target",
		"adx", "atr", "planned_risk", "rr", "entry_order_id", "stop_order_id", "target_order_id"}
	equityHeader = []string{"time", "symbol", "currency", "equity", "spendable"}
)

// CSV appends brackets and equity snapshots to two files, writing the
// header only when a file is new.
type CSV struct {
	brackets *csv.Writer
	equity   *csv.Writer
	bf, ef   *os.File
}

func openAppend(path string, header []string) (*os.File, *csv.Writer, error) {
	fi, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}
	w := csv.NewWriter(f)
	if statErr != nil || fi.Size() == 0 {
		if err := w.Write(header); err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			_ = f.Close()
			return nil, nil, err
		}
	}
	return f, w, nil
}

func NewCSV(bracketsPath, equityPath string) (*CSV, error) {
	bf, bw, err := openAppend(bracketsPath, bracketHeader)
	if err != nil {
		return nil, err
	}
	ef, ew, err := openAppend(equityPath, equityHeader)
	if err != nil {
		_ = bf.Close()
		return nil, err
	}
	return &CSV{brackets: bw, equity: ew, bf: bf, ef: ef}, nil
}

func (j *CSV) RecordBracket(b BracketRecord) error {
	err := j.brackets.Write([]string{
		b.ID,
		b.Time.UTC().Format(time.RFC3339),
		b.Symbol,
		b.Group,
		b.Tier,
		strconv.FormatInt(b.Quantity, 10),
		f(b.Entry),
		f(b.Stop),
		f(b.Target),
		f(b.ADX),
		f(b.ATR),
		f(b.PlannedRisk),
		f(b.RR),
		b.EntryOrderID,
		b.StopOrderID,
		b.TargetOrderID,
	})
	if err != nil {
		return err
	}
	j.brackets.Flush()
	return j.brackets.Error()
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	err := j.equity.Write([]string{
		e.Time.UTC().Format(time.RFC3339),
		e.Symbol,
		e.Currency,
		f(e.Equity),
		f(e.Spendable),
	})
	if err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSV) Close() error {
	j.brackets.Flush()
	if err := j.brackets.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.bf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
