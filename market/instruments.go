// market/instruments.go
package market

import (
	"fmt"
	"strings"
)

// Symbol describes a tradable currency pair and the per-pair strategy
// thresholds that go with it.
type Symbol struct {
	Name string `json:"name" yaml:"name"` // "EURUSD"

	EntryADX        float64  `json:"entry_adx" yaml:"entry_adx"` // minimum ADX to consider an entry
	HighADX         float64  `json:"high_adx" yaml:"high_adx"`   // ADX at or above which the high risk tier applies
	ADXLookbackDays int      `json:"adx_lookback_days" yaml:"adx_lookback_days"`
	Windows         []Window `json:"windows" yaml:"windows"`
}

// IsYen reports whether either leg of the pair is JPY.
func (s Symbol) IsYen() bool {
	return strings.Contains(strings.ToUpper(s.Name), "JPY")
}

// PipLocation is the power of ten of one pip: -2 for yen pairs, -4 otherwise.
func (s Symbol) PipLocation() int {
	if s.IsYen() {
		return -2
	}
	return -4
}

// PipSize returns the price value of one pip.
func (s Symbol) PipSize() float64 {
	if s.IsYen() {
		return 0.01
	}
	return 0.0001
}

// PriceDecimals is the quoting precision (one pipette below the pip).
func (s Symbol) PriceDecimals() int32 {
	return int32(-s.PipLocation()) + 1
}

// Base returns the base currency, e.g. "EUR" for EURUSD.
func (s Symbol) Base() string {
	n := normalize(s.Name)
	if len(n) < 6 {
		return n
	}
	return n[:3]
}

// Quote returns the quote currency, e.g. "USD" for EURUSD.
func (s Symbol) Quote() string {
	n := normalize(s.Name)
	if len(n) < 6 {
		return ""
	}
	return n[3:6]
}

// InWindow reports whether hour falls in any of the allowed windows.
func (s Symbol) InWindow(hour int) bool {
	for _, w := range s.Windows {
		if w.Contains(hour) {
			return true
		}
	}
	return false
}

func (s Symbol) Validate() error {
	if len(normalize(s.Name)) != 6 {
		return fmt.Errorf("symbol %q: want six-letter pair like EURUSD", s.Name)
	}
	if s.EntryADX <= 0 {
		return fmt.Errorf("symbol %s: entry_adx must be positive", s.Name)
	}
	if s.HighADX < s.EntryADX {
		return fmt.Errorf("symbol %s: high_adx %.1f below entry_adx %.1f", s.Name, s.HighADX, s.EntryADX)
	}
	if s.ADXLookbackDays <= 0 {
		return fmt.Errorf("symbol %s: adx_lookback_days must be positive", s.Name)
	}
	if len(s.Windows) == 0 {
		return fmt.Errorf("symbol %s: at least one trading window is required", s.Name)
	}
	for _, w := range s.Windows {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("symbol %s: %w", s.Name, err)
		}
	}
	return nil
}

// Instrument converts "EURUSD" or "EUR/USD" to "EUR_USD".
func Instrument(name string) string {
	n := normalize(name)
	if len(n) != 6 {
		return n
	}
	return n[:3] + "_" + n[3:]
}

func normalize(name string) string {
	r := strings.NewReplacer("_", "", "/", "", " ", "")
	return strings.ToUpper(r.Replace(name))
}
