// Package indicators provides technical analysis indicators for trading.
//
// Every function consumes closed candles only; callers strip the forming
// bar with market.BarSeries.Closed before passing a slice in.
package indicators

import (
	"errors"
	"fmt"
)

// ErrInsufficientData reports that fewer candles were supplied than the
// indicator's window needs. It means "no signal", never a fatal error.
var ErrInsufficientData = errors.New("insufficient data")

func insufficient(name string, need, got int) error {
	return fmt.Errorf("%s: %w: need %d candles, got %d", name, ErrInsufficientData, need, got)
}

func checkPeriod(period int) error {
	if period <= 0 {
		return fmt.Errorf("period must be positive, got %d", period)
	}
	return nil
}
