package market

import "time"

// Timeframe is a bar granularity in the broker's notation.
type Timeframe string

const (
	M5 Timeframe = "M5"
	H1 Timeframe = "H1"
	D1 Timeframe = "D"
)

// Duration returns the wall-clock span of one bar, or zero for an
// unknown granularity.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case M5:
		return 5 * time.Minute
	case H1:
		return time.Hour
	case D1:
		return 24 * time.Hour
	}
	return 0
}
