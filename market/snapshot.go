package market

import "time"

// IndicatorSnapshot collects the values a signal decision was made on.
type IndicatorSnapshot struct {
	Time         time.Time
	EMA          float64
	ATR          float64
	ADX          float64
	ADR          float64
	SessionRange float64
	Close        float64
	PrevClose    float64
}
