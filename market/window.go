package market

import "fmt"

// Window is an allowed trading range of hours [Start, End) in the
// reference timezone. Start >= End wraps past midnight.
type Window struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

func (w Window) Contains(hour int) bool {
	if w.Start < w.End {
		return w.Start <= hour && hour < w.End
	}
	return hour >= w.Start || hour < w.End
}

func (w Window) Validate() error {
	if w.Start < 0 || w.Start > 23 {
		return fmt.Errorf("window start %d out of range 0-23", w.Start)
	}
	if w.End < 0 || w.End > 24 {
		return fmt.Errorf("window end %d out of range 0-24", w.End)
	}
	return nil
}

func (w Window) String() string {
	return fmt.Sprintf("%02d-%02d", w.Start, w.End)
}
