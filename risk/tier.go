package risk

// Tier is the risk bucket chosen by the signal. None means no entry.
type Tier int

const (
	None Tier = iota
	Medium
	High
)

func (t Tier) String() string {
	switch t {
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "none"
	}
}

// TierFor maps a trend-strength reading onto a tier.
func TierFor(adx, entry, high float64) Tier {
	switch {
	case adx >= high:
		return High
	case adx >= entry:
		return Medium
	default:
		return None
	}
}
