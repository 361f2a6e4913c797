package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestAccountSnapshotSpendable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		acct     AccountSnapshot
		expected float64
	}{
		{"available funds wins", AccountSnapshot{Equity: 10000, AvailableFunds: ptr(8000), BuyingPower: ptr(40000)}, 8000},
		{"buying power fallback", AccountSnapshot{Equity: 10000, BuyingPower: ptr(40000)}, 40000},
		{"equity fallback", AccountSnapshot{Equity: 10000}, 10000},
		{"zero funds are still reported", AccountSnapshot{Equity: 10000, AvailableFunds: ptr(0)}, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.acct.Spendable())
		})
	}
}
