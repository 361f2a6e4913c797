package market

import (
	"fmt"
)

// QuoteToAccountRate converts one unit of sym's quote currency into the
// account currency, given sym's current mid price.
func QuoteToAccountRate(sym Symbol, accountCurrency string, mid float64) (float64, error) {
	// Quote currency is the account currency (EURUSD on a USD account).
	if sym.Quote() == accountCurrency {
		return 1.0, nil
	}

	// Account currency is the base (USDJPY on a USD account). The mid is
	// JPY per USD; we want USD per JPY.
	if sym.Base() == accountCurrency {
		if mid <= 0 {
			return 0, fmt.Errorf("convert %s to %s: no price", sym.Quote(), accountCurrency)
		}
		return 1.0 / mid, nil
	}

	return 0, fmt.Errorf("cross conversion not implemented for %s → %s", sym.Quote(), accountCurrency)
}
