package oanda

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rustyeddy/atlas/broker"
)

type accountSummary struct {
	ID              string `json:"id"`
	Currency        string `json:"currency"`
	NAV             string `json:"NAV"`
	Balance         string `json:"balance"`
	MarginAvailable string `json:"marginAvailable"`
	MarginRate      string `json:"marginRate"`
}

type accountSummaryResponse struct {
	Account accountSummary `json:"account"`
}

// AccountSummary maps NAV to equity and reports buying power as the
// notional the available margin supports at the account's margin rate.
// OANDA has no separate available-funds figure, so that stays unset.
func (c *Client) AccountSummary(ctx context.Context) (broker.AccountSnapshot, error) {
	var resp accountSummaryResponse
	path := fmt.Sprintf("/v3/accounts/%s/summary", c.accountID)
	if err := c.do(ctx, "GET", path, nil, nil, &resp); err != nil {
		return broker.AccountSnapshot{}, fmt.Errorf("account summary: %w", err)
	}

	a := resp.Account
	nav, err := strconv.ParseFloat(a.NAV, 64)
	if err != nil {
		return broker.AccountSnapshot{}, fmt.Errorf("parse NAV %q: %w", a.NAV, err)
	}

	snap := broker.AccountSnapshot{
		ID:       a.ID,
		Currency: a.Currency,
		Equity:   nav,
	}

	if a.MarginAvailable != "" {
		avail, err := strconv.ParseFloat(a.MarginAvailable, 64)
		if err != nil {
			return broker.AccountSnapshot{}, fmt.Errorf("parse marginAvailable %q: %w", a.MarginAvailable, err)
		}
		bp := avail
		if rate, err := strconv.ParseFloat(a.MarginRate, 64); err == nil && rate > 0 {
			bp = avail / rate
		}
		snap.BuyingPower = &bp
	}

	return snap, nil
}
