package oanda

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rustyeddy/atlas/broker"
	"github.com/rustyeddy/atlas/market"
)

// candleData represents the OHLC data in the API response
type candleData struct {
	O string `json:"o"`
	H string `json:"h"`
	L string `json:"l"`
	C string `json:"c"`
}

// apiCandle represents a single candle in the API response
type apiCandle struct {
	Complete bool        `json:"complete"`
	Volume   int         `json:"volume"`
	Time     string      `json:"time"`
	Mid      *candleData `json:"mid,omitempty"`
	Bid      *candleData `json:"bid,omitempty"`
	Ask      *candleData `json:"ask,omitempty"`
}

// candlesResponse represents the API response for candles
type candlesResponse struct {
	Instrument  string      `json:"instrument"`
	Granularity string      `json:"granularity"`
	Candles     []apiCandle `json:"candles"`
}

func priceComponent(p broker.PriceSource) string {
	switch p {
	case broker.Bid:
		return "B"
	case broker.Ask:
		return "A"
	default:
		return "M"
	}
}

// FetchBars fetches historical candles covering req.Duration back from
// now. The forming candle is kept and flagged incomplete.
func (c *Client) FetchBars(ctx context.Context, req broker.BarRequest) (market.BarSeries, error) {
	if req.Symbol == "" {
		return market.BarSeries{}, fmt.Errorf("symbol is required")
	}
	if req.Timeframe == "" {
		return market.BarSeries{}, fmt.Errorf("timeframe is required")
	}
	if req.Duration <= 0 {
		return market.BarSeries{}, fmt.Errorf("duration must be positive")
	}

	instrument := market.Instrument(req.Symbol)
	params := url.Values{}
	params.Set("price", priceComponent(req.Price))
	params.Set("granularity", string(req.Timeframe))
	params.Set("from", c.now().Add(-req.Duration).UTC().Format(time.RFC3339))

	var resp candlesResponse
	path := fmt.Sprintf("/v3/instruments/%s/candles", instrument)
	if err := c.do(ctx, "GET", path, params, nil, &resp); err != nil {
		return market.BarSeries{}, fmt.Errorf("fetch %s %s: %w", instrument, req.Timeframe, err)
	}

	bs := market.BarSeries{
		Symbol:    req.Symbol,
		Timeframe: req.Timeframe,
		Candles:   make([]market.Candle, 0, len(resp.Candles)),
	}
	for _, ac := range resp.Candles {
		t, err := time.Parse(time.RFC3339, ac.Time)
		if err != nil {
			return market.BarSeries{}, fmt.Errorf("parse time %s: %w", ac.Time, err)
		}

		var pd *candleData
		switch req.Price {
		case broker.Bid:
			pd = ac.Bid
		case broker.Ask:
			pd = ac.Ask
		default:
			pd = ac.Mid
		}
		if pd == nil {
			return market.BarSeries{}, fmt.Errorf("candle %s: missing %s prices", ac.Time, priceComponent(req.Price))
		}

		candle, err := pd.candle()
		if err != nil {
			return market.BarSeries{}, fmt.Errorf("candle %s: %w", ac.Time, err)
		}
		candle.Time = t
		candle.Volume = float64(ac.Volume)
		candle.Complete = ac.Complete
		bs.Candles = append(bs.Candles, candle)
	}

	return bs, nil
}

func (d candleData) candle() (market.Candle, error) {
	var (
		c   market.Candle
		err error
	)
	if c.Open, err = strconv.ParseFloat(d.O, 64); err != nil {
		return c, fmt.Errorf("parse open price: %w", err)
	}
	if c.High, err = strconv.ParseFloat(d.H, 64); err != nil {
		return c, fmt.Errorf("parse high price: %w", err)
	}
	if c.Low, err = strconv.ParseFloat(d.L, 64); err != nil {
		return c, fmt.Errorf("parse low price: %w", err)
	}
	if c.Close, err = strconv.ParseFloat(d.C, 64); err != nil {
		return c, fmt.Errorf("parse close price: %w", err)
	}
	return c, nil
}
