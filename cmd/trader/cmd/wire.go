package cmd

import (
	"fmt"

	"github.com/rustyeddy/atlas/broker"
	"github.com/rustyeddy/atlas/broker/oanda"
	"github.com/rustyeddy/atlas/broker/paper"
	"github.com/rustyeddy/atlas/config"
	"github.com/rustyeddy/atlas/engine"
	"github.com/rustyeddy/atlas/journal"
	"github.com/rustyeddy/atlas/orders"
	"github.com/rustyeddy/atlas/risk"
	"github.com/rustyeddy/atlas/strategy"
	"go.uber.org/zap"
)

// buildGateway returns the supervised venue: OANDA directly, or a paper
// book fed by OANDA market data.
func buildGateway(cfg *config.Config, log *zap.Logger) (broker.Gateway, error) {
	oc, err := oanda.NewClient(oanda.Config{
		Environment: cfg.Broker.Environment,
		Token:       cfg.Broker.Token,
		AccountID:   cfg.Broker.AccountID,
		Timeout:     cfg.Broker.Timeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("oanda: %w", err)
	}

	var gw broker.Gateway = oc
	if cfg.Broker.Paper {
		pb, err := paper.New(oc, paper.Config{Balance: cfg.Broker.PaperBalance}, log)
		if err != nil {
			return nil, err
		}
		gw = pb
	}
	return broker.NewSupervisor(gw, log).Gateway(), nil
}

func schedulerOptions(cfg *config.Config, gw broker.Gateway, j journal.Journal, log *zap.Logger) (engine.Options, error) {
	s := cfg.Strategy
	loc, err := s.Location()
	if err != nil {
		return engine.Options{}, fmt.Errorf("timezone %q: %w", s.Timezone, err)
	}

	sp := strategy.DefaultParams()
	sp.EMAPeriod = s.EMAPeriod
	sp.ATRPeriod = s.ATRPeriod
	sp.ADXPeriod = s.ADXPeriod
	sp.ADRWindowDays = s.ADRWindowDays
	sp.VolatilityRatio = s.VolatilityRatio
	sp.Cooldown = s.Cooldown
	sp.Location = loc

	return engine.Options{
		Symbols:  cfg.Symbols,
		Gateway:  gw,
		Strategy: sp,
		Risk: risk.Policy{
			ReserveFraction: s.ReserveFraction,
			RiskHigh:        s.RiskHigh,
			RiskMedium:      s.RiskMedium,
			StopATRMult:     s.StopATRMult,
			MinUnits:        s.MinUnits,
			MinBuyingPower:  s.MinBuyingPower,
		},
		Orders: orders.Config{
			StopATRMult:   s.StopATRMult,
			TargetATRMult: s.TargetATRMult,
			MinUnits:      s.MinUnits,
		},
		Interval: s.CycleInterval,
		Journal:  j,
		Logger:   log,
	}, nil
}
