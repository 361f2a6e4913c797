package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rustyeddy/atlas/broker"
	"github.com/rustyeddy/atlas/journal"
	"github.com/rustyeddy/atlas/market"
	"github.com/rustyeddy/atlas/metrics"
	"github.com/rustyeddy/atlas/orders"
	"github.com/rustyeddy/atlas/pkg/id"
	"github.com/rustyeddy/atlas/risk"
	"github.com/rustyeddy/atlas/strategy"
	"go.uber.org/zap"
)

type Options struct {
	Symbols  []market.Symbol
	Gateway  broker.Gateway // supervised
	Strategy strategy.Params
	Risk     risk.Policy
	Orders   orders.Config
	Interval time.Duration
	Journal  journal.Journal
	Logger   *zap.Logger
	Clock    func() time.Time
}

// Scheduler walks the symbol list once per interval, one symbol at a
// time, and never lets one symbol's failure stop the others.
type Scheduler struct {
	symbols  []market.Symbol
	gw       broker.Gateway
	eval     *strategy.Evaluator
	sizer    *risk.Sizer
	builder  *orders.Builder
	state    *State
	journal  journal.Journal
	ids      *id.Generator
	interval time.Duration
	log      *zap.Logger
	now      func() time.Time

	running atomic.Bool
}

func NewScheduler(o Options) *Scheduler {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Journal == nil {
		o.Journal = journal.Noop{}
	}
	if o.Interval <= 0 {
		o.Interval = 300 * time.Second
	}

	state := NewState()
	ids := id.NewGenerator(o.Clock)
	return &Scheduler{
		symbols:  o.Symbols,
		gw:       o.Gateway,
		eval:     strategy.NewEvaluator(o.Gateway, state, o.Strategy, o.Logger),
		sizer:    risk.NewSizer(o.Risk),
		builder:  orders.NewBuilder(o.Gateway, o.Orders, ids, o.Logger),
		state:    state,
		journal:  o.Journal,
		ids:      ids,
		interval: o.Interval,
		log:      o.Logger,
		now:      o.Clock,
	}
}

func (s *Scheduler) State() *State { return s.state }

// Running reports whether a cycle is in progress.
func (s *Scheduler) Running() bool { return s.running.Load() }

// Run executes a cycle immediately and then one per interval until ctx
// is done. Cycles never overlap: a tick that fires while one is still
// running is dropped.
func (s *Scheduler) Run(ctx context.Context) error {
	cl := cronLogger{s.log.Sugar()}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := c.AddFunc(spec, func() { s.RunCycle(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}

	s.log.Info("scheduler started", zap.Duration("interval", s.interval), zap.Int("symbols", len(s.symbols)))
	s.RunCycle(ctx)

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("scheduler stopped")
	return nil
}

// RunCycle processes every symbol once, in order.
func (s *Scheduler) RunCycle(ctx context.Context) Report {
	s.running.Store(true)
	defer s.running.Store(false)

	rep := Report{Started: s.now()}
	s.log.Info("cycle start", zap.Int("symbols", len(s.symbols)))

	for _, sym := range s.symbols {
		if ctx.Err() != nil {
			break
		}
		res := s.ProcessSymbol(ctx, sym)
		metrics.SymbolResults.WithLabelValues(string(res.Outcome), res.Reason).Inc()
		rep.Results = append(rep.Results, res)
	}

	rep.Finished = s.now()
	metrics.Cycles.Inc()
	s.log.Info("cycle done",
		zap.Int("entered", rep.Count(Entered)),
		zap.Int("skipped", rep.Count(Skipped)),
		zap.Int("failed", rep.Count(Failed)),
		zap.Duration("elapsed", rep.Finished.Sub(rep.Started)),
	)
	return rep
}

// ProcessSymbol runs signal, sizing and order entry for one symbol. A
// panic anywhere below is turned into a Failed result.
func (s *Scheduler) ProcessSymbol(ctx context.Context, sym market.Symbol) (res Result) {
	start := s.now()
	log := s.log.With(zap.String("symbol", sym.Name))

	defer func() {
		if r := recover(); r != nil {
			res = Result{Symbol: sym.Name, Outcome: Failed, Reason: ReasonPanic, Err: fmt.Errorf("panic: %v", r)}
			log.Error("symbol processing panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
		res.Elapsed = s.now().Sub(start)
	}()

	res = Result{Symbol: sym.Name}

	d, err := s.eval.Evaluate(ctx, sym, start)
	res.Decision = d
	if err != nil {
		return s.fail(log, res, ReasonMarketData, err)
	}
	if !d.Signal() {
		res.Outcome, res.Reason = Skipped, string(d.Gate)
		return res
	}

	acct, err := s.gw.AccountSummary(ctx)
	if err != nil {
		return s.fail(log, res, ReasonAccount, err)
	}
	s.state.SetAccount(acct)
	metrics.EquityGauge.Set(acct.Equity)
	if err := s.journal.RecordEquity(journal.EquitySnapshot{
		Time:      start,
		Symbol:    sym.Name,
		Currency:  acct.Currency,
		Equity:    acct.Equity,
		Spendable: acct.Spendable(),
	}); err != nil {
		log.Error("journal equity", zap.Error(err))
	}

	size := s.sizer.Size(risk.Inputs{
		Tier:      d.Tier,
		Equity:    acct.Equity,
		Spendable: acct.Spendable(),
		Entry:     d.Entry,
		ATR:       d.Indicators.ATR,
		PipSize:   sym.PipSize(),
	})
	if !size.OK() {
		log.Warn("position vetoed",
			zap.String("veto", string(size.Veto)),
			zap.Float64("notional", size.Notional),
			zap.Float64("spendable", acct.Spendable()),
		)
		res.Outcome, res.Reason = Skipped, string(size.Veto)
		return res
	}

	plan, err := s.builder.Plan(sym, d.Entry, d.Indicators.ATR, size.Quantity, start)
	if err != nil {
		log.Warn("plan rejected", zap.Error(err))
		res.Outcome, res.Reason, res.Err = Skipped, ReasonInvalidPlan, err
		return res
	}
	res.Plan = &plan

	sub, err := s.builder.Submit(ctx, plan)
	if err != nil {
		return s.fail(log, res, ReasonOrderRejected, err)
	}

	s.state.RecordEntry(sym.Name, start)
	s.record(log, d, size, sub, acct.Equity)

	res.Outcome = Entered
	return res
}

func (s *Scheduler) fail(log *zap.Logger, res Result, reason string, err error) Result {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		reason = ReasonCancelled
	}
	res.Outcome, res.Reason, res.Err = Failed, reason, err
	log.Error("symbol failed", zap.String("reason", reason), zap.Error(err))
	return res
}

func (s *Scheduler) record(log *zap.Logger, d strategy.Decision, size risk.Result, sub orders.Submission, equity float64) {
	p := sub.Plan
	rec := journal.BracketRecord{
		ID:          s.ids.New(),
		Time:        p.CreatedAt,
		Symbol:      p.Symbol,
		Group:       p.Group,
		Tier:        d.Tier.String(),
		Quantity:    p.Quantity,
		Entry:       p.Entry,
		Stop:        p.Stop,
		Target:      p.Target,
		ADX:         d.Indicators.ADX,
		ATR:         d.Indicators.ATR,
		PlannedRisk: risk.PlannedRisk(float64(p.Quantity), p.Entry, p.Stop, 1.0),
		RR:          risk.RR(p.Entry, p.Stop, p.Target),
	}
	for _, leg := range sub.Legs {
		switch leg.Leg {
		case orders.EntryLeg:
			rec.EntryOrderID = leg.OrderID
		case orders.StopLeg:
			rec.StopOrderID = leg.OrderID
		case orders.TargetLeg:
			rec.TargetOrderID = leg.OrderID
		}
	}
	if err := s.journal.RecordBracket(rec); err != nil {
		log.Error("journal bracket", zap.Error(err))
	}
	log.Info("entered",
		zap.String("plan", p.String()),
		zap.String("tier", rec.Tier),
		zap.Float64("risk_amount", size.RiskAmount),
		zap.Float64("risk_pct", risk.RiskPct(rec.PlannedRisk, equity)),
		zap.Float64("notional", p.Notional()),
	)
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
