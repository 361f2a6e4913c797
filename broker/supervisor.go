package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rustyeddy/atlas/market"
	"github.com/rustyeddy/atlas/metrics"
	"go.uber.org/zap"
)

// Supervisor runs broker calls and heals a dropped session: on
// ErrDisconnected it reconnects exactly once and retries the call exactly
// once. Anything else, including a second failure, goes back to the
// caller untouched.
type Supervisor struct {
	gw  Gateway
	log *zap.Logger
}

func NewSupervisor(gw Gateway, log *zap.Logger) *Supervisor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Supervisor{gw: gw, log: log}
}

// Do runs fn, reconnecting and retrying once if the session broke.
func (s *Supervisor) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	err := fn(ctx)
	if err == nil || !errors.Is(err, ErrDisconnected) {
		return err
	}

	s.log.Warn("broker session lost, reconnecting", zap.String("op", op), zap.Error(err))
	session, rerr := s.gw.Reconnect(ctx)
	if rerr != nil {
		return fmt.Errorf("%s: reconnect failed: %w", op, errors.Join(err, rerr))
	}
	metrics.Reconnects.Inc()
	s.log.Info("broker reconnected", zap.String("op", op), zap.String("session", session))

	if err := fn(ctx); err != nil {
		return fmt.Errorf("%s: retry after reconnect: %w", op, err)
	}
	return nil
}

// Gateway returns a Gateway whose every call is supervised.
func (s *Supervisor) Gateway() Gateway {
	return supervised{s}
}

type supervised struct {
	s *Supervisor
}

func (g supervised) FetchBars(ctx context.Context, req BarRequest) (bs market.BarSeries, err error) {
	err = g.s.Do(ctx, "fetch_bars", func(ctx context.Context) error {
		var ferr error
		bs, ferr = g.s.gw.FetchBars(ctx, req)
		return ferr
	})
	return bs, err
}

func (g supervised) AccountSummary(ctx context.Context) (acct AccountSnapshot, err error) {
	err = g.s.Do(ctx, "account_summary", func(ctx context.Context) error {
		var aerr error
		acct, aerr = g.s.gw.AccountSummary(ctx)
		return aerr
	})
	return acct, err
}

func (g supervised) SubmitOrder(ctx context.Context, req OrderRequest) (ack OrderAck, err error) {
	err = g.s.Do(ctx, "submit_order", func(ctx context.Context) error {
		var serr error
		ack, serr = g.s.gw.SubmitOrder(ctx, req)
		return serr
	})
	return ack, err
}

func (g supervised) CancelOrder(ctx context.Context, orderID string) error {
	return g.s.Do(ctx, "cancel_order", func(ctx context.Context) error {
		return g.s.gw.CancelOrder(ctx, orderID)
	})
}

func (g supervised) Reconnect(ctx context.Context) (string, error) {
	return g.s.gw.Reconnect(ctx)
}
