package appstate

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wrapsync/internal/chain"
	"wrapsync/internal/events"
	"wrapsync/internal/infra/log"
)

// Reducer folds chain events into the state. Balances and supply are always
// re-read from the token contract, never computed from transfer amounts, so
// applying the same event twice converges to the same ledger.
type Reducer struct {
	token chain.Reader
	log   *zap.Logger
}

func NewReducer(token chain.Reader) *Reducer {
	return &Reducer{token: token, log: log.Named("reducer")}
}

// Reduce returns the next state. It never fails: any error or panic while
// computing the transition is logged and the previous state is returned.
func (r *Reducer) Reduce(ctx context.Context, state AppState, ev events.ChainEvent) (next AppState) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("reducer panicked, keeping previous state",
				zap.String("event", eventName(ev)),
				zap.Any("panic", p))
			next = state
		}
	}()

	out, err := r.transition(ctx, state, ev)
	if err != nil {
		r.log.Error("failed to apply event, keeping previous state",
			zap.String("event", eventName(ev)),
			zap.Error(err))
		return state
	}
	return out
}

func (r *Reducer) transition(ctx context.Context, state AppState, ev events.ChainEvent) (AppState, error) {
	switch e := ev.(type) {
	case events.Transfer:
		return r.transfer(ctx, state, e)
	case events.SyncStatusSyncing:
		next := state
		next.IsSyncing = true
		return next, nil
	case events.SyncStatusSynced:
		next := state
		next.IsSyncing = false
		return next, nil
	default:
		return state, nil
	}
}

// transfer reloads both balances and the total supply (mints and burns move
// it) concurrently and applies them together or not at all.
func (r *Reducer) transfer(ctx context.Context, state AppState, e events.Transfer) (AppState, error) {
	var (
		changes []Holder
		supply  *big.Int
	)

	g, gctx := errgroup.WithContext(ctx)
	goSafe(g, func() error {
		var err error
		changes, err = LoadNewBalances(gctx, r.token, e.From, e.To)
		return err
	})
	goSafe(g, func() error {
		var err error
		supply, err = readBigInt(gctx, r.token, "totalSupply")
		if err != nil {
			return fmt.Errorf("failed to reload total supply: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return state, err
	}

	next := state
	next.TokenSupply = supply
	next.Holders = UpdateHolders(state.Holders, changes)
	return next, nil
}

func eventName(ev events.ChainEvent) string {
	if ev == nil {
		return "<nil>"
	}
	return ev.Name()
}
