package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"wrapsync/internal/events"
	"wrapsync/internal/infra/log"
)

// LogSource is the subset of Client used by the event source.
type LogSource interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

type SourceConfig struct {
	StartBlock    uint64
	PageSize      uint64
	PollInterval  time.Duration
	Confirmations uint64
}

// EventSource replays past token logs between SyncStatusSyncing and
// SyncStatusSynced, then polls the node for new blocks.
type EventSource struct {
	cfg    SourceConfig
	client LogSource
	token  common.Address
	log    *zap.Logger
	after  func(time.Duration) <-chan time.Time

	next uint64
}

func NewEventSource(cfg SourceConfig, client LogSource, token common.Address) *EventSource {
	if cfg.PageSize == 0 {
		cfg.PageSize = 5000
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}
	return &EventSource{
		cfg:    cfg,
		client: client,
		token:  token,
		log:    log.Named("event-source"),
		after:  time.After,
		next:   cfg.StartBlock,
	}
}

// Next is the first block not yet delivered.
func (s *EventSource) Next() uint64 { return s.next }

// Run writes events to out until ctx is done. Events are delivered in block
// and log order; it never closes out.
func (s *EventSource) Run(ctx context.Context, out chan<- events.ChainEvent) error {
	if err := send(ctx, out, events.SyncStatusSyncing{}); err != nil {
		return err
	}

	for {
		head, err := s.safeHead(ctx)
		if err == nil {
			err = s.deliverUpTo(ctx, head, out)
		}
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Warn("catch-up interrupted, retrying", zap.Uint64("next", s.next), zap.Error(err))
		if err := s.wait(ctx); err != nil {
			return err
		}
	}

	if err := send(ctx, out, events.SyncStatusSynced{}); err != nil {
		return err
	}
	s.log.Info("caught up with chain head", zap.Uint64("next", s.next))

	for {
		if err := s.wait(ctx); err != nil {
			return err
		}
		head, err := s.safeHead(ctx)
		if err == nil {
			err = s.deliverUpTo(ctx, head, out)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn("poll failed", zap.Uint64("next", s.next), zap.Error(err))
		}
	}
}

func (s *EventSource) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.after(s.cfg.PollInterval):
		return nil
	}
}

func (s *EventSource) safeHead(ctx context.Context) (uint64, error) {
	head, err := s.client.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	if head < s.cfg.Confirmations {
		return 0, nil
	}
	return head - s.cfg.Confirmations, nil
}

// deliverUpTo sends every log in [next, head] page by page. next only moves
// past a page once all of its events were handed over.
func (s *EventSource) deliverUpTo(ctx context.Context, head uint64, out chan<- events.ChainEvent) error {
	for s.next <= head {
		to := s.next + s.cfg.PageSize - 1
		if to > head {
			to = head
		}

		logs, err := s.client.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(s.next),
			ToBlock:   new(big.Int).SetUint64(to),
			Addresses: []common.Address{s.token},
		})
		if err != nil {
			return fmt.Errorf("failed to filter logs [%d, %d]: %w", s.next, to, err)
		}

		for _, l := range logs {
			if l.Removed {
				continue
			}
			if err := send(ctx, out, DecodeLog(l)); err != nil {
				return err
			}
		}

		s.log.Debug("delivered page", zap.Uint64("from", s.next), zap.Uint64("to", to), zap.Int("logs", len(logs)))
		s.next = to + 1
	}
	return nil
}

// DecodeLog turns a token log into a chain event.
func DecodeLog(l types.Log) events.ChainEvent {
	if len(l.Topics) == 3 && l.Topics[0] == TransferTopic {
		return events.Transfer{
			From:        common.BytesToAddress(l.Topics[1].Bytes()).Hex(),
			To:          common.BytesToAddress(l.Topics[2].Bytes()).Hex(),
			BlockNumber: l.BlockNumber,
			TxHash:      l.TxHash.Hex(),
			LogIndex:    l.Index,
		}
	}
	if len(l.Topics) == 0 {
		return events.Unknown{Event: "anonymous"}
	}
	return events.Unknown{Event: l.Topics[0].Hex()}
}

func send(ctx context.Context, out chan<- events.ChainEvent, ev events.ChainEvent) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case out <- ev:
		return nil
	}
}
