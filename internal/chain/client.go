// Package chain is rate limited, circuit-broken access to an Ethereum
// JSON-RPC node plus the token log source. It knows nothing about the app.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"wrapsync/internal/infra/log"
	"wrapsync/internal/infra/retry"
)

var ErrBreakerOpen = errors.New("chain: circuit breaker open")

// JSON-RPC error code nodes use for a reverted eth_call.
const revertErrorCode = 3

// Backend is what the client needs from a node. *ethclient.Client implements it.
type Backend interface {
	ethereum.ContractCaller
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

type ClientOptions struct {
	RateLimit       float64 // requests per second, <= 0 disables limiting
	RateBurst       int
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

var DefaultClientOptions = ClientOptions{
	RateLimit:       10,
	RateBurst:       20,
	BreakerFailures: 5,
	BreakerTimeout:  30 * time.Second,
}

type Client struct {
	backend        Backend
	closer         func()
	rateLimiter    *rate.Limiter
	circuitBreaker *gobreaker.CircuitBreaker
	log            *zap.Logger
}

// Dial connects to rpcURL, retrying transient failures a few times.
func Dial(ctx context.Context, rpcURL string, opts ClientOptions) (*Client, error) {
	var eth *ethclient.Client
	err := retry.Do(ctx, retry.Options{MaxRetries: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second}, func() error {
		c, err := ethclient.DialContext(ctx, rpcURL)
		if err != nil {
			if !knownScheme(rpcURL) {
				return backoff.Permanent(err)
			}
			log.LogWarn("Failed to dial chain node", zap.String("rpc", rpcURL), zap.Error(err))
			return err
		}
		eth = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}
	c := NewClient(eth, opts)
	c.closer = eth.Close
	return c, nil
}

// knownScheme reports whether rpcURL names a transport the node client can
// dial. Anything else fails the same way on every attempt.
func knownScheme(rpcURL string) bool {
	u, err := url.Parse(rpcURL)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss", "stdio", "":
		return true
	}
	return false
}

// nodeHealthy reports whether err leaves the node's health untouched. A
// reverted call or a caller giving up says nothing about the node.
func nodeHealthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == revertErrorCode {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}

func NewClient(backend Backend, opts ClientOptions) *Client {
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = DefaultClientOptions.BreakerFailures
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = DefaultClientOptions.BreakerTimeout
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	logger := log.Named("chain")
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         "ChainRPC",
		MaxRequests:  3,
		Interval:     60 * time.Second,
		Timeout:      opts.BreakerTimeout,
		IsSuccessful: nodeHealthy,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		backend:        backend,
		rateLimiter:    limiter,
		circuitBreaker: breaker,
		log:            logger,
	}
}

func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

func (c *Client) do(ctx context.Context, op string, fn func() (interface{}, error)) (interface{}, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: rate limiter: %w", op, err)
		}
	}
	start := time.Now()
	res, err := c.circuitBreaker.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: %w", op, ErrBreakerOpen)
		}
		c.log.Debug("rpc failed", zap.String("op", op), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.log.Debug("rpc ok", zap.String("op", op), zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	return res, nil
}

func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	res, err := c.do(ctx, "eth_call", func() (interface{}, error) {
		return c.backend.CallContract(ctx, msg, blockNumber)
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	res, err := c.do(ctx, "eth_getLogs", func() (interface{}, error) {
		return c.backend.FilterLogs(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	return res.([]types.Log), nil
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	res, err := c.do(ctx, "eth_blockNumber", func() (interface{}, error) {
		return c.backend.BlockNumber(ctx)
	})
	if err != nil {
		return 0, err
	}
	return res.(uint64), nil
}
