package appstate

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var errRead = errors.New("read failed")

// fakeReader stands in for a token contract. failN makes the next n calls to
// a method fail; fail makes every call fail.
type fakeReader struct {
	mu          sync.Mutex
	values      map[string]any
	balances    map[common.Address]*big.Int
	fail        map[string]error
	failN       map[string]int
	failBalance map[common.Address]error
	panicOn     string
	calls       []string
}

func newFakeToken() *fakeReader {
	return &fakeReader{
		values: map[string]any{
			"decimals":         uint8(18),
			"symbol":           "WTKN",
			"name":             "Wrapped Token",
			"totalSupply":      big.NewInt(1000),
			"transfersEnabled": true,
		},
		balances:    map[common.Address]*big.Int{},
		fail:        map[string]error{},
		failN:       map[string]int{},
		failBalance: map[common.Address]error{},
	}
}

func newFakeERC20() *fakeReader {
	f := newFakeToken()
	f.values = map[string]any{
		"decimals":    uint8(6),
		"symbol":      "TKN",
		"name":        "Token",
		"totalSupply": big.NewInt(5000),
	}
	return f
}

func (f *fakeReader) setBalance(addr string, v int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[common.HexToAddress(addr)] = big.NewInt(v)
}

func (f *fakeReader) set(method string, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[method] = v
}

func (f *fakeReader) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *fakeReader) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, method)
	if method == f.panicOn {
		panic("boom")
	}
	if err := f.fail[method]; err != nil {
		return nil, err
	}
	if f.failN[method] > 0 {
		f.failN[method]--
		return nil, errRead
	}

	if method == "balanceOf" {
		addr, ok := args[0].(common.Address)
		if !ok {
			return nil, fmt.Errorf("balanceOf: bad argument %T", args[0])
		}
		if err := f.failBalance[addr]; err != nil {
			return nil, err
		}
		if b, ok := f.balances[addr]; ok {
			return []any{new(big.Int).Set(b)}, nil
		}
		return []any{new(big.Int)}, nil
	}

	v, ok := f.values[method]
	if !ok {
		return nil, fmt.Errorf("no method %s", method)
	}
	if b, ok := v.(*big.Int); ok {
		v = new(big.Int).Set(b)
	}
	return []any{v}, nil
}
