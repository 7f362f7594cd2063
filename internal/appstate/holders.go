package appstate

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"wrapsync/internal/chain"
)

// AddressesEqual compares addresses ignoring case and checksum format.
func AddressesEqual(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if common.IsHexAddress(a) && common.IsHexAddress(b) {
		return common.HexToAddress(a) == common.HexToAddress(b)
	}
	return strings.EqualFold(a, b)
}

// LoadNewBalances reads the current balance of every address in parallel.
// One failed read fails the whole batch.
func LoadNewBalances(ctx context.Context, token chain.Reader, addresses ...string) ([]Holder, error) {
	out := make([]Holder, len(addresses))

	g, gctx := errgroup.WithContext(ctx)
	for i, addr := range addresses {
		i, addr := i, addr
		goSafe(g, func() error {
			if !common.IsHexAddress(addr) {
				return fmt.Errorf("invalid address %q", addr)
			}
			balance, err := readBigInt(gctx, token, "balanceOf", common.HexToAddress(addr))
			if err != nil {
				return fmt.Errorf("balanceOf(%s): %w", addr, err)
			}
			out[i] = Holder{Address: addr, Balance: balance}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load new balances for %s: %w", strings.Join(addresses, ", "), err)
	}
	return out, nil
}

// UpdateHolders upserts every change (replacing in place, appending when the
// address is new) and then drops holders left with a zero balance. The input
// slice is not modified.
func UpdateHolders(holders []Holder, changes []Holder) []Holder {
	next := make([]Holder, len(holders), len(holders)+len(changes))
	copy(next, holders)

	for _, changed := range changes {
		idx := -1
		for i, h := range next {
			if AddressesEqual(h.Address, changed.Address) {
				idx = i
				break
			}
		}
		if idx == -1 {
			next = append(next, changed)
		} else {
			next[idx] = changed
		}
	}

	out := next[:0]
	for _, h := range next {
		if h.Balance != nil && h.Balance.Sign() > 0 {
			out = append(out, h)
		}
	}
	return out
}

// TotalHeld sums all holder balances.
func TotalHeld(holders []Holder) *big.Int {
	total := new(big.Int)
	for _, h := range holders {
		if h.Balance != nil {
			total.Add(total, h.Balance)
		}
	}
	return total
}
