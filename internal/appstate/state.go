// Package appstate keeps the cached application state of the wrapper app in
// sync with the chain: bootstrap, settings loading, the event reducer, the
// holder ledger and the store that owns and publishes the snapshot.
package appstate

import (
	"math/big"
	"time"
)

// Holder is an address with a nonzero token balance.
type Holder struct {
	Address string   `json:"address"`
	Balance *big.Int `json:"balance"`
}

// AppState is the snapshot exposed to observers. Settings fields are nil
// until loaded; a zero supply is a loaded value.
type AppState struct {
	IsSyncing    bool   `json:"isSyncing"`
	TokenAddress string `json:"tokenAddress,omitempty"`
	ERC20Address string `json:"erc20Address,omitempty"`

	TokenDecimals         *big.Int `json:"tokenDecimals,omitempty"`
	TokenSymbol           *string  `json:"tokenSymbol,omitempty"`
	TokenName             *string  `json:"tokenName,omitempty"`
	TokenSupply           *big.Int `json:"tokenSupply,omitempty"`
	TokenTransfersEnabled *bool    `json:"tokenTransfersEnabled,omitempty"`

	ERC20Decimals *big.Int `json:"erc20Decimals,omitempty"`
	ERC20Symbol   *string  `json:"erc20Symbol,omitempty"`
	ERC20Name     *string  `json:"erc20Name,omitempty"`
	ERC20Supply   *big.Int `json:"erc20Supply,omitempty"`

	Holders []Holder `json:"holders"`
}

// Clone copies the holders slice so the copy can be handed to observers.
// Big integers are shared: nothing in this package mutates them in place.
func (s AppState) Clone() AppState {
	out := s
	if s.Holders != nil {
		out.Holders = make([]Holder, len(s.Holders))
		copy(out.Holders, s.Holders)
	}
	return out
}

// Snapshot is what the store commits, persists and publishes.
type Snapshot struct {
	State AppState `json:"state"`
	// LastBlock is the highest block a Transfer was applied from.
	LastBlock uint64    `json:"lastBlock"`
	Identity  string    `json:"identity,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s Snapshot) Clone() Snapshot {
	out := s
	out.State = s.State.Clone()
	return out
}
