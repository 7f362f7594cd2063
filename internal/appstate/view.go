package appstate

import (
	"math/big"
	"sort"
	"strings"
)

// View is the state as consumed by readers: readiness, decimal bases and
// holders sorted by balance, largest first.
type View struct {
	AppState
	AppStateReady     bool     `json:"appStateReady"`
	TokenDecimalsBase *big.Int `json:"tokenDecimalsBase,omitempty"`
	ERC20DecimalsBase *big.Int `json:"erc20DecimalsBase,omitempty"`
	Holders           []Holder `json:"holders"`
}

func NewView(state AppState) View {
	ready := HasLoadedTokenSettings(&state)
	v := View{AppState: state, AppStateReady: ready, Holders: state.Holders}
	if !ready {
		return v
	}

	v.TokenDecimalsBase = decimalsBase(state.TokenDecimals)
	if state.ERC20Decimals != nil {
		v.ERC20DecimalsBase = decimalsBase(state.ERC20Decimals)
	}

	v.Holders = make([]Holder, len(state.Holders))
	copy(v.Holders, state.Holders)
	sort.SliceStable(v.Holders, func(i, j int) bool {
		return balanceOf(v.Holders[i]).Cmp(balanceOf(v.Holders[j])) > 0
	})
	return v
}

var zero = new(big.Int)

// balanceOf treats a missing balance as zero.
func balanceOf(h Holder) *big.Int {
	if h.Balance == nil {
		return zero
	}
	return h.Balance
}

func decimalsBase(decimals *big.Int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), decimals, nil)
}

// FormatAmount renders amount / base with at most precision fraction digits.
func FormatAmount(amount, base *big.Int, precision int) string {
	if amount == nil {
		return "0"
	}
	if base == nil || base.Sign() == 0 {
		return amount.String()
	}
	f := new(big.Float).SetPrec(256).Quo(new(big.Float).SetInt(amount), new(big.Float).SetInt(base))
	return trimZeros(f.Text('f', precision))
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	return strings.TrimSuffix(strings.TrimRight(s, "0"), ".")
}
