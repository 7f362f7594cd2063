package appstate

import (
	"context"
	"math/big"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wrapsync/internal/events"
)

func loadedState(t *testing.T) AppState {
	t.Helper()
	var s AppState
	require.NoError(t, s.Apply(LoadSettings(context.Background(), newFakeToken(), TokenSettings)))
	require.NoError(t, s.Apply(LoadSettings(context.Background(), newFakeERC20(), ERC20Settings)))
	s.TokenAddress = addrC
	return s
}

func TestReduceSyncStatusTogglesOnlyIsSyncing(t *testing.T) {
	r := NewReducer(newFakeToken())
	ctx := context.Background()

	start := loadedState(t)
	start.Holders = []Holder{holder(addrA, 10)}

	syncing := r.Reduce(ctx, start, events.SyncStatusSyncing{})
	assert.True(t, syncing.IsSyncing)

	synced := r.Reduce(ctx, syncing, events.SyncStatusSynced{})
	assert.False(t, synced.IsSyncing)

	expected := start
	expected.IsSyncing = false
	assert.Equal(t, expected, synced)
}

func TestReduceTransferRereadsBalancesAndSupply(t *testing.T) {
	token := newFakeToken()
	r := NewReducer(token)

	state := loadedState(t)
	state.Holders = []Holder{holder(addrA, 100)}

	token.setBalance(addrA, 60)
	token.setBalance(addrB, 40)
	token.set("totalSupply", big.NewInt(1100))

	next := r.Reduce(context.Background(), state, events.Transfer{From: addrA, To: addrB})

	require.Len(t, next.Holders, 2)
	assert.Equal(t, holder(addrA, 60), next.Holders[0])
	assert.Equal(t, holder(addrB, 40), next.Holders[1])
	assert.Equal(t, big.NewInt(1100), next.TokenSupply)

	// previous state is not modified
	assert.Equal(t, int64(100), state.Holders[0].Balance.Int64())
	assert.Equal(t, big.NewInt(1000), state.TokenSupply)
}

func TestReduceTransferDropsEmptiedSender(t *testing.T) {
	token := newFakeToken()
	r := NewReducer(token)

	state := loadedState(t)
	state.Holders = []Holder{holder(addrA, 100)}
	token.setBalance(addrA, 0)
	token.setBalance(addrB, 100)

	next := r.Reduce(context.Background(), state, events.Transfer{From: addrA, To: addrB})

	assert.Equal(t, []Holder{holder(addrB, 100)}, next.Holders)
}

func TestReduceTransferIsIdempotent(t *testing.T) {
	token := newFakeToken()
	r := NewReducer(token)
	ctx := context.Background()

	state := loadedState(t)
	state.Holders = []Holder{holder(addrA, 100)}
	token.setBalance(addrA, 30)
	token.setBalance(addrB, 70)

	ev := events.Transfer{From: addrA, To: addrB, BlockNumber: 9}
	once := r.Reduce(ctx, state, ev)
	twice := r.Reduce(ctx, once, ev)

	assert.Equal(t, once, twice)
}

func TestReduceTransferMint(t *testing.T) {
	token := newFakeToken()
	r := NewReducer(token)
	token.setBalance(addrA, 500)
	token.set("totalSupply", big.NewInt(1500))

	zero := common.Address{}.Hex()
	next := r.Reduce(context.Background(), loadedState(t), events.Transfer{From: zero, To: addrA})

	assert.Equal(t, []Holder{holder(addrA, 500)}, next.Holders)
	assert.Equal(t, big.NewInt(1500), next.TokenSupply)
}

func TestReduceKeepsPreviousStateOnFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fakeReader)
	}{
		{"balance read fails", func(f *fakeReader) { f.failBalance[common.HexToAddress(addrB)] = errRead }},
		{"supply read fails", func(f *fakeReader) { f.fail["totalSupply"] = errRead }},
		{"reader panics", func(f *fakeReader) { f.panicOn = "balanceOf" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := newFakeToken()
			token.setBalance(addrA, 1)
			token.setBalance(addrB, 99)
			tt.setup(token)

			state := loadedState(t)
			state.Holders = []Holder{holder(addrA, 100)}

			var next AppState
			require.NotPanics(t, func() {
				next = NewReducer(token).Reduce(context.Background(), state, events.Transfer{From: addrA, To: addrB})
			})
			assert.Equal(t, state, next)
		})
	}
}

func TestReduceUnknownEventIsIgnored(t *testing.T) {
	token := newFakeToken()
	state := loadedState(t)

	next := NewReducer(token).Reduce(context.Background(), state, events.Unknown{Event: "Approval"})
	assert.Equal(t, state, next)
	assert.Empty(t, token.calls)

	next = NewReducer(token).Reduce(context.Background(), state, nil)
	assert.Equal(t, state, next)
}

// Random event sequences with random read failures: the reducer never panics
// and the ledger stays keyed by address with only positive balances.
func TestReduceLedgerInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	addrs := []string{
		addrA, addrB, addrC,
		"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"0x0000000000000000000000000000000000000000",
	}

	token := newFakeToken()
	r := NewReducer(token)
	state := loadedState(t)

	for i := 0; i < 500; i++ {
		for _, a := range addrs[:3] {
			token.setBalance(a, int64(rng.Intn(4)))
		}
		token.mu.Lock()
		token.failN["balanceOf"] = 0
		if rng.Intn(5) == 0 {
			token.failN["balanceOf"] = 1
		}
		token.mu.Unlock()

		var ev events.ChainEvent
		switch rng.Intn(4) {
		case 0:
			ev = events.SyncStatusSyncing{}
		case 1:
			ev = events.SyncStatusSynced{}
		default:
			ev = events.Transfer{From: addrs[rng.Intn(len(addrs))], To: addrs[rng.Intn(len(addrs))]}
		}

		require.NotPanics(t, func() { state = r.Reduce(context.Background(), state, ev) })

		for j, h := range state.Holders {
			require.Positive(t, h.Balance.Sign(), "zero balance kept for %s", h.Address)
			for k := j + 1; k < len(state.Holders); k++ {
				require.False(t, AddressesEqual(h.Address, state.Holders[k].Address), "duplicate holder %s", h.Address)
			}
		}
	}
}
