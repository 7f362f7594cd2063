package appstate

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAddrs = Addresses{Token: common.HexToAddress(addrA), ERC20: common.HexToAddress(addrB)}

func TestInitLoadsSettingsAndIdentity(t *testing.T) {
	token, erc20 := newFakeToken(), newFakeERC20()
	var identity string

	s := NewInitializer(testAddrs, token, erc20, func(name string) { identity = name }).
		Init(context.Background(), AppState{})

	assert.Equal(t, "WTKN", identity)
	assert.True(t, s.IsSyncing)
	assert.Equal(t, testAddrs.Token.Hex(), s.TokenAddress)
	assert.Equal(t, testAddrs.ERC20.Hex(), s.ERC20Address)
	assert.True(t, HasLoadedTokenSettings(&s))
	assert.True(t, HasLoadedERC20Settings(&s))
	assert.Equal(t, "TKN", *s.ERC20Symbol)
	assert.Equal(t, big.NewInt(6), s.ERC20Decimals)
}

func TestInitSymbolFailureIsNotFatal(t *testing.T) {
	token, erc20 := newFakeToken(), newFakeERC20()
	token.failN["symbol"] = 1
	called := false

	s := NewInitializer(testAddrs, token, erc20, func(string) { called = true }).
		Init(context.Background(), AppState{})

	assert.False(t, called)
	assert.True(t, HasLoadedTokenSettings(&s))
	assert.True(t, s.IsSyncing)
}

func TestInitSkipsSettingsAlreadyCached(t *testing.T) {
	cached := loadedState(t)
	cached.TokenAddress = testAddrs.Token.Hex()
	cached.Holders = []Holder{holder(addrC, 3)}

	token, erc20 := newFakeToken(), newFakeERC20()
	s := NewInitializer(testAddrs, token, erc20, nil).Init(context.Background(), cached)

	assert.Zero(t, token.callCount("decimals"))
	assert.Zero(t, erc20.callCount("decimals"))
	assert.Equal(t, cached.Holders, s.Holders)
}

func TestInitKeepsSettingsAbsentOnBatchFailure(t *testing.T) {
	token, erc20 := newFakeToken(), newFakeERC20()
	erc20.fail["totalSupply"] = errRead

	s := NewInitializer(testAddrs, token, erc20, nil).Init(context.Background(), AppState{})

	assert.True(t, HasLoadedTokenSettings(&s))
	assert.False(t, HasLoadedERC20Settings(&s))
	assert.Nil(t, s.ERC20Symbol)
}

func TestInitDiscardsStateOfOtherContracts(t *testing.T) {
	cached := loadedState(t)
	cached.TokenAddress = addrC
	cached.Holders = []Holder{holder(addrC, 3)}

	token, erc20 := newFakeToken(), newFakeERC20()
	s := NewInitializer(testAddrs, token, erc20, nil).Init(context.Background(), cached)

	assert.Empty(t, s.Holders)
	assert.Equal(t, 1, token.callCount("decimals"))
}

func TestLoadMissingSettingsRetriesLater(t *testing.T) {
	token, erc20 := newFakeToken(), newFakeERC20()
	token.failN["decimals"] = 1
	initializer := NewInitializer(testAddrs, token, erc20, nil)

	s := initializer.LoadMissingSettings(context.Background(), AppState{})
	require.False(t, HasLoadedTokenSettings(&s))
	require.True(t, HasLoadedERC20Settings(&s))

	s = initializer.LoadMissingSettings(context.Background(), s)
	assert.True(t, HasLoadedTokenSettings(&s))
	assert.Equal(t, 1, erc20.callCount("decimals"))
}
