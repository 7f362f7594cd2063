package appstate

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsMergesAllFields(t *testing.T) {
	token := newFakeToken()

	f := LoadSettings(context.Background(), token, TokenSettings)
	require.Len(t, f, len(TokenSettings))
	assert.Equal(t, big.NewInt(18), f["tokenDecimals"])
	assert.Equal(t, "WTKN", f["tokenSymbol"])
	assert.Equal(t, "Wrapped Token", f["tokenName"])
	assert.Equal(t, big.NewInt(1000), f["tokenSupply"])
	assert.Equal(t, true, f["tokenTransfersEnabled"])

	var s AppState
	require.NoError(t, s.Apply(f))
	assert.True(t, HasLoadedTokenSettings(&s))
	assert.False(t, HasLoadedERC20Settings(&s))
}

func TestLoadSettingsIsAllOrNothing(t *testing.T) {
	token := newFakeToken()
	token.fail["name"] = errRead

	f := LoadSettings(context.Background(), token, TokenSettings)
	assert.Empty(t, f)

	var s AppState
	require.NoError(t, s.Apply(f))
	assert.False(t, HasLoadedTokenSettings(&s))
	assert.Nil(t, s.TokenDecimals)
	assert.False(t, NewView(s).AppStateReady)
}

func TestLoadSettingsRejectsWrongTypes(t *testing.T) {
	erc20 := newFakeERC20()
	erc20.set("symbol", true)

	assert.Empty(t, LoadSettings(context.Background(), erc20, ERC20Settings))
}

func TestHasLoadedAcceptsZeroSupply(t *testing.T) {
	erc20 := newFakeERC20()
	erc20.set("totalSupply", big.NewInt(0))

	var s AppState
	require.NoError(t, s.Apply(LoadSettings(context.Background(), erc20, ERC20Settings)))
	assert.True(t, HasLoadedERC20Settings(&s))
	assert.Equal(t, 0, s.ERC20Supply.Sign())
}

func TestHasLoadedNilState(t *testing.T) {
	assert.False(t, HasLoadedTokenSettings(nil))
	assert.False(t, HasLoadedERC20Settings(nil))
}

func TestApplyUnknownKeyLeavesStateUntouched(t *testing.T) {
	s := AppState{IsSyncing: true}
	err := s.Apply(Fragment{"tokenName": "x", "nope": 1})
	assert.Error(t, err)
	assert.Nil(t, s.TokenName)
}

func TestDecodeBytes32String(t *testing.T) {
	var raw [32]byte
	copy(raw[:], "MKR")
	v, err := decode(raw, TypeString)
	require.NoError(t, err)
	assert.Equal(t, "MKR", v)
}
