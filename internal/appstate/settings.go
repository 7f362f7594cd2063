package appstate

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wrapsync/internal/chain"
	"wrapsync/internal/infra/log"
)

// Setting is one static metadata field: the contract method to call, the
// state key it fills and how to decode the result.
type Setting struct {
	Method string
	Key    string
	Type   ValueType
}

var TokenSettings = []Setting{
	{"decimals", "tokenDecimals", TypeBigNumber},
	{"symbol", "tokenSymbol", TypeString},
	{"name", "tokenName", TypeString},
	{"totalSupply", "tokenSupply", TypeBigNumber},
	{"transfersEnabled", "tokenTransfersEnabled", TypeBool},
}

var ERC20Settings = []Setting{
	{"decimals", "erc20Decimals", TypeBigNumber},
	{"symbol", "erc20Symbol", TypeString},
	{"name", "erc20Name", TypeString},
	{"totalSupply", "erc20Supply", TypeBigNumber},
}

// Fragment maps state keys to decoded values.
type Fragment map[string]any

// LoadSettings reads every field in parallel and merges the results. If any
// read fails the whole batch is dropped and an empty fragment is returned,
// so the settings stay absent and are tried again later.
func LoadSettings(ctx context.Context, r chain.Reader, settings []Setting) Fragment {
	values := make([]any, len(settings))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range settings {
		i, s := i, s
		goSafe(g, func() error {
			raw, err := firstOutput(gctx, r, s.Method)
			if err != nil {
				return fmt.Errorf("%s: %w", s.Method, err)
			}
			v, err := decode(raw, s.Type)
			if err != nil {
				return fmt.Errorf("%s: %w", s.Method, err)
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.LogWarn("Failed to load settings batch", zap.Strings("keys", settingKeys(settings)), zap.Error(err))
		return Fragment{}
	}

	merged := make(Fragment, len(settings))
	for i, s := range settings {
		merged[s.Key] = values[i]
	}
	return merged
}

func settingKeys(settings []Setting) []string {
	keys := make([]string, len(settings))
	for i, s := range settings {
		keys[i] = s.Key
	}
	return keys
}

// Apply copies every fragment value into the matching field.
func (s *AppState) Apply(f Fragment) error {
	next := *s
	for key, v := range f {
		if err := next.set(key, v); err != nil {
			return err
		}
	}
	*s = next
	return nil
}

func (s *AppState) set(key string, v any) error {
	var ok bool
	switch key {
	case "tokenDecimals":
		s.TokenDecimals, ok = v.(*big.Int)
	case "tokenSupply":
		s.TokenSupply, ok = v.(*big.Int)
	case "erc20Decimals":
		s.ERC20Decimals, ok = v.(*big.Int)
	case "erc20Supply":
		s.ERC20Supply, ok = v.(*big.Int)
	case "tokenSymbol":
		s.TokenSymbol, ok = stringPtr(v)
	case "tokenName":
		s.TokenName, ok = stringPtr(v)
	case "erc20Symbol":
		s.ERC20Symbol, ok = stringPtr(v)
	case "erc20Name":
		s.ERC20Name, ok = stringPtr(v)
	case "tokenTransfersEnabled":
		var b bool
		if b, ok = v.(bool); ok {
			s.TokenTransfersEnabled = &b
		}
	default:
		return fmt.Errorf("unknown state key %q", key)
	}
	if !ok {
		return fmt.Errorf("state key %q: unexpected value %T", key, v)
	}
	return nil
}

func stringPtr(v any) (*string, bool) {
	str, ok := v.(string)
	if !ok {
		return nil, false
	}
	return &str, true
}

func (s *AppState) has(key string) bool {
	switch key {
	case "tokenDecimals":
		return s.TokenDecimals != nil
	case "tokenSymbol":
		return s.TokenSymbol != nil
	case "tokenName":
		return s.TokenName != nil
	case "tokenSupply":
		return s.TokenSupply != nil
	case "tokenTransfersEnabled":
		return s.TokenTransfersEnabled != nil
	case "erc20Decimals":
		return s.ERC20Decimals != nil
	case "erc20Symbol":
		return s.ERC20Symbol != nil
	case "erc20Name":
		return s.ERC20Name != nil
	case "erc20Supply":
		return s.ERC20Supply != nil
	}
	return false
}

func hasLoaded(s *AppState, settings []Setting) bool {
	if s == nil {
		return false
	}
	for _, setting := range settings {
		if !s.has(setting.Key) {
			return false
		}
	}
	return true
}

func HasLoadedTokenSettings(s *AppState) bool { return hasLoaded(s, TokenSettings) }

func HasLoadedERC20Settings(s *AppState) bool { return hasLoaded(s, ERC20Settings) }
