package appstate

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"wrapsync/internal/chain"
)

// ValueType is the type hint of a settings field.
type ValueType string

const (
	TypeBigNumber ValueType = "bignumber"
	TypeString    ValueType = "string"
	TypeBool      ValueType = "bool"
)

func firstOutput(ctx context.Context, r chain.Reader, method string, args ...any) (any, error) {
	out, err := r.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return out[0], nil
}

func readAddress(ctx context.Context, r chain.Reader, method string) (common.Address, error) {
	v, err := firstOutput(ctx, r, method)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := v.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: expected address, got %T", method, v)
	}
	return addr, nil
}

func readBigInt(ctx context.Context, r chain.Reader, method string, args ...any) (*big.Int, error) {
	v, err := firstOutput(ctx, r, method, args...)
	if err != nil {
		return nil, err
	}
	return toBigInt(v)
}

func readString(ctx context.Context, r chain.Reader, method string) (string, error) {
	v, err := firstOutput(ctx, r, method)
	if err != nil {
		return "", err
	}
	return toString(v)
}

func decode(v any, t ValueType) (any, error) {
	switch t {
	case TypeBigNumber:
		return toBigInt(v)
	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", v)
		}
		return b, nil
	case TypeString, "":
		return toString(v)
	default:
		return nil, fmt.Errorf("unknown value type %q", t)
	}
}

func toBigInt(v any) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, fmt.Errorf("nil big integer")
		}
		return new(big.Int).Set(n), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case int64:
		return big.NewInt(n), nil
	case int:
		return big.NewInt(int64(n)), nil
	case string:
		b, ok := new(big.Int).SetString(n, 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", n)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("expected integer, got %T", v)
	}
}

// toString also accepts bytes32, which some older tokens use for name/symbol.
func toString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case [32]byte:
		return strings.TrimRight(string(s[:]), "\x00"), nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}
