package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ErrNoResult is returned when a call comes back empty, usually because
// there is no contract at the address.
var ErrNoResult = errors.New("chain: empty call result")

// Reader is a read-only handle on a deployed contract.
type Reader interface {
	Call(ctx context.Context, method string, args ...any) ([]any, error)
}

// Contract packs calls with its ABI and unpacks the outputs.
type Contract struct {
	address common.Address
	abi     abi.ABI
	caller  ethereum.ContractCaller
}

func NewContract(address common.Address, contractABI abi.ABI, caller ethereum.ContractCaller) *Contract {
	return &Contract{address: address, abi: contractABI, caller: caller}
}

func (c *Contract) Address() common.Address { return c.address }

// Call runs a constant method against the latest block.
func (c *Contract) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	out, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &c.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s on %s: %w", method, c.address.Hex(), err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s on %s: %w", method, c.address.Hex(), ErrNoResult)
	}

	values, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return values, nil
}
