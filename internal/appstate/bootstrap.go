package appstate

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"wrapsync/internal/chain"
	"wrapsync/internal/infra/log"
	"wrapsync/internal/infra/retry"
)

// Addresses are the two contracts the wrapper app is configured with.
type Addresses struct {
	Token common.Address
	ERC20 common.Address
}

// Own reports whether state was built for these contracts. A state with no
// addresses yet belongs to anyone.
func (a Addresses) Own(state AppState) bool {
	if state.TokenAddress != "" && !AddressesEqual(state.TokenAddress, a.Token.Hex()) {
		return false
	}
	return state.ERC20Address == "" || AddressesEqual(state.ERC20Address, a.ERC20.Hex())
}

// Bootstrap reads token() and then erc20() from the host contract, retrying
// the pair on the policy schedule until both succeed or ctx is done.
// erc20() is only requested once token() succeeded in the same attempt.
func Bootstrap(ctx context.Context, host chain.Reader, policy retry.Policy, opts ...retry.Option) (Addresses, error) {
	var addrs Addresses

	attempt := func(ctx context.Context) error {
		token, err := readAddress(ctx, host, "token")
		if err != nil {
			log.LogError("Could not start background sync, the contract did not return the token", zap.Error(err))
			return fmt.Errorf("token: %w", err)
		}
		erc20, err := readAddress(ctx, host, "erc20")
		if err != nil {
			log.LogError("Could not start background sync, the contract did not return the erc20", zap.Error(err))
			return fmt.Errorf("erc20: %w", err)
		}
		addrs = Addresses{Token: token, ERC20: erc20}
		return nil
	}

	opts = append([]retry.Option{retry.WithName("bootstrap")}, opts...)
	if err := retry.Every(ctx, policy, attempt, opts...).Wait(); err != nil {
		return Addresses{}, err
	}

	log.LogSuccess("Resolved app contracts",
		zap.String("token", addrs.Token.Hex()),
		zap.String("erc20", addrs.ERC20.Hex()))
	return addrs, nil
}
