package chain

import (
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// Connector is the single handle on the chain runtime for the process.
// It is built once in main and passed to everything that reads the chain.
type Connector struct {
	caller ethereum.ContractCaller
	host   *Contract
}

func NewConnector(caller ethereum.ContractCaller, hostAddress common.Address) *Connector {
	return &Connector{
		caller: caller,
		host:   NewContract(hostAddress, hostABI, caller),
	}
}

// Host is the wrapper app contract exposing token() and erc20().
func (c *Connector) Host() Reader { return c.host }

// Token returns a handle on the governance (MiniMe) token.
func (c *Connector) Token(address common.Address) Reader {
	return NewContract(address, tokenABI, c.caller)
}

// ERC20 returns a handle on the wrapped standard token.
func (c *Connector) ERC20(address common.Address) Reader {
	return NewContract(address, erc20ABI, c.caller)
}
