package appstate

import (
	"context"

	"go.uber.org/zap"

	"wrapsync/internal/chain"
	"wrapsync/internal/infra/log"
)

// Initializer builds the first state from the cached snapshot once the
// contract addresses are known.
type Initializer struct {
	addrs    Addresses
	token    chain.Reader
	erc20    chain.Reader
	identify func(string)
	log      *zap.Logger
}

// NewInitializer takes the readers for both tokens. identify receives the
// token symbol as the display identity and may be nil.
func NewInitializer(addrs Addresses, token, erc20 chain.Reader, identify func(string)) *Initializer {
	if identify == nil {
		identify = func(string) {}
	}
	return &Initializer{
		addrs:    addrs,
		token:    token,
		erc20:    erc20,
		identify: identify,
		log:      log.Named("initializer"),
	}
}

// InitSnapshot is Init over a whole snapshot. A snapshot of other contracts
// is dropped entirely, so its LastBlock cannot be used to resume.
func (i *Initializer) InitSnapshot(ctx context.Context, cached Snapshot) Snapshot {
	if !i.addrs.Own(cached.State) {
		i.log.Warn("cached snapshot belongs to other contracts, resuming from scratch",
			zap.Uint64("cachedLastBlock", cached.LastBlock))
		cached = Snapshot{}
	}
	cached.State = i.Init(ctx, cached.State)
	return cached
}

// Init registers the display identity, loads the settings missing from the
// cached state and marks the state as syncing. A cached state that belongs to
// other contracts is discarded.
func (i *Initializer) Init(ctx context.Context, cached AppState) AppState {
	if symbol, err := readString(ctx, i.token, "symbol"); err != nil {
		i.log.Error("failed to load token symbol",
			zap.String("token", i.addrs.Token.Hex()),
			zap.Error(err))
	} else {
		i.identify(symbol)
	}

	next := cached
	if !i.addrs.Own(cached) {
		i.log.Warn("cached state belongs to other contracts, starting empty",
			zap.String("cachedToken", cached.TokenAddress),
			zap.String("cachedErc20", cached.ERC20Address))
		next = AppState{}
	}

	next = i.LoadMissingSettings(ctx, next)
	next.IsSyncing = true
	next.TokenAddress = i.addrs.Token.Hex()
	next.ERC20Address = i.addrs.ERC20.Hex()
	return next
}

// LoadMissingSettings fetches each settings batch that is not already in state.
func (i *Initializer) LoadMissingSettings(ctx context.Context, state AppState) AppState {
	next := state
	if !HasLoadedTokenSettings(&next) {
		if err := next.Apply(LoadSettings(ctx, i.token, TokenSettings)); err != nil {
			i.log.Error("failed to apply token settings", zap.Error(err))
		}
	}
	if !HasLoadedERC20Settings(&next) {
		if err := next.Apply(LoadSettings(ctx, i.erc20, ERC20Settings)); err != nil {
			i.log.Error("failed to apply erc20 settings", zap.Error(err))
		}
	}
	return next
}
