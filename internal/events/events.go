// Package events defines the closed set of chain events folded into the app state.
package events

import "fmt"

// Names used on the wire by the event source.
const (
	NameTransfer          = "Transfer"
	NameSyncStatusSyncing = "SYNC_STATUS_SYNCING"
	NameSyncStatusSynced  = "SYNC_STATUS_SYNCED"
)

// ChainEvent is one of Transfer, SyncStatusSyncing, SyncStatusSynced or Unknown.
type ChainEvent interface {
	Name() string
	isChainEvent()
}

// Transfer is emitted by the token contract for every balance move,
// including mints (From is the zero address) and burns (To is the zero address).
type Transfer struct {
	From        string
	To          string
	BlockNumber uint64
	TxHash      string
	LogIndex    uint
}

// SyncStatusSyncing marks the start of a catch-up over past blocks.
type SyncStatusSyncing struct{}

// SyncStatusSynced marks that the source reached the chain head.
type SyncStatusSynced struct{}

// Unknown carries any event the reducer has no arm for.
type Unknown struct {
	Event string
}

func (Transfer) Name() string          { return NameTransfer }
func (SyncStatusSyncing) Name() string { return NameSyncStatusSyncing }
func (SyncStatusSynced) Name() string  { return NameSyncStatusSynced }
func (u Unknown) Name() string         { return u.Event }

func (Transfer) isChainEvent()          {}
func (SyncStatusSyncing) isChainEvent() {}
func (SyncStatusSynced) isChainEvent()  {}
func (Unknown) isChainEvent()           {}

func (t Transfer) String() string {
	return fmt.Sprintf("Transfer{from=%s to=%s block=%d}", t.From, t.To, t.BlockNumber)
}
