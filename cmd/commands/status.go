package commands

// Prints the cached snapshot as the derived view (readiness, decimal bases,
// holders sorted by balance) in JSON.

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/spf13/cobra"

	"wrapsync/internal/appstate"
	storage "wrapsync/internal/infra/fs"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the cached app state",
	RunE:  runStatus,
}

type statusOutput struct {
	appstate.View
	TotalHeld *big.Int `json:"totalHeld"`
	Identity  string   `json:"identity,omitempty"`
	LastBlock uint64   `json:"lastBlock"`
	UpdatedAt string   `json:"updatedAt,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	snap, err := storage.NewStateFile(cfg.App.DataDir).Load()
	if err != nil {
		return err
	}

	out := statusOutput{
		View:      appstate.NewView(snap.State),
		TotalHeld: appstate.TotalHeld(snap.State.Holders),
		Identity:  snap.Identity,
		LastBlock: snap.LastBlock,
	}
	if !snap.UpdatedAt.IsZero() {
		out.UpdatedAt = snap.UpdatedAt.Format("2006-01-02 15:04:05")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
