package commands

// Renders the holders chart from the cached snapshot.

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wrapsync/internal/appstate"
	"wrapsync/internal/features/holders"
	storage "wrapsync/internal/infra/fs"
	logging "wrapsync/internal/infra/log"
)

var holdersCmd = &cobra.Command{
	Use:   "holders",
	Short: "Render a chart of the largest holders",
	RunE:  runHolders,
}

var (
	holdersTop    int
	holdersOutput string
)

func init() {
	holdersCmd.Flags().IntVar(&holdersTop, "top", 10, "Number of holders to draw")
	holdersCmd.Flags().StringVar(&holdersOutput, "out", "", "Output PNG (default <data_dir>/holders_chart.png)")
}

func runHolders(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	defer logging.Sync()

	snap, err := storage.NewStateFile(cfg.App.DataDir).Load()
	if err != nil {
		return err
	}

	view := appstate.NewView(snap.State)
	if !view.AppStateReady {
		return fmt.Errorf("cached state is not ready yet, run sync first")
	}

	out := holdersOutput
	if out == "" {
		out = filepath.Join(cfg.App.DataDir, "holders_chart.png")
	}
	if err := holders.RenderChart(view, holdersTop, out); err != nil {
		return err
	}

	logging.LogSuccess("Holders chart saved", zap.String("path", out), zap.Int("holders", len(view.Holders)))
	return nil
}
