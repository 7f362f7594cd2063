package notify

// Telegram notifications driven by store snapshots.
// Sends a summary with a holders chart when a catch-up finishes and a short
// message whenever the number of holders changes afterwards.

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"wrapsync/internal/appstate"
	"wrapsync/internal/features/holders"
	logging "wrapsync/internal/infra/log"
)

// Sender is satisfied by *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Telegram struct {
	bot      Sender
	chatID   int64
	topN     int
	chartDir string
	log      *zap.Logger

	prev *appstate.Snapshot
}

func NewTelegram(bot Sender, chatID int64, topN int, chartDir string) *Telegram {
	if topN <= 0 {
		topN = 10
	}
	return &Telegram{
		bot:      bot,
		chatID:   chatID,
		topN:     topN,
		chartDir: chartDir,
		log:      logging.Named("telegram"),
	}
}

// NewBot connects to the Telegram API with token.
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	logging.LogInfo("Telegram bot authorized", zap.String("username", bot.Self.UserName))
	return bot, nil
}

// Run handles snapshots until ctx is done or updates is closed.
func (t *Telegram) Run(ctx context.Context, updates <-chan appstate.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := t.Handle(snap); err != nil {
				t.log.Error("failed to notify", zap.Error(err))
			}
		}
	}
}

// Handle compares snap with the previous snapshot and sends what changed.
func (t *Telegram) Handle(snap appstate.Snapshot) error {
	prev := t.prev
	t.prev = &snap
	if prev == nil {
		return nil
	}

	view := appstate.NewView(snap.State)
	if !view.AppStateReady {
		return nil
	}

	switch {
	case prev.State.IsSyncing && !snap.State.IsSyncing:
		if err := t.send(tgbotapi.NewMessage(t.chatID, Summary(snap.Identity, view, t.topN))); err != nil {
			return err
		}
		return t.sendChart(view)
	case !snap.State.IsSyncing && len(prev.State.Holders) != len(snap.State.Holders):
		text := fmt.Sprintf("%s holders: %d → %d", displayName(snap.Identity, view), len(prev.State.Holders), len(snap.State.Holders))
		return t.send(tgbotapi.NewMessage(t.chatID, text))
	}
	return nil
}

func (t *Telegram) sendChart(view appstate.View) error {
	if len(view.Holders) == 0 {
		return nil
	}
	path := filepath.Join(t.chartDir, "holders_chart.png")
	if err := holders.RenderChart(view, t.topN, path); err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(t.chatID, tgbotapi.FilePath(path))
	photo.Caption = fmt.Sprintf("Top %d holders", min(t.topN, len(view.Holders)))
	return t.send(photo)
}

func (t *Telegram) send(c tgbotapi.Chattable) error {
	if _, err := t.bot.Send(c); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func displayName(identity string, view appstate.View) string {
	if identity != "" {
		return identity
	}
	if view.TokenSymbol != nil {
		return *view.TokenSymbol
	}
	return "Token"
}

// Summary is the plain-text report sent when a sync completes.
func Summary(identity string, view appstate.View, topN int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s synced\n", displayName(identity, view))
	if view.TokenSupply != nil {
		fmt.Fprintf(&b, "Supply: %s\n", appstate.FormatAmount(view.TokenSupply, view.TokenDecimalsBase, 4))
	}
	if view.ERC20Symbol != nil && view.ERC20Supply != nil {
		fmt.Fprintf(&b, "Wraps: %s (supply %s)\n", *view.ERC20Symbol, appstate.FormatAmount(view.ERC20Supply, view.ERC20DecimalsBase, 4))
	}
	fmt.Fprintf(&b, "Holders: %d, holding %s\n", len(view.Holders),
		appstate.FormatAmount(appstate.TotalHeld(view.Holders), view.TokenDecimalsBase, 4))
	for i, h := range view.Holders {
		if i >= topN {
			break
		}
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, holders.ShortAddress(h.Address), appstate.FormatAmount(h.Balance, view.TokenDecimalsBase, 4))
	}
	return strings.TrimRight(b.String(), "\n")
}
