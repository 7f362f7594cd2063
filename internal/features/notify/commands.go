package notify

import (
	"context"
	"fmt"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"wrapsync/internal/appstate"
	"wrapsync/internal/features/holders"
	logging "wrapsync/internal/infra/log"
)

const helpText = "Commands:\n" +
	"/status - sync status, supply and holder count\n" +
	"/holders - chart of the largest holders\n" +
	"/help - this message"

// SnapshotSource is satisfied by *appstate.Store.
type SnapshotSource interface {
	Snapshot() appstate.Snapshot
}

// Commands answers chat commands from the latest committed snapshot. Only
// messages from the configured chat are handled.
type Commands struct {
	bot      Sender
	chatID   int64
	topN     int
	chartDir string
	source   SnapshotSource
	log      *zap.Logger
}

func NewCommands(bot Sender, chatID int64, topN int, chartDir string, source SnapshotSource) *Commands {
	if topN <= 0 {
		topN = 10
	}
	return &Commands{
		bot:      bot,
		chatID:   chatID,
		topN:     topN,
		chartDir: chartDir,
		source:   source,
		log:      logging.Named("telegram-commands"),
	}
}

// Run handles updates until ctx is done or updates is closed.
func (c *Commands) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	logging.LogInfo("Starting command handler", zap.Int64("chatID", c.chatID))
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			if err := c.Handle(update.Message); err != nil {
				c.log.Error("failed to answer command", zap.String("command", update.Message.Command()), zap.Error(err))
			}
		}
	}
}

// Handle answers a single message. Messages from other chats and plain text
// are ignored.
func (c *Commands) Handle(msg *tgbotapi.Message) error {
	if msg.Chat == nil || msg.Chat.ID != c.chatID || !msg.IsCommand() {
		return nil
	}

	c.log.Debug("received command", zap.String("command", msg.Command()), zap.String("args", msg.CommandArguments()))

	switch msg.Command() {
	case "status":
		return c.reply(msg, statusText(c.source.Snapshot(), c.topN))
	case "holders":
		return c.holdersChart(msg)
	case "help", "start":
		return c.reply(msg, helpText)
	}
	return nil
}

func statusText(snap appstate.Snapshot, topN int) string {
	view := appstate.NewView(snap.State)
	if !view.AppStateReady {
		return "Token settings are not loaded yet"
	}
	text := Summary(snap.Identity, view, topN)
	if snap.State.IsSyncing {
		text = "Catching up with the chain...\n" + text
	}
	return fmt.Sprintf("%s\nLast block: %d", text, snap.LastBlock)
}

func (c *Commands) holdersChart(msg *tgbotapi.Message) error {
	view := appstate.NewView(c.source.Snapshot().State)
	if !view.AppStateReady || len(view.Holders) == 0 {
		return c.reply(msg, "No holders yet")
	}

	path := filepath.Join(c.chartDir, "holders_chart.png")
	if err := holders.RenderChart(view, c.topN, path); err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FilePath(path))
	photo.Caption = fmt.Sprintf("Top %d holders", min(c.topN, len(view.Holders)))
	photo.ReplyToMessageID = msg.MessageID
	_, err := c.bot.Send(photo)
	return err
}

func (c *Commands) reply(msg *tgbotapi.Message, text string) error {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyToMessageID = msg.MessageID
	if _, err := c.bot.Send(out); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
