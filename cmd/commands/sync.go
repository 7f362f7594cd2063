package commands

// Runs the state sync: bootstrap the contract addresses, initialize the
// cached state, then fold chain events into it until interrupted.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wrapsync/internal/appstate"
	"wrapsync/internal/chain"
	"wrapsync/internal/events"
	"wrapsync/internal/features/notify"
	"wrapsync/internal/infra/config"
	storage "wrapsync/internal/infra/fs"
	logging "wrapsync/internal/infra/log"
	"wrapsync/internal/infra/retry"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the background state sync",
	Long:  `Resolve the token and erc20 addresses from the app contract, then keep the cached state in sync with Transfer events.`,
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	defer logging.Sync()

	hostAddress, err := cfg.Chain.HostContract()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := chain.Dial(ctx, cfg.Chain.RPCURL, chain.ClientOptions{
		RateLimit:       cfg.Chain.RateLimit,
		RateBurst:       cfg.Chain.RateBurst,
		BreakerFailures: cfg.Chain.BreakerFailures,
	})
	if err != nil {
		logging.LogError("Failed to connect to chain node", zap.Error(err))
		return err
	}
	defer client.Close()

	connector := chain.NewConnector(client, hostAddress)

	stateFile := storage.NewStateFile(cfg.App.DataDir)
	cached, err := stateFile.Load()
	if err != nil {
		logging.LogWarn("Ignoring unreadable cached state", zap.String("path", stateFile.Path()), zap.Error(err))
		cached = appstate.Snapshot{}
	}

	addrs, err := appstate.Bootstrap(ctx, connector.Host(), retry.Policy{
		Initial:     cfg.Retry.Initial(),
		Factor:      cfg.Retry.Factor,
		MaxInterval: cfg.Retry.MaxInterval(),
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	token := connector.Token(addrs.Token)

	var initializer *appstate.Initializer
	store := appstate.NewStore(appstate.NewReducer(token), cached,
		appstate.WithPersister(stateFile),
		appstate.WithRefresher(func(ctx context.Context, s appstate.AppState) appstate.AppState {
			return initializer.LoadMissingSettings(ctx, s)
		}),
	)
	initializer = appstate.NewInitializer(addrs, token, connector.ERC20(addrs.ERC20), store.SetIdentity)
	initial := store.Init(ctx, initializer.InitSnapshot)

	startBlock := cfg.Chain.StartBlock
	if initial.LastBlock > startBlock {
		startBlock = initial.LastBlock
	}
	source := chain.NewEventSource(chain.SourceConfig{
		StartBlock:    startBlock,
		PageSize:      cfg.Chain.PageSize,
		PollInterval:  cfg.Chain.PollEvery(),
		Confirmations: cfg.Chain.Confirmations,
	}, client, addrs.Token)

	var wg sync.WaitGroup
	if err := startNotifier(ctx, &wg, cfg, store); err != nil {
		return err
	}

	eventsCh := make(chan events.ChainEvent, 64)

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := source.Run(ctx, eventsCh); err != nil && !errors.Is(err, context.Canceled) {
			logging.LogError("Event source stopped", zap.Error(err))
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		if err := store.Run(ctx, eventsCh); err != nil && !errors.Is(err, context.Canceled) {
			logging.LogError("Store stopped", zap.Error(err))
			cancel()
		}
	}()

	logging.LogSuccess("State sync is running",
		zap.String("token", addrs.Token.Hex()),
		zap.Uint64("startBlock", startBlock),
		zap.String("snapshot", stateFile.Path()))

	<-ctx.Done()
	logging.LogInfo("Shutdown signal received, gracefully stopping...")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.LogSuccess("State sync stopped gracefully",
			zap.Uint64("resumeBlock", source.Next()),
			zap.Uint64("committedBlock", store.Snapshot().LastBlock))
	case <-time.After(10 * time.Second):
		logging.LogWarn("Timeout waiting for state sync to stop")
	}
	return nil
}

func startNotifier(ctx context.Context, wg *sync.WaitGroup, cfg *config.Config, store *appstate.Store) error {
	if !cfg.Telegram.Enabled() {
		logging.LogInfo("Telegram notifications disabled")
		return nil
	}

	bot, err := notify.NewBot(cfg.Telegram.BotToken)
	if err != nil {
		logging.LogError("Failed to start Telegram notifier", zap.Error(err))
		return err
	}

	updates, unsubscribe := store.Subscribe()
	tg := notify.NewTelegram(bot, cfg.Telegram.ChatID, cfg.Telegram.TopHolders, cfg.App.DataDir)

	chatCommands := notify.NewCommands(bot, cfg.Telegram.ChatID, cfg.Telegram.TopHolders, cfg.App.DataDir, store)
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	chatUpdates := bot.GetUpdatesChan(u)

	wg.Add(2)
	go func() {
		defer wg.Done()
		defer unsubscribe()
		tg.Run(ctx, updates)
	}()
	go func() {
		defer wg.Done()
		defer bot.StopReceivingUpdates()
		chatCommands.Run(ctx, chatUpdates)
	}()
	return nil
}
