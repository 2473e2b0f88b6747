package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/researchaccelerator-hub/telegram-job/client"
	"github.com/researchaccelerator-hub/telegram-job/common"
	"github.com/researchaccelerator-hub/telegram-job/config"
	"github.com/researchaccelerator-hub/telegram-job/crawl"
	"github.com/researchaccelerator-hub/telegram-job/dispatch"
	"github.com/researchaccelerator-hub/telegram-job/parser"
	"github.com/researchaccelerator-hub/telegram-job/screenshot"
	"github.com/researchaccelerator-hub/telegram-job/state"
	"github.com/researchaccelerator-hub/telegram-job/telegramhelper"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const metadataRequestTimeout = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("Run failed")
		stop()
		os.Exit(1)
	}
}

// rootOptions holds the flags shared by every command.
type rootOptions struct {
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "telegram-job",
		Short: "Screenshot the newest task link posted in a Telegram channel and forward it",
		Long: "Reads the most recent messages of the source chat, picks the newest message carrying a " +
			"marker text and a link, screenshots the link and uploads the image to the destination chat. " +
			"Each task is handled at most once per day.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), opts)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Path to the env file with ENV_* settings.")

	cmd.AddCommand(
		newLoginCmd(opts),
		newYouTubeAuthCmd(opts),
		newResendCmd(opts),
	)
	return cmd
}

// bootstrap loads the configuration and sets up logging. The returned closer flushes the log
// file and must be closed by the caller.
func bootstrap(opts *rootOptions) (config.Config, string, io.Closer, error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return config.Config{}, "", nil, err
	}

	runID := common.GenerateRunID()
	closer, err := common.SetupLogger(common.LogOptions{
		ConsoleLevel: common.ParseLevel(cfg.LogLevel),
		FilePath:     cfg.LogFile,
		RunID:        runID,
	})
	if err != nil {
		return config.Config{}, "", nil, err
	}
	return cfg, runID, closer, nil
}

// runOnce performs one scheduled pass: random pause, fetch, extract, dispatch.
func runOnce(ctx context.Context, opts *rootOptions) error {
	cfg, runID, closer, err := bootstrap(opts)
	if err != nil {
		return err
	}
	defer closer.Close()

	log.Info().Str("env_file", opts.envFile).Msg("Starting telegram job")
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	extractor, err := parser.NewExtractor(cfg.SpecificTexts)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log.Info().Strs("markers", extractor.Markers()).Int("limit", cfg.TelegramLimit).Msg("Watching for task messages")
	newBrowser, err := screenshot.NewFactory(cfg)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	ledger, err := state.NewLedger(cfg)
	if err != nil {
		return fmt.Errorf("failed to open job ledger: %w", err)
	}
	defer ledger.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	if err := common.RandomWait(ctx, rng, cfg.WaitMin, cfg.WaitMax); err != nil {
		return err
	}

	service := &telegramhelper.RealTelegramService{}
	tdlibClient, err := service.InitializeClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	// Deferred in this order so the cache is pruned after TDLib has closed.
	defer telegramhelper.NewFileCleaner(cfg.TDLibFilesDir(), cfg.TDLibFilesMaxAge).Clean()
	defer telegramhelper.CloseClient(tdlibClient)

	sender, err := newSender(cfg, tdlibClient)
	if err != nil {
		return err
	}

	dispatchOpts := []dispatch.Option{dispatch.WithLedger(ledger), dispatch.WithRunID(runID)}
	if cfg.YouTubeEnabled {
		engager, yt, err := newEngager(ctx, cfg)
		if err != nil {
			log.Warn().Err(err).Msg("YouTube engagement disabled for this run")
		} else {
			defer yt.Disconnect(ctx)
			dispatchOpts = append(dispatchOpts, dispatch.WithEngager(engager))
		}
	}

	dispatcher := dispatch.New(dispatch.ConfigFrom(cfg), newBrowser, sender, dispatchOpts...)
	runner := crawl.NewRunner(telegramhelper.NewMessageReader(tdlibClient), extractor, dispatcher)

	outcome, err := runner.Run(ctx, cfg.SourceChatID, cfg.TelegramLimit)
	if err != nil {
		return err
	}
	log.Info().Str("outcome", string(outcome)).Bool("succeeded", outcome.Succeeded()).Msg("Telegram job finished")
	return nil
}

// newSender picks the upload path. The TDLib sender reuses the client that reads messages.
func newSender(cfg config.Config, tdlibClient telegramhelper.TDLibClient) (dispatch.Sender, error) {
	switch cfg.Sender {
	case config.SenderBot:
		bot, err := telegramhelper.NewBotSender(cfg.TelegramBotToken)
		if err != nil {
			return nil, err
		}
		return bot, nil
	case config.SenderTDLib:
		if tdlibClient == nil {
			return nil, fmt.Errorf("tdlib sender requires a connected client")
		}
		return telegramhelper.NewTDLibSender(tdlibClient, cfg.SendTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported sender: %s", cfg.Sender)
	}
}

// newEngager connects the YouTube Data API client and adds the keyless metadata fallback.
// The caller disconnects the returned client when the run ends.
func newEngager(ctx context.Context, cfg config.Config) (*client.Engager, *client.YouTubeDataClient, error) {
	yt, err := client.NewYouTubeDataClient(cfg.YouTubeClientSecrets, cfg.YouTubeTokenFile)
	if err != nil {
		return nil, nil, err
	}
	if err := yt.Connect(ctx); err != nil {
		return nil, nil, err
	}
	resolver := client.NewVideoMetadataResolver(&http.Client{Timeout: metadataRequestTimeout})
	return client.NewEngager(yt, resolver), yt, nil
}
