package main

import (
	"fmt"
	"regexp"
	"time"

	"github.com/researchaccelerator-hub/telegram-job/client"
	"github.com/researchaccelerator-hub/telegram-job/config"
	"github.com/researchaccelerator-hub/telegram-job/dispatch"
	"github.com/researchaccelerator-hub/telegram-job/model"
	"github.com/researchaccelerator-hub/telegram-job/state"
	"github.com/researchaccelerator-hub/telegram-job/telegramhelper"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// taskNumberPattern matches the digits the extractor captures as a task number.
var taskNumberPattern = regexp.MustCompile(`^\d+$`)

// loginTimeout leaves time to type the confirmation code Telegram sends.
const loginTimeout = 5 * time.Minute

func newLoginCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authorise the Telegram account interactively and store the TDLib session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, closer, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer closer.Close()

			if err := cfg.ValidateTelegram(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return telegramhelper.GenCode(&telegramhelper.RealTelegramService{ConnectTimeout: loginTimeout}, cfg)
		},
	}
}

func newYouTubeAuthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "youtube-auth",
		Short: "Authorise YouTube access and store the OAuth token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, closer, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer closer.Close()

			oauthCfg, err := client.LoadOAuthConfig(cfg.YouTubeClientSecrets)
			if err != nil {
				return err
			}
			return client.AuthorizeInteractive(cmd.Context(), oauthCfg, cfg.YouTubeTokenFile, cmd.OutOrStdout())
		},
	}
}

func newResendCmd(opts *rootOptions) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "resend <task_number>",
		Short: "Upload an existing screenshot again",
		Long: "Uploads the screenshot already captured for a task, for jobs whose upload failed. " +
			"The screenshot of today is used unless --date is given.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateTaskNumber(args[0]); err != nil {
				return err
			}
			day, err := parseDay(date, time.Now())
			if err != nil {
				return err
			}

			cfg, runID, closer, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer closer.Close()

			if err := validateResend(cfg); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ledger, err := state.NewLedger(cfg)
			if err != nil {
				return fmt.Errorf("failed to open job ledger: %w", err)
			}
			defer ledger.Close()

			var tdlibClient telegramhelper.TDLibClient
			if cfg.Sender == config.SenderTDLib {
				service := &telegramhelper.RealTelegramService{}
				tdlibClient, err = service.InitializeClient(cfg)
				if err != nil {
					return fmt.Errorf("failed to connect to Telegram: %w", err)
				}
				defer telegramhelper.CloseClient(tdlibClient)
			}

			sender, err := newSender(cfg, tdlibClient)
			if err != nil {
				return err
			}

			dispatcher := dispatch.New(dispatch.ConfigFrom(cfg), nil, sender,
				dispatch.WithLedger(ledger), dispatch.WithRunID(runID))
			if err := dispatcher.Resend(cmd.Context(), args[0], day); err != nil {
				return err
			}
			log.Info().Str("task", args[0]).Str("date", day.Format(model.ScreenshotDateLayout)).Msg("Resend finished")
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day of the screenshot as YYMMDD (default today).")
	return cmd
}

// parseDay reads a YYMMDD date in local time, or returns now when value is empty.
func parseDay(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return now, nil
	}
	day, err := time.ParseInLocation(model.ScreenshotDateLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, expected YYMMDD: %w", value, err)
	}
	return day, nil
}

// validateTaskNumber keeps the screenshot path inside the screenshot directory.
func validateTaskNumber(task string) error {
	if !taskNumberPattern.MatchString(task) {
		return fmt.Errorf("invalid task number %q, expected digits only", task)
	}
	return nil
}

func validateResend(cfg config.Config) error {
	if cfg.DestinationChatID == 0 {
		return fmt.Errorf("destination_chat_id (ENV_DESTINATION_CHAT_ID) is required")
	}
	if cfg.ScreenshotDir == "" {
		return fmt.Errorf("screenshot_dir cannot be empty")
	}
	if err := cfg.ValidateSender(); err != nil {
		return err
	}
	if cfg.Sender == config.SenderTDLib {
		return cfg.ValidateTelegram()
	}
	return nil
}
