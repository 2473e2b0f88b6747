// Package config loads the job configuration from an env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every configuration key when read from the environment,
// so "source_chat_id" is read from ENV_SOURCE_CHAT_ID.
const EnvPrefix = "ENV"

// DefaultUserAgent is the desktop browser identity used for screenshots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/119.0.0.0 Safari/537.36"

// Browser drivers.
const (
	DriverPlaywright = "playwright"
	DriverChromedp   = "chromedp"
)

// Destination senders.
const (
	SenderTDLib = "tdlib"
	SenderBot   = "bot"
)

// Job ledger backends.
const (
	LedgerNone  = "none"
	LedgerFile  = "file"
	LedgerDapr  = "dapr"
	LedgerRedis = "redis"
)

// Config holds every setting of a run. It is built once by Load and then passed by value.
type Config struct {
	// Telegram account
	APIID       int    `mapstructure:"api_id"`
	APIHash     string `mapstructure:"api_hash"`
	PhoneNumber string `mapstructure:"phone_number"`

	// Routing
	SourceChatID      int64    `mapstructure:"source_chat_id"`
	DestinationChatID int64    `mapstructure:"destination_chat_id"`
	SpecificTexts     []string `mapstructure:"-"`
	TelegramLimit     int      `mapstructure:"telegram_limit"`

	// Scheduling jitter, in seconds
	WaitMin int `mapstructure:"wait_min"`
	WaitMax int `mapstructure:"wait_max"`

	// Browser
	Headless          bool          `mapstructure:"headless"`
	BrowserDriver     string        `mapstructure:"browser_driver"`
	BrowserProfileDir string        `mapstructure:"browser_profile_dir"`
	UserAgent         string        `mapstructure:"user_agent"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	ScreenshotDir     string        `mapstructure:"screenshot_dir"`

	// Upload
	StorageRoot      string        `mapstructure:"storage_root"`
	Sender           string        `mapstructure:"sender"`
	TelegramBotToken string        `mapstructure:"telegram_bot_token"`
	SendAttempts     int           `mapstructure:"send_attempts"`
	SendRetryDelay   time.Duration `mapstructure:"send_retry_delay"`
	SendTimeout      time.Duration `mapstructure:"send_timeout"`

	// TDLibFilesMaxAge prunes cached TDLib files older than this after each run; 0 keeps them.
	TDLibFilesMaxAge time.Duration `mapstructure:"tdlib_files_max_age"`

	// YouTube
	YouTubeEnabled       bool   `mapstructure:"youtube_enabled"`
	YouTubeClientSecrets string `mapstructure:"youtube_client_secrets"`
	YouTubeTokenFile     string `mapstructure:"youtube_token_file"`

	// Job ledger
	Ledger         string `mapstructure:"ledger"`
	LedgerDir      string `mapstructure:"ledger_dir"`
	DaprStateStore string `mapstructure:"dapr_state_store"`
	DaprGRPCPort   string `mapstructure:"dapr_grpc_port"`
	RedisAddr      string `mapstructure:"redis_addr"`
	RedisDB        int    `mapstructure:"redis_db"`

	// Logging
	LogFile  string `mapstructure:"log_file"`
	LogLevel string `mapstructure:"log_level"`
}

// setDefaults registers the documented default for every key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("api_id", 0)
	v.SetDefault("api_hash", "")
	v.SetDefault("phone_number", "")
	v.SetDefault("source_chat_id", 0)
	v.SetDefault("destination_chat_id", 0)
	v.SetDefault("specific_texts", "")
	v.SetDefault("telegram_limit", 100)
	v.SetDefault("wait_min", 60)
	v.SetDefault("wait_max", 300)
	v.SetDefault("headless", false)
	v.SetDefault("browser_driver", DriverPlaywright)
	v.SetDefault("browser_profile_dir", "./tmp")
	v.SetDefault("user_agent", DefaultUserAgent)
	v.SetDefault("navigation_timeout", 60*time.Second)
	v.SetDefault("screenshot_dir", "./png")
	v.SetDefault("storage_root", ".")
	v.SetDefault("sender", SenderTDLib)
	v.SetDefault("telegram_bot_token", "")
	v.SetDefault("send_attempts", 2)
	v.SetDefault("send_retry_delay", time.Duration(0))
	v.SetDefault("send_timeout", 2*time.Minute)
	v.SetDefault("tdlib_files_max_age", 72*time.Hour)
	v.SetDefault("youtube_enabled", false)
	v.SetDefault("youtube_client_secrets", "credentials.json")
	v.SetDefault("youtube_token_file", "token.json")
	v.SetDefault("ledger", LedgerFile)
	v.SetDefault("ledger_dir", "./state/jobs")
	v.SetDefault("dapr_state_store", "statestore")
	v.SetDefault("dapr_grpc_port", "50001")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("log_file", "app.log")
	v.SetDefault("log_level", "info")
}

// DefaultConfig returns the configuration used when nothing is set in the environment.
func DefaultConfig() Config {
	v := viper.New()
	setDefaults(v)
	cfg, _ := fromViper(v)
	return cfg
}

// LoadEnvFile loads variables from path into the process environment, overriding values that
// are already set. A missing file is not an error; the environment may be set directly.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve env file path %s: %w", path, err)
	}
	if _, err := os.Stat(abs); os.IsNotExist(err) {
		log.Warn().Str("env_file", abs).Msg("Env file not found, using process environment only")
		return nil
	}
	if err := godotenv.Overload(abs); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", abs, err)
	}
	log.Debug().Str("env_file", abs).Msg("Loaded env file")
	return nil
}

// Load reads the env file (if any) and the environment into a Config. It does not validate;
// call Validate for the settings a command actually needs.
func Load(envFile string) (Config, error) {
	if err := LoadEnvFile(envFile); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	// AutomaticEnv values are only visible to Unmarshal for keys viper already knows,
	// which setDefaults guarantees.
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.SpecificTexts = SplitList(v.GetString("specific_texts"))
	return cfg, nil
}

// SplitList splits a comma separated value, trimming entries and dropping empty ones.
func SplitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the settings needed for a full run and returns the first problem found.
func (c Config) Validate() error {
	if c.SourceChatID == 0 {
		return errors.New("source_chat_id (ENV_SOURCE_CHAT_ID) is required")
	}
	if c.DestinationChatID == 0 {
		return errors.New("destination_chat_id (ENV_DESTINATION_CHAT_ID) is required")
	}
	if len(c.SpecificTexts) == 0 {
		return errors.New("specific_texts (ENV_SPECIFIC_TEXTS) must contain at least one marker text")
	}
	if c.TelegramLimit < 1 {
		return errors.New("telegram_limit must be at least 1")
	}
	if c.WaitMin < 0 || c.WaitMax < 0 {
		return errors.New("wait_min and wait_max cannot be negative")
	}
	if c.WaitMin > c.WaitMax {
		return fmt.Errorf("wait_min (%d) cannot exceed wait_max (%d)", c.WaitMin, c.WaitMax)
	}
	if c.ScreenshotDir == "" {
		return errors.New("screenshot_dir cannot be empty")
	}
	if c.TDLibFilesMaxAge < 0 {
		return errors.New("tdlib_files_max_age cannot be negative")
	}
	if c.NavigationTimeout <= 0 {
		return errors.New("navigation_timeout must be positive")
	}

	switch c.BrowserDriver {
	case DriverPlaywright, DriverChromedp:
	default:
		return fmt.Errorf("invalid browser_driver '%s', must be one of: %s, %s", c.BrowserDriver, DriverPlaywright, DriverChromedp)
	}

	if err := c.ValidateSender(); err != nil {
		return err
	}

	// The message source is always the TDLib user client.
	if err := c.ValidateTelegram(); err != nil {
		return err
	}

	switch c.Ledger {
	case LedgerNone, LedgerFile, LedgerDapr, LedgerRedis:
	default:
		return fmt.Errorf("invalid ledger '%s', must be one of: %s, %s, %s, %s", c.Ledger, LedgerNone, LedgerFile, LedgerDapr, LedgerRedis)
	}
	if c.Ledger == LedgerFile && c.LedgerDir == "" {
		return errors.New("ledger_dir cannot be empty when ledger is 'file'")
	}

	if c.YouTubeEnabled && c.YouTubeClientSecrets == "" {
		return errors.New("youtube_client_secrets is required when youtube_enabled is true")
	}

	return nil
}

// ValidateSender checks the upload settings.
func (c Config) ValidateSender() error {
	switch c.Sender {
	case SenderTDLib:
	case SenderBot:
		if c.TelegramBotToken == "" {
			return errors.New("telegram_bot_token (ENV_TELEGRAM_BOT_TOKEN) is required when sender is 'bot'")
		}
	default:
		return fmt.Errorf("invalid sender '%s', must be one of: %s, %s", c.Sender, SenderTDLib, SenderBot)
	}
	if c.SendAttempts < 1 {
		return errors.New("send_attempts must be at least 1")
	}
	if c.SendRetryDelay < 0 {
		return errors.New("send_retry_delay cannot be negative")
	}
	if c.SendTimeout <= 0 {
		return errors.New("send_timeout must be positive")
	}
	return nil
}

// ValidateTelegram checks the TDLib account credentials.
func (c Config) ValidateTelegram() error {
	if c.APIID == 0 {
		return errors.New("api_id (ENV_API_ID) is required")
	}
	if c.APIHash == "" {
		return errors.New("api_hash (ENV_API_HASH) is required")
	}
	return nil
}

// TDLibDir is where the TDLib database and files are kept.
func (c Config) TDLibDir() string {
	return filepath.Join(c.StorageRoot, "state", ".tdlib")
}

// TDLibFilesDir is the TDLib cache of uploaded and downloaded files.
func (c Config) TDLibFilesDir() string {
	return filepath.Join(c.TDLibDir(), "files")
}
