package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.APIID = 12345
	cfg.APIHash = "hash"
	cfg.SourceChatID = -1001
	cfg.DestinationChatID = 777
	cfg.SpecificTexts = []string{"Mission Nr."}
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 60, cfg.WaitMin)
	assert.Equal(t, 300, cfg.WaitMax)
	assert.Equal(t, 100, cfg.TelegramLimit)
	assert.False(t, cfg.Headless)
	assert.Equal(t, DriverPlaywright, cfg.BrowserDriver)
	assert.Equal(t, "./png", cfg.ScreenshotDir)
	assert.Equal(t, "./tmp", cfg.BrowserProfileDir)
	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, 60*time.Second, cfg.NavigationTimeout)
	assert.Equal(t, SenderTDLib, cfg.Sender)
	assert.Equal(t, 2, cfg.SendAttempts)
	assert.Equal(t, time.Duration(0), cfg.SendRetryDelay)
	assert.Equal(t, LedgerFile, cfg.Ledger)
	assert.Equal(t, "app.log", cfg.LogFile)
	assert.Empty(t, cfg.SpecificTexts)
}

func TestLoad_FromEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "job.env")
	content := "ENV_API_ID=4242\n" +
		"ENV_API_HASH=abc\n" +
		"ENV_SOURCE_CHAT_ID=-1001234567890\n" +
		"ENV_DESTINATION_CHAT_ID=555\n" +
		"ENV_SPECIFIC_TEXTS=Mission Nr., Auftrag ,\n" +
		"ENV_WAIT_MIN=1\n" +
		"ENV_WAIT_MAX=2\n" +
		"ENV_HEADLESS=true\n" +
		"ENV_SEND_RETRY_DELAY=3s\n" +
		"ENV_BROWSER_DRIVER=chromedp\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0644))

	keys := []string{"ENV_API_ID", "ENV_API_HASH", "ENV_SOURCE_CHAT_ID", "ENV_DESTINATION_CHAT_ID",
		"ENV_SPECIFIC_TEXTS", "ENV_WAIT_MIN", "ENV_WAIT_MAX", "ENV_HEADLESS", "ENV_SEND_RETRY_DELAY", "ENV_BROWSER_DRIVER"}
	for _, k := range keys {
		// Register for restore; Overload writes straight into the environment.
		t.Setenv(k, "")
	}

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, 4242, cfg.APIID)
	assert.Equal(t, "abc", cfg.APIHash)
	assert.Equal(t, int64(-1001234567890), cfg.SourceChatID)
	assert.Equal(t, int64(555), cfg.DestinationChatID)
	assert.Equal(t, []string{"Mission Nr.", "Auftrag"}, cfg.SpecificTexts)
	assert.Equal(t, 1, cfg.WaitMin)
	assert.Equal(t, 2, cfg.WaitMax)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 3*time.Second, cfg.SendRetryDelay)
	assert.Equal(t, DriverChromedp, cfg.BrowserDriver)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingEnvFileUsesEnvironment(t *testing.T) {
	t.Setenv("ENV_TELEGRAM_LIMIT", "25")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.TelegramLimit)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{}, SplitList(""))
	assert.Equal(t, []string{"a"}, SplitList("a"))
	assert.Equal(t, []string{"a", "b c"}, SplitList(" a ,, b c ,"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing source", func(c *Config) { c.SourceChatID = 0 }, "source_chat_id"},
		{"missing destination", func(c *Config) { c.DestinationChatID = 0 }, "destination_chat_id"},
		{"no markers", func(c *Config) { c.SpecificTexts = nil }, "specific_texts"},
		{"zero limit", func(c *Config) { c.TelegramLimit = 0 }, "telegram_limit"},
		{"wait inverted", func(c *Config) { c.WaitMin, c.WaitMax = 10, 5 }, "wait_min"},
		{"unknown driver", func(c *Config) { c.BrowserDriver = "lynx" }, "browser_driver"},
		{"unknown sender", func(c *Config) { c.Sender = "pigeon" }, "sender"},
		{"bot without token", func(c *Config) { c.Sender = SenderBot }, "telegram_bot_token"},
		{"bot with token", func(c *Config) { c.Sender = SenderBot; c.TelegramBotToken = "1:abc" }, ""},
		{"zero attempts", func(c *Config) { c.SendAttempts = 0 }, "send_attempts"},
		{"missing api id", func(c *Config) { c.APIID = 0 }, "api_id"},
		{"missing api hash", func(c *Config) { c.APIHash = "" }, "api_hash"},
		{"unknown ledger", func(c *Config) { c.Ledger = "postgres" }, "ledger"},
		{"file ledger without dir", func(c *Config) { c.LedgerDir = "" }, "ledger_dir"},
		{"youtube without secrets", func(c *Config) { c.YouTubeEnabled = true; c.YouTubeClientSecrets = "" }, "youtube_client_secrets"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTDLibDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageRoot = "/var/lib/job"
	assert.Equal(t, filepath.Join("/var/lib/job", "state", ".tdlib"), cfg.TDLibDir())
}

func TestTDLibFilesDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageRoot = "/var/lib/job"
	assert.Equal(t, filepath.Join("/var/lib/job", "state", ".tdlib", "files"), cfg.TDLibFilesDir())
	assert.Equal(t, 72*time.Hour, cfg.TDLibFilesMaxAge)
}
