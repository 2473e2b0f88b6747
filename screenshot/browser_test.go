package screenshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/researchaccelerator-hub/telegram-job/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBrowser struct {
	calls      []string
	launchErr  error
	captureErr error
	closeErr   error
}

func (f *fakeBrowser) Launch(ctx context.Context) error {
	f.calls = append(f.calls, "launch")
	return f.launchErr
}

func (f *fakeBrowser) Capture(ctx context.Context, url, path string) error {
	f.calls = append(f.calls, "capture "+url)
	if f.captureErr != nil {
		return f.captureErr
	}
	return os.WriteFile(path, []byte("png"), 0644)
}

func (f *fakeBrowser) Close() error {
	f.calls = append(f.calls, "close")
	return f.closeErr
}

func TestTake_Success(t *testing.T) {
	b := &fakeBrowser{}
	path := filepath.Join(t.TempDir(), "png", "240131_42.png")

	err := Take(context.Background(), b, "https://example.com/x", path)
	require.NoError(t, err)
	assert.Equal(t, []string{"launch", "capture https://example.com/x", "close"}, b.calls)
	assert.FileExists(t, path)
}

func TestTake_AlwaysCloses(t *testing.T) {
	tests := []struct {
		name      string
		browser   *fakeBrowser
		wantCalls []string
		wantErr   string
	}{
		{
			name:      "launch fails",
			browser:   &fakeBrowser{launchErr: errors.New("no chromium")},
			wantCalls: []string{"launch", "close"},
			wantErr:   "no chromium",
		},
		{
			name:      "capture fails",
			browser:   &fakeBrowser{captureErr: errors.New("timeout")},
			wantCalls: []string{"launch", "capture https://example.com/x", "close"},
			wantErr:   "timeout",
		},
		{
			name:      "capture error wins over close error",
			browser:   &fakeBrowser{captureErr: errors.New("timeout"), closeErr: errors.New("zombie")},
			wantCalls: []string{"launch", "capture https://example.com/x", "close"},
			wantErr:   "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "shot.png")
			err := Take(context.Background(), tt.browser, "https://example.com/x", path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.wantCalls, tt.browser.calls)
		})
	}
}

func TestTake_CloseFailureKeepsScreenshot(t *testing.T) {
	b := &fakeBrowser{closeErr: errors.New("zombie")}
	path := filepath.Join(t.TempDir(), "240131_42.png")

	err := Take(context.Background(), b, "https://example.com/x", path)
	require.NoError(t, err)
	assert.Equal(t, []string{"launch", "capture https://example.com/x", "close"}, b.calls)
	assert.FileExists(t, path)
}

func TestNewFactory(t *testing.T) {
	cfg := config.DefaultConfig()

	cfg.BrowserDriver = config.DriverPlaywright
	f, err := NewFactory(cfg)
	require.NoError(t, err)
	assert.IsType(t, &PlaywrightBrowser{}, f())

	cfg.BrowserDriver = config.DriverChromedp
	f, err = NewFactory(cfg)
	require.NoError(t, err)
	assert.IsType(t, &ChromedpBrowser{}, f())

	cfg.BrowserDriver = "lynx"
	_, err = NewFactory(cfg)
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Headless = true
	cfg.NavigationTimeout = 5 * time.Second

	opts := OptionsFromConfig(cfg)
	assert.True(t, opts.Headless)
	assert.Equal(t, "./tmp", opts.ProfileDir)
	assert.Equal(t, 5*time.Second, opts.NavigationTimeout)
	assert.Equal(t, []string{
		"--disable-blink-features=AutomationControlled",
		"--user-agent=" + config.DefaultUserAgent,
	}, opts.launchArgs())
}

func TestUnlaunchedBrowsers(t *testing.T) {
	ctx := context.Background()

	pwb := NewPlaywrightBrowser(Options{})
	assert.Error(t, pwb.Capture(ctx, "https://example.com", "x.png"))
	assert.NoError(t, pwb.Close())

	cdb := NewChromedpBrowser(Options{})
	assert.Error(t, cdb.Capture(ctx, "https://example.com", "x.png"))
	assert.NoError(t, cdb.Close())
}
