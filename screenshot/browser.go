// Package screenshot renders web pages to PNG files with a headless browser.
package screenshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/researchaccelerator-hub/telegram-job/config"
	"github.com/rs/zerolog/log"
)

// Browser is a scoped browser session. Launch must be called before Capture and Close must
// always be called, whether Launch or Capture failed or not.
type Browser interface {
	// Launch starts the browser and opens a page.
	Launch(ctx context.Context) error

	// Capture navigates to url, waits until the DOM content is loaded and writes a
	// screenshot to path.
	Capture(ctx context.Context, url, path string) error

	// Close releases the page, the browser and any driver process.
	Close() error
}

// Factory creates a fresh Browser for each job.
type Factory func() Browser

// Options are the browser settings shared by all drivers.
type Options struct {
	Headless          bool
	ProfileDir        string
	UserAgent         string
	NavigationTimeout time.Duration
}

// OptionsFromConfig extracts the browser settings from the job configuration.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Headless:          cfg.Headless,
		ProfileDir:        cfg.BrowserProfileDir,
		UserAgent:         cfg.UserAgent,
		NavigationTimeout: cfg.NavigationTimeout,
	}
}

// launchArgs hides the automation flag that sites use to detect headless browsers.
func (o Options) launchArgs() []string {
	args := []string{"--disable-blink-features=AutomationControlled"}
	if o.UserAgent != "" {
		args = append(args, "--user-agent="+o.UserAgent)
	}
	return args
}

// NewFactory returns the browser factory for the configured driver.
func NewFactory(cfg config.Config) (Factory, error) {
	opts := OptionsFromConfig(cfg)
	switch cfg.BrowserDriver {
	case config.DriverPlaywright, "":
		return func() Browser { return NewPlaywrightBrowser(opts) }, nil
	case config.DriverChromedp:
		return func() Browser { return NewChromedpBrowser(opts) }, nil
	default:
		return nil, fmt.Errorf("unsupported browser driver: %s", cfg.BrowserDriver)
	}
}

// Take runs a complete Launch, Capture, Close cycle on b. Close always runs. A Close failure
// is only logged: once Capture has written the file the screenshot is usable and must be sent.
func Take(ctx context.Context, b Browser, url, path string) error {
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("url", url).Msg("Failed to close browser")
		}
	}()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	if err := b.Launch(ctx); err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	if err := b.Capture(ctx, url, path); err != nil {
		return fmt.Errorf("failed to capture %s: %w", url, err)
	}
	return nil
}
