package screenshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog/log"
)

// PlaywrightBrowser drives Chromium through Playwright with a persistent profile directory,
// so cookies and logins survive between runs.
type PlaywrightBrowser struct {
	opts    Options
	pw      *playwright.Playwright
	context playwright.BrowserContext
	page    playwright.Page
}

// NewPlaywrightBrowser returns an unlaunched browser.
func NewPlaywrightBrowser(opts Options) *PlaywrightBrowser {
	return &PlaywrightBrowser{opts: opts}
}

func (b *PlaywrightBrowser) Launch(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("could not start playwright: %w", err)
	}
	b.pw = pw

	log.Info().Bool("headless", b.opts.Headless).Str("profile_dir", b.opts.ProfileDir).Msg("Launching Chromium")
	bctx, err := pw.Chromium.LaunchPersistentContext(b.opts.ProfileDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(b.opts.Headless),
		Args:     b.opts.launchArgs(),
	})
	if err != nil {
		return fmt.Errorf("could not launch chromium: %w", err)
	}
	b.context = bctx

	page, err := bctx.NewPage()
	if err != nil {
		return fmt.Errorf("could not open page: %w", err)
	}
	b.page = page
	return nil
}

func (b *PlaywrightBrowser) Capture(ctx context.Context, url, path string) error {
	if b.page == nil {
		return errors.New("browser not launched")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	gotoOpts := playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}
	if b.opts.NavigationTimeout > 0 {
		gotoOpts.Timeout = playwright.Float(float64(b.opts.NavigationTimeout.Milliseconds()))
	}
	if _, err := b.page.Goto(url, gotoOpts); err != nil {
		return fmt.Errorf("could not navigate to %s: %w", url, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := b.page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	}); err != nil {
		return fmt.Errorf("could not take screenshot: %w", err)
	}

	log.Info().Str("path", path).Msg("Screenshot saved")
	return nil
}

func (b *PlaywrightBrowser) Close() error {
	var errs []error
	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("could not close browser context: %w", err))
		}
		b.context = nil
		b.page = nil
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("could not stop playwright: %w", err))
		}
		b.pw = nil
	}
	return errors.Join(errs...)
}
