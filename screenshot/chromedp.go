package screenshot

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// ChromedpBrowser drives a local Chrome over the DevTools protocol. It needs no Node driver,
// which makes it the lighter choice on servers that already ship Chrome.
type ChromedpBrowser struct {
	opts        Options
	taskCtx     context.Context
	cancelTask  context.CancelFunc
	cancelAlloc context.CancelFunc
}

// NewChromedpBrowser returns an unlaunched browser.
func NewChromedpBrowser(opts Options) *ChromedpBrowser {
	return &ChromedpBrowser{opts: opts}
}

func (b *ChromedpBrowser) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if b.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.opts.UserAgent))
	}
	if b.opts.ProfileDir != "" {
		opts = append(opts, chromedp.UserDataDir(b.opts.ProfileDir))
	}
	return opts
}

func (b *ChromedpBrowser) Launch(ctx context.Context) error {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, b.allocatorOptions()...)
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	b.cancelAlloc = cancelAlloc
	b.cancelTask = cancelTask

	log.Info().Bool("headless", b.opts.Headless).Str("profile_dir", b.opts.ProfileDir).Msg("Launching Chrome")
	// An empty Run starts the browser so launch failures surface here rather than in Capture.
	if err := chromedp.Run(taskCtx); err != nil {
		return fmt.Errorf("could not start chrome: %w", err)
	}
	b.taskCtx = taskCtx
	return nil
}

func (b *ChromedpBrowser) Capture(ctx context.Context, url, path string) error {
	if b.taskCtx == nil {
		return errors.New("browser not launched")
	}

	runCtx, cancel := context.WithCancel(b.taskCtx)
	defer cancel()
	if b.opts.NavigationTimeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, b.opts.NavigationTimeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var buf []byte
	if err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.CaptureScreenshot(&buf),
	); err != nil {
		return fmt.Errorf("could not capture %s: %w", url, err)
	}

	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("could not write screenshot: %w", err)
	}
	log.Info().Str("path", path).Msg("Screenshot saved")
	return nil
}

func (b *ChromedpBrowser) Close() error {
	if b.cancelTask != nil {
		b.cancelTask()
		b.cancelTask = nil
	}
	if b.cancelAlloc != nil {
		b.cancelAlloc()
		b.cancelAlloc = nil
	}
	b.taskCtx = nil
	return nil
}
