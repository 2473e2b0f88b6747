// Package dispatch turns one extracted job into a screenshot delivered to the destination chat.
//
// A job is processed at most once per day: the screenshot file named after the date and the
// task number is created before the upload and its presence makes later runs skip the job.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/researchaccelerator-hub/telegram-job/client"
	"github.com/researchaccelerator-hub/telegram-job/common"
	"github.com/researchaccelerator-hub/telegram-job/config"
	"github.com/researchaccelerator-hub/telegram-job/model"
	"github.com/researchaccelerator-hub/telegram-job/screenshot"
	"github.com/researchaccelerator-hub/telegram-job/state"
	"github.com/rs/zerolog/log"
)

// ErrScreenshotMissing is returned by Resend when there is nothing to upload.
var ErrScreenshotMissing = errors.New("screenshot not found")

// Sender uploads a photo with a caption to a chat.
//
// Implementations block until the upload is confirmed or has failed; the dispatcher retries
// a failed upload according to its send policy, so a Sender makes a single attempt.
type Sender interface {
	SendPhoto(ctx context.Context, chatID int64, path, caption string) error
}

// Engager performs the YouTube account actions for a job URL.
type Engager interface {
	Engage(ctx context.Context, url string) client.EngageResult
}

// Config is the part of the application configuration the dispatcher needs.
type Config struct {
	ScreenshotDir     string
	DestinationChatID int64
	SendPolicy        common.RetryPolicy
}

// ConfigFrom extracts the dispatcher settings from the application configuration.
func ConfigFrom(cfg config.Config) Config {
	backoff := common.NoBackoff
	if cfg.SendRetryDelay > 0 {
		backoff = common.ConstantBackoff(cfg.SendRetryDelay)
	}
	return Config{
		ScreenshotDir:     cfg.ScreenshotDir,
		DestinationChatID: cfg.DestinationChatID,
		SendPolicy: common.RetryPolicy{
			Attempts: cfg.SendAttempts,
			Backoff:  backoff,
		},
	}
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithLedger records job progress in l.
func WithLedger(l state.Ledger) Option {
	return func(d *Dispatcher) { d.ledger = l }
}

// WithEngager enables YouTube engagement before the screenshot.
func WithEngager(e Engager) Option {
	return func(d *Dispatcher) { d.engager = e }
}

// WithClock replaces time.Now. The local date of the returned time names the screenshot.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithRunID tags ledger records with the id of the current run.
func WithRunID(id string) Option {
	return func(d *Dispatcher) { d.runID = id }
}

// Dispatcher processes the newest job of a run.
//
// This type handles:
// - The once-per-day guard based on the screenshot file name
// - Optional YouTube engagement for the job URL
// - Capturing the page with a browser from the injected factory
// - Uploading the screenshot with bounded retries
// - Recording each status transition in the job ledger
//
// Failures never propagate as errors; they are logged and reported as a model.Outcome.
type Dispatcher struct {
	cfg        Config
	newBrowser screenshot.Factory
	sender     Sender
	ledger     state.Ledger
	engager    Engager
	now        func() time.Time
	runID      string
}

// New returns a Dispatcher. newBrowser is called once per captured job.
func New(cfg Config, newBrowser screenshot.Factory, sender Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		cfg:        cfg,
		newBrowser: newBrowser,
		sender:     sender,
		ledger:     state.NopLedger{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Filename returns the screenshot path for job on day.
func (d *Dispatcher) Filename(job model.Job, day time.Time) string {
	return filepath.Join(d.cfg.ScreenshotDir, job.ScreenshotName(day))
}

// Dispatch processes the first job, which is the newest since messages arrive newest first.
// Older jobs are left for later runs.
func (d *Dispatcher) Dispatch(ctx context.Context, jobs []model.Job) model.Outcome {
	if len(jobs) == 0 {
		log.Info().Msg("No job found in recent messages")
		return model.OutcomeNoJob
	}
	if len(jobs) > 1 {
		log.Debug().Int("ignored", len(jobs)-1).Msg("Only the newest job is processed this run")
	}
	return d.ProcessJob(ctx, jobs[0])
}

// ProcessJob runs the guard, capture and upload steps for job.
//
// Parameters:
//   - ctx: Context for the browser and the upload; cancellation ends retries early
//   - job: The task number and URL extracted from the source chat
//
// Returns:
//   - OutcomeSkipped when today's screenshot for the task already exists
//   - OutcomeCaptureFailed when the page could not be captured; nothing is sent
//   - OutcomeSendFailed when every upload attempt failed
//   - OutcomeSent otherwise
func (d *Dispatcher) ProcessJob(ctx context.Context, job model.Job) model.Outcome {
	day := d.now()
	path := d.Filename(job, day)
	logger := log.With().Str("task", job.TaskNumber).Str("url", job.URL).Str("path", path).Logger()

	exists, err := common.FileExists(path)
	if err != nil {
		logger.Error().Err(err).Msg("Could not check for an existing screenshot")
		return model.OutcomeCaptureFailed
	}
	if exists {
		d.warnExisting(ctx, job.Key(day), path)
		return model.OutcomeSkipped
	}

	rec := model.JobRecord{
		Key:        job.Key(day),
		TaskNumber: job.TaskNumber,
		URL:        job.URL,
		Screenshot: path,
		Status:     model.JobStatusPending,
		RunID:      d.runID,
	}
	d.record(ctx, &rec)

	if d.engager != nil {
		res := d.engager.Engage(ctx, job.URL)
		if !res.Skipped() {
			logger.Info().
				Bool("liked", res.Liked).
				Bool("subscribed", res.Subscribed).
				Str("channel_id", res.ChannelID).
				Msg("YouTube engagement finished")
		}
	}

	logger.Info().Msg("Taking screenshot")
	if err := screenshot.Take(ctx, d.newBrowser(), job.URL, path); err != nil {
		logger.Error().Err(err).Msg("Screenshot failed, not sending")
		rec.Status = model.JobStatusFailed
		rec.Error = err.Error()
		d.record(ctx, &rec)
		return model.OutcomeCaptureFailed
	}
	rec.Status = model.JobStatusCaptured
	d.record(ctx, &rec)

	attempts, err := d.send(ctx, path, job.TaskNumber)
	rec.Attempts = attempts
	if err != nil {
		logger.Error().Err(err).Int("attempts", attempts).Msg("Failed to send screenshot")
		rec.Status = model.JobStatusFailed
		rec.Error = err.Error()
		d.record(ctx, &rec)
		return model.OutcomeSendFailed
	}

	rec.Status = model.JobStatusSent
	rec.Error = ""
	d.record(ctx, &rec)
	logger.Info().Int("attempts", attempts).Msg("Screenshot sent")
	return model.OutcomeSent
}

// Resend uploads the existing screenshot of taskNumber taken on day. It is the repair path
// for jobs whose upload failed after capture.
func (d *Dispatcher) Resend(ctx context.Context, taskNumber string, day time.Time) error {
	job := model.Job{TaskNumber: taskNumber}
	path := d.Filename(job, day)

	exists, err := common.FileExists(path)
	if err != nil {
		return fmt.Errorf("failed to check screenshot %s: %w", path, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrScreenshotMissing, path)
	}

	key := job.Key(day)
	rec := model.JobRecord{Key: key, TaskNumber: taskNumber, Screenshot: path}
	if prev, err := d.ledger.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Could not read job ledger")
	} else if prev != nil {
		rec = *prev
	}
	rec.RunID = d.runID

	attempts, err := d.send(ctx, path, taskNumber)
	rec.Attempts += attempts
	if err != nil {
		rec.Status = model.JobStatusFailed
		rec.Error = err.Error()
		d.record(ctx, &rec)
		return fmt.Errorf("failed to resend %s: %w", path, err)
	}

	rec.Status = model.JobStatusSent
	rec.Error = ""
	d.record(ctx, &rec)
	log.Info().Str("task", taskNumber).Str("path", path).Int("attempts", attempts).Msg("Screenshot resent")
	return nil
}

// send uploads path with the task number as caption under the send policy and reports how
// many attempts were made.
func (d *Dispatcher) send(ctx context.Context, path, taskNumber string) (int, error) {
	attempts := 0
	err := common.Retry(ctx, d.cfg.SendPolicy, func(attempt int) error {
		attempts = attempt
		err := d.sender.SendPhoto(ctx, d.cfg.DestinationChatID, path, taskNumber)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Str("task", taskNumber).Msg("Send attempt failed")
		}
		return err
	})
	return attempts, err
}

func (d *Dispatcher) warnExisting(ctx context.Context, key, path string) {
	event := log.Warn().Str("key", key).Str("path", path)
	rec, err := d.ledger.Get(ctx, key)
	if err != nil {
		log.Debug().Err(err).Str("key", key).Msg("Could not read job ledger")
	}
	if rec != nil && rec.Status != model.JobStatusSent {
		event.Str("status", string(rec.Status)).
			Msgf("Screenshot already exists but was never sent; run `resend %s` to deliver it", rec.TaskNumber)
		return
	}
	event.Msg("Screenshot already exists, job already processed")
}

func (d *Dispatcher) record(ctx context.Context, rec *model.JobRecord) {
	rec.UpdatedAt = d.now().UTC()
	if err := d.ledger.Put(ctx, *rec); err != nil {
		log.Warn().Err(err).Str("key", rec.Key).Str("status", string(rec.Status)).Msg("Could not update job ledger")
	}
}
