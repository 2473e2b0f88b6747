// Package crawl wires one pass of the job: read the source chat, extract jobs and hand the
// newest one to the dispatcher.
package crawl

import (
	"context"
	"fmt"

	"github.com/researchaccelerator-hub/telegram-job/model"
	"github.com/rs/zerolog/log"
)

// MessageSource returns recent message texts of a chat, newest first.
type MessageSource interface {
	FetchMessages(ctx context.Context, chatID int64, limit int) ([]string, error)
}

// JobExtractor turns message texts into jobs, keeping their order.
type JobExtractor interface {
	Extract(messages []string) []model.Job
}

// JobDispatcher processes the jobs of a run.
type JobDispatcher interface {
	Dispatch(ctx context.Context, jobs []model.Job) model.Outcome
}

// Runner executes a single fetch, extract and dispatch cycle.
type Runner struct {
	Source     MessageSource
	Extractor  JobExtractor
	Dispatcher JobDispatcher
}

// NewRunner returns a Runner over the given collaborators.
func NewRunner(source MessageSource, extractor JobExtractor, dispatcher JobDispatcher) *Runner {
	return &Runner{
		Source:     source,
		Extractor:  extractor,
		Dispatcher: dispatcher,
	}
}

// Run reads up to limit messages from sourceChatID and dispatches the newest job. Only a
// failed fetch is returned as an error; every later failure is part of the outcome.
func (r *Runner) Run(ctx context.Context, sourceChatID int64, limit int) (model.Outcome, error) {
	log.Info().
		Int64("source_chat_id", sourceChatID).
		Int("limit", limit).
		Msg("Starting run")

	messages, err := r.Source.FetchMessages(ctx, sourceChatID, limit)
	if err != nil {
		log.Error().Err(err).Int64("source_chat_id", sourceChatID).Msg("Failed to get messages")
		return "", fmt.Errorf("failed to fetch messages: %w", err)
	}

	jobs := r.Extractor.Extract(messages)
	log.Info().
		Int("message_count", len(messages)).
		Int("job_count", len(jobs)).
		Msg("Extracted jobs")

	outcome := r.Dispatcher.Dispatch(ctx, jobs)
	log.Info().Str("outcome", string(outcome)).Msg("Run finished")
	return outcome, nil
}
