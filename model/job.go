package model

import (
	"fmt"
	"time"
)

// ScreenshotDateLayout is the date prefix used for screenshot file names (YYMMDD).
const ScreenshotDateLayout = "060102"

// Job is a task announcement extracted from a single source message.
type Job struct {
	TaskNumber string `json:"task_number"`
	URL        string `json:"url"`
}

// Key returns the per-day identity of the job, e.g. "240131_42".
func (j Job) Key(day time.Time) string {
	return JobKey(day, j.TaskNumber)
}

// ScreenshotName returns the deterministic screenshot file name, e.g. "240131_42.png".
func (j Job) ScreenshotName(day time.Time) string {
	return JobKey(day, j.TaskNumber) + ".png"
}

func (j Job) String() string {
	return fmt.Sprintf("task=%s url=%s", j.TaskNumber, j.URL)
}

// JobKey joins the formatted day and the task number.
func JobKey(day time.Time, taskNumber string) string {
	return day.Format(ScreenshotDateLayout) + "_" + taskNumber
}

// JobStatus is the lifecycle state recorded in the job ledger.
type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusCaptured JobStatus = "captured"
	JobStatusSent     JobStatus = "sent"
	JobStatusFailed   JobStatus = "failed"
)

// JobRecord is what the ledger stores for one job on one day.
type JobRecord struct {
	Key        string    `json:"key"`
	TaskNumber string    `json:"task_number"`
	URL        string    `json:"url"`
	Screenshot string    `json:"screenshot"`
	Status     JobStatus `json:"status"`
	Attempts   int       `json:"attempts"`
	Error      string    `json:"error,omitempty"`
	RunID      string    `json:"run_id,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Outcome summarises what a single run did with its job.
type Outcome string

const (
	OutcomeSent          Outcome = "sent"
	OutcomeSkipped       Outcome = "skipped"
	OutcomeNoJob         Outcome = "no_job"
	OutcomeCaptureFailed Outcome = "capture_failed"
	OutcomeSendFailed    Outcome = "send_failed"
)

// Succeeded reports whether the screenshot reached the destination chat.
func (o Outcome) Succeeded() bool {
	return o == OutcomeSent
}
