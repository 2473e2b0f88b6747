// Package parser turns raw Telegram message texts into task jobs.
package parser

import (
	"errors"
	"regexp"
	"strings"

	"github.com/researchaccelerator-hub/telegram-job/model"
	"github.com/rs/zerolog/log"
)

// ErrNoMarkers is returned when an Extractor is built without any usable marker text.
var ErrNoMarkers = errors.New("at least one non-empty marker text is required")

var urlPattern = regexp.MustCompile(`(https?://\S+)`)

// Extractor filters messages by marker text and pulls out the task number and link.
//
// Markers are matched case-sensitively as literal substrings. When several markers are
// configured they are tried as a single alternation, so a message only needs one of them.
type Extractor struct {
	markers     []string
	taskPattern *regexp.Regexp
}

// NewExtractor builds an Extractor for the given marker texts. Surrounding whitespace is
// trimmed and empty entries are ignored.
func NewExtractor(markers []string) (*Extractor, error) {
	cleaned := make([]string, 0, len(markers))
	for _, m := range markers {
		m = strings.TrimSpace(m)
		if m != "" {
			cleaned = append(cleaned, m)
		}
	}
	if len(cleaned) == 0 {
		return nil, ErrNoMarkers
	}

	quoted := make([]string, len(cleaned))
	for i, m := range cleaned {
		quoted[i] = regexp.QuoteMeta(m)
	}
	taskPattern, err := regexp.Compile(`(?:` + strings.Join(quoted, "|") + `)\.?\s*(\d+)`)
	if err != nil {
		return nil, err
	}

	return &Extractor{
		markers:     cleaned,
		taskPattern: taskPattern,
	}, nil
}

// Markers returns a copy of the marker texts in use.
func (e *Extractor) Markers() []string {
	out := make([]string, len(e.markers))
	copy(out, e.markers)
	return out
}

// NormalizeMarkup removes bold markers and repairs links whose scheme separator was split
// by markup ("https**://"). Applying it more than once yields the same result.
func NormalizeMarkup(text string) string {
	text = strings.ReplaceAll(text, "https**://", "https://")
	return strings.ReplaceAll(text, "**", "")
}

// Extract returns one job per qualifying message, in the order the messages were given.
// Callers that want "newest job first" must pass messages newest first.
func (e *Extractor) Extract(messages []string) []model.Job {
	log.Debug().Int("messages", len(messages)).Msg("Extracting jobs from messages")

	jobs := make([]model.Job, 0)
	for _, message := range messages {
		job, ok := e.ExtractOne(message)
		if ok {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

// ExtractOne parses a single message. The boolean is false when the message carries no
// marker, no https link, no task digits after the marker or no URL.
func (e *Extractor) ExtractOne(message string) (model.Job, bool) {
	if !e.containsMarker(message) {
		log.Debug().Str("message", message).Msg("No marker text in message")
		return model.Job{}, false
	}

	normalized := NormalizeMarkup(message)
	if !strings.Contains(normalized, "https://") {
		log.Debug().Str("message", normalized).Msg("No https link in message")
		return model.Job{}, false
	}

	taskMatch := e.taskPattern.FindStringSubmatch(normalized)
	linkMatch := urlPattern.FindStringSubmatch(normalized)
	if taskMatch == nil || linkMatch == nil {
		log.Debug().Str("message", normalized).Msg("Marker present but task number or link missing")
		return model.Job{}, false
	}

	return model.Job{
		TaskNumber: taskMatch[1],
		URL:        linkMatch[1],
	}, true
}

func (e *Extractor) containsMarker(message string) bool {
	for _, m := range e.markers {
		if strings.Contains(message, m) {
			return true
		}
	}
	return false
}
