package common

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogOptions controls where log lines go and at which level.
type LogOptions struct {
	// ConsoleLevel is the minimum level written to the console.
	ConsoleLevel zerolog.Level
	// FilePath receives every line at debug level and above. Empty disables file output.
	FilePath string
	// Console is the console destination, os.Stdout when nil.
	Console io.Writer
	// NoColor disables ANSI colours on the console.
	NoColor bool
	// RunID is attached to every log line when set.
	RunID string
}

// levelWriter drops events below min before handing them to the wrapped writer.
type levelWriter struct {
	io.Writer
	min zerolog.Level
}

func (w levelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < w.min {
		return len(p), nil
	}
	return w.Writer.Write(p)
}

// SetupLogger configures the global zerolog logger with a coloured console writer and an
// optional debug-level log file. The returned closer releases the log file.
func SetupLogger(opts LogOptions) (io.Closer, error) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	writers := []io.Writer{
		levelWriter{
			Writer: zerolog.ConsoleWriter{
				Out:        console,
				TimeFormat: "02.01.06 15:04:05",
				NoColor:    opts.NoColor,
			},
			min: opts.ConsoleLevel,
		},
	}

	var closer io.Closer = nopCloser{}
	if opts.FilePath != "" {
		f, err := os.OpenFile(opts.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", opts.FilePath, err)
		}
		writers = append(writers, levelWriter{Writer: f, min: zerolog.DebugLevel})
		closer = f
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Caller()
	if opts.RunID != "" {
		ctx = ctx.Str("run_id", opts.RunID)
	}
	log.Logger = ctx.Logger()

	return closer, nil
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(name)
	if err != nil || name == "" {
		return zerolog.InfoLevel
	}
	return level
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
