package common

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// GenerateRunID returns a unique identifier for one invocation of the job.
// The identifier is a timestamp in "YYYYMMDDHHMMSS" format followed by a short random suffix,
// so log lines from consecutive scheduler runs sort naturally.
func GenerateRunID() string {
	return fmt.Sprintf("%s-%s", time.Now().Format("20060102150405"), uuid.New().String()[:8])
}

// RandomDuration picks a whole number of seconds in [minSeconds, maxSeconds].
// Bounds are swapped when given in the wrong order and negative values count as zero.
func RandomDuration(rng *rand.Rand, minSeconds, maxSeconds int) time.Duration {
	if minSeconds < 0 {
		minSeconds = 0
	}
	if maxSeconds < 0 {
		maxSeconds = 0
	}
	if maxSeconds < minSeconds {
		minSeconds, maxSeconds = maxSeconds, minSeconds
	}
	seconds := minSeconds
	if maxSeconds > minSeconds {
		seconds += rng.Intn(maxSeconds - minSeconds + 1)
	}
	return time.Duration(seconds) * time.Second
}

// RandomWait pauses for a random number of seconds between minSeconds and maxSeconds
// (inclusive). It returns early with the context's error if the context is cancelled.
func RandomWait(ctx context.Context, rng *rand.Rand, minSeconds, maxSeconds int) error {
	d := RandomDuration(rng, minSeconds, maxSeconds)
	log.Info().Dur("wait", d).Msgf("Sleeping for %d seconds...", int(d.Seconds()))
	return SleepContext(ctx, d)
}

// SleepContext sleeps for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FileExists reports whether path exists. Errors other than "not exist" are returned.
func FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
