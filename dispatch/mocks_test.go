package dispatch

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/researchaccelerator-hub/telegram-job/client"
	"github.com/researchaccelerator-hub/telegram-job/model"
	"github.com/researchaccelerator-hub/telegram-job/screenshot"
	"github.com/stretchr/testify/mock"
)

// MockSender is a mock implementation of Sender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendPhoto(ctx context.Context, chatID int64, path, caption string) error {
	args := m.Called(ctx, chatID, path, caption)
	return args.Error(0)
}

// MockEngager is a mock implementation of Engager
type MockEngager struct {
	mock.Mock
}

func (m *MockEngager) Engage(ctx context.Context, url string) client.EngageResult {
	args := m.Called(ctx, url)
	return args.Get(0).(client.EngageResult)
}

// fakeBrowser writes a placeholder image on Capture unless told to fail.
type fakeBrowser struct {
	captureErr error
	closeErr   error
	launched   bool
	closed     bool
	url        string
}

func (b *fakeBrowser) Launch(ctx context.Context) error {
	b.launched = true
	return nil
}

func (b *fakeBrowser) Capture(ctx context.Context, url, path string) error {
	b.url = url
	if b.captureErr != nil {
		return b.captureErr
	}
	return os.WriteFile(path, []byte("png"), 0644)
}

func (b *fakeBrowser) Close() error {
	b.closed = true
	return b.closeErr
}

// browserRecorder hands out fake browsers and remembers them.
type browserRecorder struct {
	captureErr error
	closeErr   error
	created    []*fakeBrowser
}

func (r *browserRecorder) factory() screenshot.Factory {
	return func() screenshot.Browser {
		b := &fakeBrowser{captureErr: r.captureErr, closeErr: r.closeErr}
		r.created = append(r.created, b)
		return b
	}
}

// memLedger keeps records in memory and keeps every status it was given.
type memLedger struct {
	mu      sync.Mutex
	records map[string]model.JobRecord
	history []model.JobStatus
	getErr  error
}

func newMemLedger() *memLedger {
	return &memLedger{records: map[string]model.JobRecord{}}
}

func (l *memLedger) Get(_ context.Context, key string) (*model.JobRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.getErr != nil {
		return nil, l.getErr
	}
	rec, ok := l.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (l *memLedger) Put(_ context.Context, rec model.JobRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec.Key == "" {
		return errors.New("empty key")
	}
	l.records[rec.Key] = rec
	l.history = append(l.history, rec.Status)
	return nil
}

func (l *memLedger) Close() error { return nil }
