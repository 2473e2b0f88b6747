package crawl

import (
	"context"

	"github.com/researchaccelerator-hub/telegram-job/model"
	"github.com/stretchr/testify/mock"
)

// MockMessageSource is a mock implementation of MessageSource
type MockMessageSource struct {
	mock.Mock
}

func (m *MockMessageSource) FetchMessages(ctx context.Context, chatID int64, limit int) ([]string, error) {
	args := m.Called(ctx, chatID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockJobDispatcher is a mock implementation of JobDispatcher
type MockJobDispatcher struct {
	mock.Mock
}

func (m *MockJobDispatcher) Dispatch(ctx context.Context, jobs []model.Job) model.Outcome {
	args := m.Called(ctx, jobs)
	return args.Get(0).(model.Outcome)
}
