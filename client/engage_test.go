package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockYouTubeActions struct {
	mock.Mock
}

func (m *MockYouTubeActions) LikeVideo(ctx context.Context, videoID string) error {
	args := m.Called(ctx, videoID)
	return args.Error(0)
}

func (m *MockYouTubeActions) ChannelIDForVideo(ctx context.Context, videoID string) (string, error) {
	args := m.Called(ctx, videoID)
	return args.String(0), args.Error(1)
}

func (m *MockYouTubeActions) SubscribeToChannel(ctx context.Context, channelID string) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}

type MockChannelResolver struct {
	mock.Mock
}

func (m *MockChannelResolver) ChannelIDForVideo(ctx context.Context, videoID string) (string, error) {
	args := m.Called(ctx, videoID)
	return args.String(0), args.Error(1)
}

const testVideoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func TestEngage_NonYouTubeURL(t *testing.T) {
	actions := new(MockYouTubeActions)
	res := NewEngager(actions, nil).Engage(context.Background(), "https://example.com/page")

	assert.True(t, res.Skipped())
	assert.NoError(t, res.Err())
	actions.AssertNotCalled(t, "LikeVideo", mock.Anything, mock.Anything)
	actions.AssertNotCalled(t, "SubscribeToChannel", mock.Anything, mock.Anything)
}

func TestEngage_LikeAndSubscribe(t *testing.T) {
	actions := new(MockYouTubeActions)
	actions.On("LikeVideo", mock.Anything, "dQw4w9WgXcQ").Return(nil).Once()
	actions.On("ChannelIDForVideo", mock.Anything, "dQw4w9WgXcQ").Return("UC123", nil).Once()
	actions.On("SubscribeToChannel", mock.Anything, "UC123").Return(nil).Once()

	res := NewEngager(actions, nil).Engage(context.Background(), testVideoURL)

	assert.Equal(t, "dQw4w9WgXcQ", res.VideoID)
	assert.Equal(t, "UC123", res.ChannelID)
	assert.True(t, res.Liked)
	assert.True(t, res.Subscribed)
	assert.NoError(t, res.Err())
	actions.AssertExpectations(t)
}

func TestEngage_LikeRetriedOnce(t *testing.T) {
	actions := new(MockYouTubeActions)
	actions.On("LikeVideo", mock.Anything, "dQw4w9WgXcQ").Return(errors.New("quota")).Once()
	actions.On("LikeVideo", mock.Anything, "dQw4w9WgXcQ").Return(nil).Once()
	actions.On("ChannelIDForVideo", mock.Anything, "dQw4w9WgXcQ").Return("UC123", nil)
	actions.On("SubscribeToChannel", mock.Anything, "UC123").Return(nil)

	res := NewEngager(actions, nil).Engage(context.Background(), testVideoURL)

	assert.True(t, res.Liked)
	actions.AssertNumberOfCalls(t, "LikeVideo", 2)
}

func TestEngage_FailedLikeStillSubscribes(t *testing.T) {
	actions := new(MockYouTubeActions)
	actions.On("LikeVideo", mock.Anything, "dQw4w9WgXcQ").Return(errors.New("forbidden"))
	actions.On("ChannelIDForVideo", mock.Anything, "dQw4w9WgXcQ").Return("UC123", nil)
	actions.On("SubscribeToChannel", mock.Anything, "UC123").Return(nil)

	res := NewEngager(actions, nil).Engage(context.Background(), testVideoURL)

	assert.False(t, res.Liked)
	assert.True(t, res.Subscribed)
	assert.EqualError(t, res.LikeErr, "forbidden")
	assert.Error(t, res.Err())
	actions.AssertNumberOfCalls(t, "LikeVideo", likeAttempts)
	actions.AssertCalled(t, "SubscribeToChannel", mock.Anything, "UC123")
}

func TestEngage_FailedSubscribeKeepsLike(t *testing.T) {
	actions := new(MockYouTubeActions)
	actions.On("LikeVideo", mock.Anything, "dQw4w9WgXcQ").Return(nil)
	actions.On("ChannelIDForVideo", mock.Anything, "dQw4w9WgXcQ").Return("UC123", nil)
	actions.On("SubscribeToChannel", mock.Anything, "UC123").Return(errors.New("forbidden"))

	res := NewEngager(actions, nil).Engage(context.Background(), testVideoURL)

	assert.True(t, res.Liked)
	assert.False(t, res.Subscribed)
	assert.EqualError(t, res.Err(), "forbidden")
}

func TestEngage_ChannelFallback(t *testing.T) {
	actions := new(MockYouTubeActions)
	actions.On("LikeVideo", mock.Anything, "dQw4w9WgXcQ").Return(nil)
	actions.On("ChannelIDForVideo", mock.Anything, "dQw4w9WgXcQ").Return("", ErrVideoNotFound)
	actions.On("SubscribeToChannel", mock.Anything, "UCfallback").Return(nil)

	fallback := new(MockChannelResolver)
	fallback.On("ChannelIDForVideo", mock.Anything, "dQw4w9WgXcQ").Return("UCfallback", nil)

	res := NewEngager(actions, fallback).Engage(context.Background(), testVideoURL)

	assert.True(t, res.Subscribed)
	assert.Equal(t, "UCfallback", res.ChannelID)
	fallback.AssertExpectations(t)
}

func TestEngage_ChannelUnresolved(t *testing.T) {
	actions := new(MockYouTubeActions)
	actions.On("LikeVideo", mock.Anything, "dQw4w9WgXcQ").Return(nil)
	actions.On("ChannelIDForVideo", mock.Anything, "dQw4w9WgXcQ").Return("", ErrVideoNotFound)

	fallback := new(MockChannelResolver)
	fallback.On("ChannelIDForVideo", mock.Anything, "dQw4w9WgXcQ").Return("", errors.New("blocked"))

	res := NewEngager(actions, fallback).Engage(context.Background(), testVideoURL)

	assert.True(t, res.Liked)
	assert.False(t, res.Subscribed)
	assert.ErrorIs(t, res.SubscribeErr, ErrVideoNotFound)
	actions.AssertNotCalled(t, "SubscribeToChannel", mock.Anything, mock.Anything)
}
